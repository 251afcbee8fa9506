package convert

import (
	"fmt"
	"path/filepath"
	"strings"
)

// extractFunc 将指定格式的文件解析为纯文本
type extractFunc func(filePath string) (string, error)

// 可转换为PDF的扩展名及其文本提取函数
var extractors = map[string]extractFunc{
	".txt":      extractPlainText,
	".md":       extractMarkdown,
	".markdown": extractMarkdown,
	".csv":      extractCSV,
	".docx":     extractDocx,
	".xlsx":     extractXLSX,
	".pptx":     extractPPTX,
}

// NeedsConversion 判断文件是否需要转换为PDF后再做OCR
func NeedsConversion(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := extractors[ext]
	return ok
}

// Converter 文档到PDF转换器
// 先将源文档解析为纯文本，再渲染为PDF
type Converter struct{}

// NewConverter 创建新的文档转换器
func NewConverter() *Converter {
	return &Converter{}
}

// ToPDF 将源文档转换为PDF，写入outputPath并返回
func (c *Converter) ToPDF(filePath, outputPath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	extract, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("unsupported conversion source type: %s", ext)
	}

	text, err := extract(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", filePath, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in %s", filePath)
	}

	if err := renderPDF(text, outputPath); err != nil {
		return "", fmt.Errorf("failed to render PDF: %w", err)
	}
	return outputPath, nil
}

// TextToPDF 将纯文本直接渲染为PDF
func (c *Converter) TextToPDF(text, outputPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text content cannot be empty")
	}
	if err := renderPDF(text, outputPath); err != nil {
		return "", fmt.Errorf("failed to render PDF: %w", err)
	}
	return outputPath, nil
}
