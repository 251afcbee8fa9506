package ocr

import (
	"fmt"
	"os"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	// DefaultMaxChunkSize 默认单个分块大小上限10MB
	DefaultMaxChunkSize = 10 << 20
	// DefaultMaxChunkPages 默认单个分块页数上限
	DefaultMaxChunkPages = 10
)

// ChunkLimits 文档分块限制
// 作为显式值对象注入，不依赖全局配置
type ChunkLimits struct {
	MaxSizeBytes int64 // 单个分块大小上限（字节）
	MaxPages     int   // 单个分块页数上限
}

// DefaultChunkLimits 返回默认分块限制
func DefaultChunkLimits() ChunkLimits {
	return ChunkLimits{
		MaxSizeBytes: DefaultMaxChunkSize,
		MaxPages:     DefaultMaxChunkPages,
	}
}

// Validate 校验分块限制参数
func (l ChunkLimits) Validate() error {
	if l.MaxSizeBytes <= 0 {
		return NewChunkError(ErrCodeInvalidLimits,
			fmt.Sprintf("max size must be positive, got %d", l.MaxSizeBytes))
	}
	if l.MaxPages <= 0 {
		return NewChunkError(ErrCodeInvalidLimits,
			fmt.Sprintf("max pages must be positive, got %d", l.MaxPages))
	}
	return nil
}

// FileInfo 文档的分块相关属性
type FileInfo struct {
	SizeBytes int64          // 文件大小（字节）
	PageCount int            // 页数，图片恒为1
	Format    DocumentFormat // 文档格式
}

// ExceedsSize 判断文件大小是否超过限制
func (f FileInfo) ExceedsSize(limits ChunkLimits) bool {
	return f.SizeBytes > limits.MaxSizeBytes
}

// ExceedsPages 判断页数是否超过限制
func (f FileInfo) ExceedsPages(limits ChunkLimits) bool {
	return f.PageCount > limits.MaxPages
}

// InspectFile 检查文件的大小、页数和格式
func InspectFile(filePath string) (FileInfo, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return FileInfo{}, WrapChunkError(ErrCodeFileNotFound,
			fmt.Sprintf("cannot stat file %s", filePath), err)
	}

	format := DetectFormat(filePath)
	info := FileInfo{
		SizeBytes: stat.Size(),
		PageCount: 1,
		Format:    format,
	}

	if format == FormatPDF {
		info.PageCount = countPDFPages(filePath)
	}

	return info, nil
}

// countPDFPages 统计PDF页数
// 优先使用pdfcpu，失败时回退到ledongthuc/pdf，仍失败则按1页处理
func countPDFPages(filePath string) int {
	if count, err := api.PageCountFile(filePath); err == nil && count > 0 {
		return count
	}

	f, reader, err := pdflib.Open(filePath)
	if err == nil {
		defer f.Close()
		if count := reader.NumPage(); count > 0 {
			return count
		}
	}

	// 两种解析都失败时按单页处理，由后续提取环节暴露真正的问题
	return 1
}
