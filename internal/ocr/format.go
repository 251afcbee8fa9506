package ocr

import (
	"path/filepath"
	"strings"
)

// DocumentFormat 文档格式类型
type DocumentFormat int

const (
	// FormatUnknown 未识别的文档格式
	FormatUnknown DocumentFormat = iota
	// FormatPDF PDF文档
	FormatPDF
	// FormatImage 图片文档
	FormatImage
)

// String 返回格式名称
func (f DocumentFormat) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

// 支持的图片扩展名
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
}

// 扩展名到MIME类型的映射表
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".webp": "image/webp",
}

// DetectFormat 根据文件扩展名识别文档格式
func DetectFormat(filename string) DocumentFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return FormatPDF
	}
	if imageExtensions[ext] {
		return FormatImage
	}
	return FormatUnknown
}

// MimeType 根据文件扩展名返回MIME类型
// 未知扩展名返回通用二进制类型
func MimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
