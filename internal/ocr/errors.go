package ocr

import "fmt"

// 文档分块处理错误码
const (
	ErrCodeFileNotFound      = 3001 // 源文件不存在或不可读
	ErrCodeUnsupportedFormat = 3002 // 不支持的文档格式
	ErrCodeSplitFailed       = 3003 // PDF拆分失败
	ErrCodePageCountFailed   = 3004 // 页数统计失败
	ErrCodeCompressFailed    = 3005 // 图片压缩失败
	ErrCodeExtractFailed     = 3006 // OCR提取请求失败或被取消
	ErrCodeTempDirFailed     = 3007 // 临时目录创建失败
	ErrCodeInvalidLimits     = 3008 // 分块限制参数无效
)

// ChunkError 文档分块错误类型
// 区分结构性失败与"成功但无文本"的场景
type ChunkError struct {
	Code    int    // 错误码
	Message string // 错误信息
	Err     error  // 底层错误
}

// Error 实现error接口
func (e *ChunkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *ChunkError) Unwrap() error {
	return e.Err
}

// NewChunkError 创建新的分块错误
func NewChunkError(code int, message string) *ChunkError {
	return &ChunkError{
		Code:    code,
		Message: message,
	}
}

// WrapChunkError 包装底层错误为分块错误
func WrapChunkError(code int, message string, err error) *ChunkError {
	return &ChunkError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
