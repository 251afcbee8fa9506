package transcribe

import "fmt"

// 转写服务错误码
const (
	ErrCodeInvalidAPIKey     = 2001 // API密钥无效
	ErrCodeFileNotFound      = 2002 // 音频文件不存在
	ErrCodeFileTooLarge      = 2003 // 音频文件超过大小上限
	ErrCodeUnsupportedFormat = 2004 // 不支持的音频格式
	ErrCodeNetworkError      = 2005 // 网络请求错误
	ErrCodeServerError       = 2006 // 服务端错误
	ErrCodeTimeout           = 2007 // 请求超时
	ErrCodeEmptyResult       = 2008 // 转写结果为空
)

// TranscribeError 转写服务错误类型
type TranscribeError struct {
	Code    int    // 错误码
	Message string // 错误信息
}

// Error 实现error接口
func (e *TranscribeError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// NewTranscribeError 创建新的转写错误
func NewTranscribeError(code int, message string) *TranscribeError {
	return &TranscribeError{
		Code:    code,
		Message: message,
	}
}
