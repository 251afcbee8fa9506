package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/api/model"
)

// 应用错误类别
const (
	ErrorTypeValidation = "VALIDATION_ERROR" // 请求参数错误
	ErrorTypeNotFound   = "NOT_FOUND_ERROR"  // 资源不存在
	ErrorTypeUpload     = "UPLOAD_ERROR"     // 文件上传错误
	ErrorTypeDependency = "DEPENDENCY_ERROR" // 外部AI服务调用失败
	ErrorTypeInternal   = "INTERNAL_ERROR"   // 内部错误
)

// AppError 携带HTTP状态码的应用错误
type AppError struct {
	Type    string // 错误类别
	Message string // 返回给调用方的消息
	Cause   error  // 底层错误，仅记录日志
	Code    int    // HTTP状态码
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError 创建请求参数错误
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Code: http.StatusBadRequest}
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message, Code: http.StatusNotFound}
}

// NewUploadError 创建文件上传错误
func NewUploadError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeUpload, Message: message, Cause: cause, Code: http.StatusBadRequest}
}

// NewDependencyError 创建外部服务调用错误
func NewDependencyError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeDependency, Message: message, Cause: cause, Code: http.StatusBadGateway}
}

// NewInternalError 创建内部错误
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Cause: cause, Code: http.StatusInternalServerError}
}

// HandleError 把错误交给ErrorMiddleware统一处理
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorMiddleware 统一错误处理中间件
// 恢复panic并把c.Errors中的错误转换成标准响应
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"panic":    r,
					"trace_id": c.GetString("TraceID"),
					"path":     c.Request.URL.Path,
					"stack":    string(debug.Stack()),
				}).Error("Panic recovered in API request")

				resp := model.NewErrorResponse(http.StatusInternalServerError, "服务器内部错误")
				if gin.Mode() == gin.DebugMode {
					resp.Message = fmt.Sprintf("panic: %v", r)
				}
				resp.TraceID = c.GetString("TraceID")
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		traceID := c.GetString("TraceID")

		var appErr *AppError
		if errors.As(err, &appErr) {
			log.WithFields(logrus.Fields{
				"error_type": appErr.Type,
				"trace_id":   traceID,
				"path":       c.Request.URL.Path,
				"cause":      appErr.Cause,
			}).Error(appErr.Message)

			resp := model.NewErrorResponse(appErr.Code, appErr.Message)
			resp.TraceID = traceID
			c.JSON(appErr.Code, resp)
			return
		}

		log.WithFields(logrus.Fields{
			"trace_id": traceID,
			"path":     c.Request.URL.Path,
		}).Error(err.Error())

		resp := model.NewErrorResponse(http.StatusInternalServerError, "服务器内部错误")
		if gin.Mode() == gin.DebugMode {
			resp.Message = err.Error()
		}
		resp.TraceID = traceID
		c.JSON(http.StatusInternalServerError, resp)
	}
}
