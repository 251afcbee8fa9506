package middleware

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 请求体日志的最大长度，音频和文档上传的请求体不记录内容
const maxLoggedBodyBytes = 4096

var log = logrus.New()

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// GetLogger 返回全局日志记录器
func GetLogger() *logrus.Logger {
	return log
}

// Logger 请求日志中间件
// 每个请求记录一条访问日志，包含追踪ID和处理耗时
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"trace_id":    c.GetString("TraceID"),
			"status_code": c.Writer.Status(),
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
			"size":        c.Writer.Size(),
		})

		if c.Writer.Status() >= 500 {
			entry.Error("HTTP request")
		} else {
			entry.Info("HTTP request")
		}
	}
}

// SetTraceID 为请求设置追踪ID
// 优先使用调用方传入的X-Trace-ID，否则生成新的
func SetTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set("TraceID", traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// RequestBodyLog 请求体日志中间件，仅在debug级别生效
// 音频和文档上传使用multipart编码，内容不记录
func RequestBodyLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if log.IsLevelEnabled(logrus.DebugLevel) && loggableBody(c) {
			var buf bytes.Buffer
			body, _ := io.ReadAll(io.TeeReader(c.Request.Body, &buf))
			c.Request.Body = io.NopCloser(&buf)

			if len(body) > 0 {
				if len(body) > maxLoggedBodyBytes {
					body = body[:maxLoggedBodyBytes]
				}
				log.WithFields(logrus.Fields{
					"trace_id": c.GetString("TraceID"),
					"method":   c.Request.Method,
					"path":     c.Request.URL.Path,
					"body":     string(body),
				}).Debug("Request body")
			}
		}

		c.Next()
	}
}

// ResponseLogger 响应体日志中间件，仅在debug级别生效
func ResponseLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !log.IsLevelEnabled(logrus.DebugLevel) {
			c.Next()
			return
		}

		writer := &teeResponseWriter{
			ResponseWriter: c.Writer,
			buf:            &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		body := writer.buf.String()
		if len(body) > maxLoggedBodyBytes {
			body = body[:maxLoggedBodyBytes]
		}
		log.WithFields(logrus.Fields{
			"trace_id":    c.GetString("TraceID"),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"response":    body,
		}).Debug("Response body")
	}
}

// loggableBody 判断请求体是否适合记录
func loggableBody(c *gin.Context) bool {
	contentType := c.ContentType()
	return !strings.HasPrefix(contentType, "multipart/") &&
		!strings.HasPrefix(contentType, "audio/") &&
		!strings.HasPrefix(contentType, "application/octet-stream")
}

// teeResponseWriter 同时把响应写入缓冲区，用于调试日志
type teeResponseWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *teeResponseWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeResponseWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
