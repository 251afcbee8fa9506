package transcribe

import (
	"context"
	"net/http"
	"time"
)

// Transcriber 语音转写客户端接口
type Transcriber interface {
	// TranscribeFile 将音频文件转写为文本
	TranscribeFile(ctx context.Context, filePath string) (string, error)

	// Name 返回转写模型名称
	Name() string
}

// Config 转写客户端配置
type Config struct {
	APIKey      string        // API密钥
	BaseURL     string        // API端点
	Model       string        // 模型名称
	Timeout     time.Duration // 请求超时时间
	MaxRetries  int           // 最大重试次数
	MaxFileSize int64         // 单个音频文件大小上限（字节）
	Language    string        // 可选的音频语言提示
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     defaultWhisperEndpoint,
		Model:       ModelWhisper1,
		Timeout:     300 * time.Second,
		MaxRetries:  3,
		MaxFileSize: DefaultMaxAudioSize,
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithAPIKey 设置API密钥
func WithAPIKey(apiKey string) Option {
	return func(c *Config) {
		c.APIKey = apiKey
	}
}

// WithBaseURL 设置API端点
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel 设置模型名称
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout 设置请求超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithMaxFileSize 设置音频文件大小上限
func WithMaxFileSize(size int64) Option {
	return func(c *Config) {
		c.MaxFileSize = size
	}
}

// WithLanguage 设置音频语言提示
func WithLanguage(language string) Option {
	return func(c *Config) {
		c.Language = language
	}
}

// NewConfig 创建配置并应用选项
func NewConfig(opts ...Option) *Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// newHTTPClient 创建带超时的HTTP客户端
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
