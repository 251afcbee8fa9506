package llm

import (
	"context"
	"time"
)

// Client 大模型客户端接口
type Client interface {
	// Generate 根据提示词生成回答
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error)

	// Chat 进行多轮对话
	Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error)

	// Name 返回模型名称
	Name() string
}

// Config 大模型客户端配置
// 分析类任务使用较低温度保证输出格式稳定
type Config struct {
	APIKey      string        // API密钥
	BaseURL     string        // 聊天补全端点
	Model       string        // 模型名称
	Timeout     time.Duration // 请求超时时间
	MaxRetries  int           // 最大重试次数
	MaxTokens   int           // 单次生成Token上限
	Temperature float32       // 采样温度
	TopP        float32       // 核采样概率阈值
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1/chat/completions",
		Model:       ModelGPT4o,
		Timeout:     120 * time.Second,
		MaxRetries:  3,
		MaxTokens:   4000,
		Temperature: 0.3,
		TopP:        0.9,
	}
}

// Option 客户端配置选项
type Option func(*Config)

// NewConfig 创建配置并应用选项
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithAPIKey(apiKey string) Option {
	return func(c *Config) { c.APIKey = apiKey }
}

func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

func WithMaxRetries(retries int) Option {
	return func(c *Config) { c.MaxRetries = retries }
}

func WithMaxTokens(tokens int) Option {
	return func(c *Config) { c.MaxTokens = tokens }
}

func WithTemperature(temp float32) Option {
	return func(c *Config) { c.Temperature = temp }
}

func WithTopP(topP float32) Option {
	return func(c *Config) { c.TopP = topP }
}

// GenerateOptions 单次生成请求的覆盖参数
// 为nil的字段沿用客户端配置
type GenerateOptions struct {
	MaxTokens   *int
	Temperature *float32
	TopP        *float32
	System      string // 系统提示词
}

// GenerateOption 生成请求选项
type GenerateOption func(*GenerateOptions)

// WithGenerateMaxTokens 覆盖本次请求的Token上限
func WithGenerateMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = &tokens }
}

// WithGenerateTemperature 覆盖本次请求的采样温度
func WithGenerateTemperature(temp float32) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = &temp }
}

// WithGenerateTopP 覆盖本次请求的核采样阈值
func WithGenerateTopP(topP float32) GenerateOption {
	return func(o *GenerateOptions) { o.TopP = &topP }
}

// WithSystemPrompt 设置本次请求的系统提示词
func WithSystemPrompt(system string) GenerateOption {
	return func(o *GenerateOptions) { o.System = system }
}

// ChatOptions 单次对话请求的覆盖参数
type ChatOptions struct {
	MaxTokens   *int
	Temperature *float32
	TopP        *float32
}

// ChatOption 对话请求选项
type ChatOption func(*ChatOptions)

// WithChatMaxTokens 覆盖本次对话的Token上限
func WithChatMaxTokens(tokens int) ChatOption {
	return func(o *ChatOptions) { o.MaxTokens = &tokens }
}

// WithChatTemperature 覆盖本次对话的采样温度
func WithChatTemperature(temp float32) ChatOption {
	return func(o *ChatOptions) { o.Temperature = &temp }
}

// WithChatTopP 覆盖本次对话的核采样阈值
func WithChatTopP(topP float32) ChatOption {
	return func(o *ChatOptions) { o.TopP = &topP }
}

// Factory 客户端工厂函数
type Factory func(opts ...Option) (Client, error)

var clientFactories = make(map[string]Factory)

// RegisterClient 注册客户端实现
func RegisterClient(name string, factory Factory) {
	clientFactories[name] = factory
}

// NewClient 按注册名创建客户端
func NewClient(name string, opts ...Option) (Client, error) {
	factory, ok := clientFactories[name]
	if !ok {
		return nil, NewLLMError(ErrCodeInvalidRequest, "llm client type not registered: "+name)
	}
	return factory(opts...)
}
