package llm

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleSystem 系统角色
	RoleSystem MessageRole = "system"
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`           // 角色
	Content string      `json:"content"`        // 内容
	Name    string      `json:"name,omitempty"` // 可选名称标识
}

// OpenAIRequest OpenAI聊天补全请求结构
type OpenAIRequest struct {
	Model       string    `json:"model"`                 // 模型名称
	Messages    []Message `json:"messages"`              // 消息列表
	MaxTokens   *int      `json:"max_tokens,omitempty"`  // 最大生成Token数
	Temperature *float32  `json:"temperature,omitempty"` // 采样温度
	TopP        *float32  `json:"top_p,omitempty"`       // 核采样概率阈值
	Stream      bool      `json:"stream,omitempty"`      // 是否流式输出
}

// OpenAIResponse OpenAI聊天补全响应结构
type OpenAIResponse struct {
	ID      string         `json:"id"`              // 响应ID
	Object  string         `json:"object"`          // 对象类型
	Model   string         `json:"model"`           // 模型名称
	Choices []OpenAIChoice `json:"choices"`         // 选择列表
	Usage   OpenAIUsage    `json:"usage"`           // 资源使用情况
	Error   *OpenAIError   `json:"error,omitempty"` // 错误信息(如果有)
}

// OpenAIChoice 输出选择
type OpenAIChoice struct {
	Index        int     `json:"index"`         // 选择索引
	FinishReason string  `json:"finish_reason"` // 结束原因
	Message      Message `json:"message"`       // 消息内容
}

// OpenAIUsage 资源使用情况
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`     // 输入token数
	CompletionTokens int `json:"completion_tokens"` // 输出token数
	TotalTokens      int `json:"total_tokens"`      // 总token数
}

// OpenAIError API错误信息
type OpenAIError struct {
	Message string `json:"message"` // 错误消息
	Type    string `json:"type"`    // 错误类型
	Code    string `json:"code"`    // 错误码
}

// Response 统一的响应结构
type Response struct {
	Text       string    // 生成的文本
	Messages   []Message // 消息列表（如果是对话）
	TokenCount int       // 使用的token数
	ModelName  string    // 使用的模型名称
	FinishTime time.Time // 完成时间
}

// Model 常用模型名称
const (
	ModelGPT4o      = "gpt-4o"        // GPT-4o模型（分析类任务）
	ModelGPT35Turbo = "gpt-3.5-turbo" // GPT-3.5-Turbo模型（生成类任务）
	ModelGPT4oMini  = "gpt-4o-mini"   // GPT-4o-mini模型（轻量任务）
	ModelWhisper    = "whisper-1"     // Whisper语音转写模型
)
