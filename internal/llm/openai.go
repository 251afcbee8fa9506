package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// OpenAI聊天补全API端点
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
)

// OpenAIClient OpenAI聊天补全客户端实现
type OpenAIClient struct {
	apiKey      string       // API密钥
	baseURL     string       // API端点
	model       string       // 模型名称
	httpClient  *http.Client // HTTP客户端
	maxRetries  int          // 最大重试次数
	maxTokens   int          // 最大生成Token数
	temperature float32      // 温度参数
	topP        float32      // topP参数
}

// NewOpenAIClient 创建新的OpenAI客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	// 验证API密钥
	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	// 确定API端点
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIEndpoint
	}

	// 创建HTTP客户端，设置超时
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}

	client := &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       cfg.Model,
		httpClient:  httpClient,
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}

	return client, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.model
}

// Generate 根据提示词生成回答
// 支持通过WithSystemPrompt附加系统提示词
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	opts := &GenerateOptions{}
	for _, opt := range options {
		opt(opts)
	}

	// 组装消息：可选的系统提示词 + 用户提示词
	var messages []Message
	if opts.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: opts.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	// 转换GenerateOptions为ChatOptions
	var chatOpts []ChatOption
	if opts.MaxTokens != nil {
		chatOpts = append(chatOpts, WithChatMaxTokens(*opts.MaxTokens))
	}
	if opts.Temperature != nil {
		chatOpts = append(chatOpts, WithChatTemperature(*opts.Temperature))
	}
	if opts.TopP != nil {
		chatOpts = append(chatOpts, WithChatTopP(*opts.TopP))
	}

	// 复用Chat方法
	return c.Chat(ctx, messages, chatOpts...)
}

// Chat 进行多轮对话
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	// 应用选项
	opts := &ChatOptions{}
	for _, opt := range options {
		opt(opts)
	}

	// 创建请求，选项优先于客户端默认值
	req := &OpenAIRequest{
		Model:    c.model,
		Messages: messages,
	}

	if opts.MaxTokens != nil {
		req.MaxTokens = opts.MaxTokens
	} else if c.maxTokens > 0 {
		maxTokens := c.maxTokens
		req.MaxTokens = &maxTokens
	}

	if opts.Temperature != nil {
		req.Temperature = opts.Temperature
	} else if c.temperature > 0 {
		temp := c.temperature
		req.Temperature = &temp
	}

	if opts.TopP != nil {
		req.TopP = opts.TopP
	} else if c.topP > 0 {
		topP := c.topP
		req.TopP = &topP
	}

	// 发送请求
	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	// 解析响应
	return c.processResponse(resp)
}

// doPost 发送单次HTTP请求
func (c *OpenAIClient) doPost(ctx context.Context, jsonData []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	return c.httpClient.Do(httpReq)
}

// retryable 限流和服务端错误才值得重试
func retryable(resp *http.Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

// sendRequest 发送API请求，对可重试错误做指数退避
func (c *OpenAIClient) sendRequest(ctx context.Context, req *OpenAIRequest) (*OpenAIResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		resp, err = c.doPost(ctx, jsonData)
		if err == nil && !retryable(resp) {
			break
		}
		if attempt >= c.maxRetries {
			if err != nil {
				return nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", err))
			}
			break
		}
		if err == nil {
			resp.Body.Close()
		}

		// 指数退避：100ms起步，每次翻倍
		select {
		case <-ctx.Done():
			return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
		case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		// 尝试解析错误响应
		var errResp struct {
			Error *OpenAIError `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != nil {
			code := ErrCodeServerError
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				code = ErrCodeInvalidAPIKey
			case http.StatusTooManyRequests:
				code = ErrCodeRateLimited
			case http.StatusBadRequest:
				code = ErrCodeInvalidRequest
			}
			return nil, NewLLMError(code,
				fmt.Sprintf("API error: %s (%s)", errResp.Error.Message, errResp.Error.Type))
		}

		// 如果无法解析，返回原始错误
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	// 解析JSON响应
	var openaiResp OpenAIResponse
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("failed to parse response: %v", err))
	}

	// 检查API返回的错误
	if openaiResp.Error != nil {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("API error: %s (%s)", openaiResp.Error.Message, openaiResp.Error.Type))
	}

	return &openaiResp, nil
}

// processResponse 处理OpenAI的响应
func (c *OpenAIClient) processResponse(resp *OpenAIResponse) (*Response, error) {
	if len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	choice := resp.Choices[0]
	result := &Response{
		Text:       choice.Message.Content,
		Messages:   []Message{choice.Message},
		ModelName:  c.model,
		TokenCount: resp.Usage.TotalTokens,
		FinishTime: time.Now(),
	}

	return result, nil
}

// 在包初始化时注册OpenAI客户端
func init() {
	RegisterClient("openai", NewOpenAIClient)
}
