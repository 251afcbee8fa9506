package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChatCompletionServer 创建模拟OpenAI聊天补全接口的测试服务器
func newChatCompletionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNewOpenAIClient(t *testing.T) {
	t.Run("MissingAPIKey", func(t *testing.T) {
		_, err := NewOpenAIClient()
		require.Error(t, err, "缺少API密钥时应当返回错误")

		llmErr, ok := err.(*LLMError)
		require.True(t, ok, "错误类型应为LLMError")
		assert.Equal(t, ErrCodeInvalidAPIKey, llmErr.Code)
	})

	t.Run("WithOptions", func(t *testing.T) {
		client, err := NewOpenAIClient(
			WithAPIKey("test-key"),
			WithModel(ModelGPT4o),
		)
		require.NoError(t, err)
		assert.Equal(t, ModelGPT4o, client.Name(), "客户端应返回配置的模型名称")
	})
}

func TestOpenAIClientGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := newChatCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req OpenAIRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 1)
			assert.Equal(t, RoleUser, req.Messages[0].Role)
			assert.Equal(t, "hello", req.Messages[0].Content)

			resp := OpenAIResponse{
				ID:    "chatcmpl-test",
				Model: ModelGPT4o,
				Choices: []OpenAIChoice{
					{
						Index:        0,
						FinishReason: "stop",
						Message:      Message{Role: RoleAssistant, Content: "hi there"},
					},
				},
				Usage: OpenAIUsage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})

		client, err := NewOpenAIClient(
			WithAPIKey("test-key"),
			WithBaseURL(server.URL),
			WithModel(ModelGPT4o),
		)
		require.NoError(t, err)

		resp, err := client.Generate(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "hi there", resp.Text, "响应文本应与服务端返回一致")
		assert.Equal(t, 8, resp.TokenCount)
		assert.Equal(t, ModelGPT4o, resp.ModelName)
	})

	t.Run("SystemPrompt", func(t *testing.T) {
		server := newChatCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req OpenAIRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 2, "系统提示词应作为首条消息")
			assert.Equal(t, RoleSystem, req.Messages[0].Role)
			assert.Equal(t, "you are a QA expert", req.Messages[0].Content)
			assert.Equal(t, RoleUser, req.Messages[1].Role)

			json.NewEncoder(w).Encode(OpenAIResponse{
				Choices: []OpenAIChoice{
					{Message: Message{Role: RoleAssistant, Content: "ok"}},
				},
			})
		})

		client, err := NewOpenAIClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "review this",
			WithSystemPrompt("you are a QA expert"))
		require.NoError(t, err)
	})

	t.Run("EmptyPrompt", func(t *testing.T) {
		client, err := NewOpenAIClient(WithAPIKey("test-key"))
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "")
		require.Error(t, err)

		llmErr, ok := err.(*LLMError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)
	})

	t.Run("GenerateOptionsOverride", func(t *testing.T) {
		server := newChatCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req OpenAIRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.MaxTokens)
			assert.Equal(t, 256, *req.MaxTokens, "选项中的MaxTokens应覆盖客户端默认值")
			require.NotNil(t, req.Temperature)
			assert.InDelta(t, 0.7, float64(*req.Temperature), 0.001)

			json.NewEncoder(w).Encode(OpenAIResponse{
				Choices: []OpenAIChoice{
					{Message: Message{Role: RoleAssistant, Content: "ok"}},
				},
			})
		})

		client, err := NewOpenAIClient(
			WithAPIKey("test-key"),
			WithBaseURL(server.URL),
			WithMaxTokens(4000),
		)
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "hello",
			WithGenerateMaxTokens(256),
			WithGenerateTemperature(0.7),
		)
		require.NoError(t, err)
	})
}

func TestOpenAIClientChat(t *testing.T) {
	t.Run("EmptyMessages", func(t *testing.T) {
		client, err := NewOpenAIClient(WithAPIKey("test-key"))
		require.NoError(t, err)

		_, err = client.Chat(context.Background(), nil)
		require.Error(t, err)

		llmErr, ok := err.(*LLMError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeInvalidRequest, llmErr.Code)
	})

	t.Run("MultiTurn", func(t *testing.T) {
		server := newChatCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req OpenAIRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 3)

			json.NewEncoder(w).Encode(OpenAIResponse{
				Choices: []OpenAIChoice{
					{Message: Message{Role: RoleAssistant, Content: "third turn"}},
				},
			})
		})

		client, err := NewOpenAIClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
		require.NoError(t, err)

		messages := []Message{
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: "second"},
			{Role: RoleUser, Content: "third"},
		}
		resp, err := client.Chat(context.Background(), messages)
		require.NoError(t, err)
		assert.Equal(t, "third turn", resp.Text)
	})
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Run("Unauthorized", func(t *testing.T) {
		server := newChatCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"message": "Incorrect API key provided",
					"type":    "invalid_request_error",
				},
			})
		})

		client, err := NewOpenAIClient(WithAPIKey("bad-key"), WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "hello")
		require.Error(t, err)

		llmErr, ok := err.(*LLMError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeInvalidAPIKey, llmErr.Code, "401响应应映射为无效密钥错误")
	})

	t.Run("EmptyChoices", func(t *testing.T) {
		server := newChatCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(OpenAIResponse{})
		})

		client, err := NewOpenAIClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "hello")
		require.Error(t, err)

		llmErr, ok := err.(*LLMError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeEmptyResponse, llmErr.Code)
	})

	t.Run("RetryOnServerError", func(t *testing.T) {
		var calls int32
		server := newChatCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(OpenAIResponse{
				Choices: []OpenAIChoice{
					{Message: Message{Role: RoleAssistant, Content: "recovered"}},
				},
			})
		})

		client, err := NewOpenAIClient(
			WithAPIKey("test-key"),
			WithBaseURL(server.URL),
			WithMaxRetries(2),
		)
		require.NoError(t, err)

		resp, err := client.Generate(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "recovered", resp.Text, "服务端错误后重试应成功")
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "应发生一次重试")
	})
}

func TestClientFactory(t *testing.T) {
	client, err := NewClient("openai", WithAPIKey("test-key"), WithModel(ModelGPT35Turbo))
	require.NoError(t, err, "通过工厂创建openai客户端应成功")
	assert.Equal(t, ModelGPT35Turbo, client.Name())

	_, err = NewClient("nonexistent")
	require.Error(t, err, "未注册的客户端类型应返回错误")
}
