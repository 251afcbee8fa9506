package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// Whisper语音转写API端点
	defaultWhisperEndpoint = "https://api.openai.com/v1/audio/transcriptions"

	// ModelWhisper1 Whisper转写模型名称
	ModelWhisper1 = "whisper-1"

	// DefaultMaxAudioSize 默认音频文件大小上限25MB
	DefaultMaxAudioSize = 25 << 20
)

// 支持的音频文件扩展名
var supportedAudioExtensions = map[string]bool{
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".m4a":  true,
	".wav":  true,
	".webm": true,
}

// IsSupportedAudio 判断文件扩展名是否为支持的音频格式
func IsSupportedAudio(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedAudioExtensions[ext]
}

// WhisperClient 基于Whisper模型的语音转写客户端
type WhisperClient struct {
	apiKey      string
	baseURL     string
	model       string
	language    string
	maxRetries  int
	maxFileSize int64
	httpClient  *http.Client
}

// NewWhisperClient 创建新的Whisper转写客户端
func NewWhisperClient(opts ...Option) (*WhisperClient, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewTranscribeError(ErrCodeInvalidAPIKey, "API key cannot be empty")
	}

	return &WhisperClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		language:    cfg.Language,
		maxRetries:  cfg.MaxRetries,
		maxFileSize: cfg.MaxFileSize,
		httpClient:  newHTTPClient(cfg.Timeout),
	}, nil
}

// Name 返回转写模型名称
func (c *WhisperClient) Name() string {
	return c.model
}

// TranscribeFile 将音频文件转写为文本
// 校验文件格式与大小后，以multipart表单提交给转写接口
func (c *WhisperClient) TranscribeFile(ctx context.Context, filePath string) (string, error) {
	if !IsSupportedAudio(filePath) {
		return "", NewTranscribeError(ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported audio format: %s", filepath.Ext(filePath)))
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return "", NewTranscribeError(ErrCodeFileNotFound,
			fmt.Sprintf("audio file not found: %v", err))
	}
	if info.Size() > c.maxFileSize {
		return "", NewTranscribeError(ErrCodeFileTooLarge,
			fmt.Sprintf("audio file size %d exceeds limit %d", info.Size(), c.maxFileSize))
	}

	audioData, err := os.ReadFile(filePath)
	if err != nil {
		return "", NewTranscribeError(ErrCodeFileNotFound,
			fmt.Sprintf("failed to read audio file: %v", err))
	}

	body, contentType, err := c.buildMultipartBody(filepath.Base(filePath), audioData)
	if err != nil {
		return "", err
	}

	text, err := c.sendRequest(ctx, body, contentType)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewTranscribeError(ErrCodeEmptyResult, "transcription result is empty")
	}

	return text, nil
}

// buildMultipartBody 构造multipart表单请求体
func (c *WhisperClient) buildMultipartBody(filename string, audioData []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", NewTranscribeError(ErrCodeNetworkError,
			fmt.Sprintf("failed to create form file: %v", err))
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, "", NewTranscribeError(ErrCodeNetworkError,
			fmt.Sprintf("failed to write form file: %v", err))
	}

	if err := writer.WriteField("model", c.model); err != nil {
		return nil, "", NewTranscribeError(ErrCodeNetworkError,
			fmt.Sprintf("failed to write model field: %v", err))
	}
	// 请求纯文本响应，避免二次解析JSON
	if err := writer.WriteField("response_format", "text"); err != nil {
		return nil, "", NewTranscribeError(ErrCodeNetworkError,
			fmt.Sprintf("failed to write response_format field: %v", err))
	}
	if c.language != "" {
		if err := writer.WriteField("language", c.language); err != nil {
			return nil, "", NewTranscribeError(ErrCodeNetworkError,
				fmt.Sprintf("failed to write language field: %v", err))
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", NewTranscribeError(ErrCodeNetworkError,
			fmt.Sprintf("failed to close multipart writer: %v", err))
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// sendRequest 发送转写请求并返回文本结果
func (c *WhisperClient) sendRequest(ctx context.Context, body []byte, contentType string) (string, error) {
	var resp *http.Response
	var err error
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避重试
			select {
			case <-ctx.Done():
				return "", NewTranscribeError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		httpReq, reqErr := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.baseURL,
			bytes.NewReader(body),
		)
		if reqErr != nil {
			return "", NewTranscribeError(ErrCodeNetworkError,
				fmt.Sprintf("failed to create request: %v", reqErr))
		}
		httpReq.Header.Set("Content-Type", contentType)
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

		resp, err = c.httpClient.Do(httpReq)
		if err == nil && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			break
		}

		if err != nil {
			lastErr = err
		} else if attempt < c.maxRetries {
			resp.Body.Close()
		}
	}

	if err != nil {
		return "", NewTranscribeError(ErrCodeNetworkError,
			fmt.Sprintf("request failed: %v", lastErr))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewTranscribeError(ErrCodeServerError,
			fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		code := ErrCodeServerError
		if resp.StatusCode == http.StatusUnauthorized {
			code = ErrCodeInvalidAPIKey
		}
		return "", NewTranscribeError(code,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	return string(respBody), nil
}
