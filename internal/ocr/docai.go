package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// TokenSource 获取访问令牌的函数类型
type TokenSource func(ctx context.Context) (string, error)

// DocAIConfig Document AI客户端配置
type DocAIConfig struct {
	ProjectID        string        // GCP项目ID
	Location         string        // 处理器所在区域，如us、eu
	ProcessorID      string        // OCR处理器ID
	ProcessorVersion string        // 可选的处理器版本
	Timeout          time.Duration // 请求超时时间
	MaxRetries       int           // 最大重试次数
	TokenSource      TokenSource   // 访问令牌来源
}

// DefaultDocAIConfig 返回默认配置
func DefaultDocAIConfig() *DocAIConfig {
	return &DocAIConfig{
		Location:   "us",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// DocAIClient Google Document AI OCR客户端
// 通过REST接口提交原始文档并返回识别文本
type DocAIClient struct {
	endpoint    string
	tokenSource TokenSource
	maxRetries  int
	httpClient  *http.Client
}

// processRequest Document AI处理请求体
type processRequest struct {
	RawDocument     rawDocument `json:"rawDocument"`
	SkipHumanReview bool        `json:"skipHumanReview"`
}

type rawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

// processResponse Document AI处理响应体
type processResponse struct {
	Document struct {
		Text string `json:"text"`
	} `json:"document"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewDocAIClient 创建新的Document AI客户端
func NewDocAIClient(cfg *DocAIConfig) (*DocAIClient, error) {
	if cfg == nil {
		cfg = DefaultDocAIConfig()
	}
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, NewChunkError(ErrCodeInvalidLimits,
			"document AI project ID and processor ID are required")
	}
	if cfg.TokenSource == nil {
		return nil, NewChunkError(ErrCodeInvalidLimits,
			"document AI token source is required")
	}

	location := cfg.Location
	if location == "" {
		location = "us"
	}

	// 构造处理器端点，可选地指定处理器版本
	endpoint := fmt.Sprintf(
		"https://%s-documentai.googleapis.com/v1/projects/%s/locations/%s/processors/%s",
		location, cfg.ProjectID, location, cfg.ProcessorID,
	)
	if cfg.ProcessorVersion != "" {
		endpoint += "/processorVersions/" + cfg.ProcessorVersion
	}
	endpoint += ":process"

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &DocAIClient{
		endpoint:    endpoint,
		tokenSource: cfg.TokenSource,
		maxRetries:  cfg.MaxRetries,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// newDocAIClientWithEndpoint 以显式端点创建客户端，用于测试
func newDocAIClientWithEndpoint(endpoint string, tokenSource TokenSource, maxRetries int) *DocAIClient {
	return &DocAIClient{
		endpoint:    endpoint,
		tokenSource: tokenSource,
		maxRetries:  maxRetries,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

// ExtractFile 提交文档文件进行OCR并返回识别文本
func (c *DocAIClient) ExtractFile(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", WrapChunkError(ErrCodeFileNotFound,
			fmt.Sprintf("cannot read document %s", filePath), err)
	}

	reqBody := processRequest{
		RawDocument: rawDocument{
			Content:  base64.StdEncoding.EncodeToString(data),
			MimeType: MimeType(filePath),
		},
		SkipHumanReview: true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", WrapChunkError(ErrCodeExtractFailed, "failed to marshal OCR request", err)
	}

	token, err := c.tokenSource(ctx)
	if err != nil {
		return "", WrapChunkError(ErrCodeExtractFailed, "failed to obtain access token", err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", WrapChunkError(ErrCodeExtractFailed, "OCR request cancelled", ctx.Err())
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		httpReq, reqErr := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.endpoint,
			bytes.NewReader(jsonData),
		)
		if reqErr != nil {
			return "", WrapChunkError(ErrCodeExtractFailed, "failed to create OCR request", reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+token)

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
		return "", WrapChunkError(ErrCodeExtractFailed,
			fmt.Sprintf("OCR request failed: %v", lastErr), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", WrapChunkError(ErrCodeExtractFailed, "failed to read OCR response", err)
	}

	var result processResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", WrapChunkError(ErrCodeExtractFailed, "failed to parse OCR response", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", NewChunkError(ErrCodeExtractFailed,
				fmt.Sprintf("document AI error: %s (%s)", result.Error.Message, result.Error.Status))
		}
		return "", NewChunkError(ErrCodeExtractFailed,
			fmt.Sprintf("document AI error (status %d): %s", resp.StatusCode, string(body)))
	}

	return result.Document.Text, nil
}
