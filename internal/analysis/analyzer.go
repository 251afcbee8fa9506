package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/llm"
)

// Analyzer 基于大模型的领域分析器
// 负责构造提示词、调用模型并解析为结构化结果
type Analyzer struct {
	client    llm.Client // 分析类任务使用的客户端
	genClient llm.Client // 生成类任务使用的客户端，默认与client相同
	logger    *logrus.Logger
}

// AnalyzerOption 分析器配置选项
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger 设置日志记录器
func WithAnalyzerLogger(logger *logrus.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithGenerationClient 为邮件、待办、摘要等生成类任务设置单独的客户端
func WithGenerationClient(client llm.Client) AnalyzerOption {
	return func(a *Analyzer) {
		if client != nil {
			a.genClient = client
		}
	}
}

// NewAnalyzer 创建新的分析器
func NewAnalyzer(client llm.Client, opts ...AnalyzerOption) (*Analyzer, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client cannot be nil")
	}
	a := &Analyzer{
		client:    client,
		genClient: client,
		logger:    logrus.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AnalyzeIncident 对事件转写文本做结构化分析
func (a *Analyzer) AnalyzeIncident(ctx context.Context, transcript string) (*IncidentAnalysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript cannot be empty")
	}

	resp, err := a.client.Generate(ctx, incidentAnalysisPrompt(transcript))
	if err != nil {
		return nil, fmt.Errorf("incident analysis request failed: %w", err)
	}

	if !validIncidentText(resp.Text) {
		a.logger.WithField("response_length", len(resp.Text)).
			Warn("Incident analysis response missing required markers")
		return nil, fmt.Errorf("incident analysis response is not in expected format")
	}

	result := parseIncidentResponse(resp.Text)
	if !validIncident(result) {
		return nil, fmt.Errorf("incident analysis result lacks meaningful content")
	}
	return result, nil
}

// SummarizeIncident 生成事件的简要摘要
func (a *Analyzer) SummarizeIncident(ctx context.Context, transcript string) (string, error) {
	resp, err := a.genClient.Generate(ctx, incidentSummaryPrompt(transcript))
	if err != nil {
		return "", fmt.Errorf("incident summary request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// AnalyzeInvestigation 对调查上下文做结构化分析
func (a *Analyzer) AnalyzeInvestigation(ctx context.Context, investigationContext string) (*InvestigationReport, error) {
	if strings.TrimSpace(investigationContext) == "" {
		return nil, fmt.Errorf("investigation context cannot be empty")
	}

	resp, err := a.client.Generate(ctx, investigationPrompt(investigationContext))
	if err != nil {
		return nil, fmt.Errorf("investigation analysis request failed: %w", err)
	}

	block, ok := extractJSONBlock(resp.Text)
	if !ok {
		return nil, fmt.Errorf("investigation response contains no JSON object")
	}

	var report InvestigationReport
	if err := json.Unmarshal([]byte(block), &report); err != nil {
		return nil, fmt.Errorf("failed to parse investigation response: %w", err)
	}
	return &report, nil
}

// QualityReview 对调查转写文本做质量审核分析
func (a *Analyzer) QualityReview(ctx context.Context, transcript string) (*QualityReview, error) {
	resp, err := a.client.Generate(ctx, qualityReviewPrompt(transcript))
	if err != nil {
		return nil, fmt.Errorf("quality review request failed: %w", err)
	}
	return parseQualityReviewResponse(resp.Text), nil
}

// SMEReview 对调查转写文本做领域专家审核分析
func (a *Analyzer) SMEReview(ctx context.Context, transcript string) (*SMEReview, error) {
	resp, err := a.client.Generate(ctx, smeReviewPrompt(transcript))
	if err != nil {
		return nil, fmt.Errorf("SME review request failed: %w", err)
	}
	return parseSMEReviewResponse(resp.Text), nil
}

// AnalyzeAttachment 从OCR文本中提取附件分析字段
func (a *Analyzer) AnalyzeAttachment(ctx context.Context, extractedText string) (*AttachmentAnalysis, error) {
	if strings.TrimSpace(extractedText) == "" {
		return nil, fmt.Errorf("extracted text cannot be empty")
	}

	resp, err := a.client.Generate(ctx, attachmentPrompt(extractedText))
	if err != nil {
		return nil, fmt.Errorf("attachment analysis request failed: %w", err)
	}
	return parseAttachmentResponse(resp.Text), nil
}

// SummarizeDocument 生成文档文本的摘要
func (a *Analyzer) SummarizeDocument(ctx context.Context, extractedText string) (string, error) {
	resp, err := a.genClient.Generate(ctx, documentSummaryPrompt(extractedText))
	if err != nil {
		return "", fmt.Errorf("document summary request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// GenerateEmail 根据转写文本生成邮件
func (a *Analyzer) GenerateEmail(ctx context.Context, transcript, emailType, tone, recipient string) (*EmailContent, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript cannot be empty")
	}

	resp, err := a.genClient.Generate(ctx, emailPrompt(transcript, emailType, tone, recipient),
		llm.WithSystemPrompt(emailSystemPrompt),
		llm.WithGenerateMaxTokens(1000),
		llm.WithGenerateTemperature(0.7),
	)
	if err != nil {
		return nil, fmt.Errorf("email generation request failed: %w", err)
	}
	return parseEmailResponse(resp.Text), nil
}

// GenerateTodoList 根据文本生成待办列表
func (a *Analyzer) GenerateTodoList(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("input text cannot be empty")
	}

	resp, err := a.genClient.Generate(ctx, todoPrompt(text),
		llm.WithGenerateMaxTokens(500),
		llm.WithGenerateTemperature(0.3),
	)
	if err != nil {
		return nil, fmt.Errorf("todo generation request failed: %w", err)
	}

	items := parseTodoResponse(resp.Text)
	if len(items) == 0 {
		return nil, fmt.Errorf("no todo items could be parsed from response")
	}
	return items, nil
}

// BulletPoints 将转写文本整理为要点列表
func (a *Analyzer) BulletPoints(ctx context.Context, text string) ([]string, error) {
	resp, err := a.genClient.Generate(ctx, bulletPointsPrompt(text),
		llm.WithSystemPrompt(bulletPointsSystemPrompt),
		llm.WithGenerateMaxTokens(1000),
		llm.WithGenerateTemperature(0.3),
	)
	if err != nil {
		return nil, fmt.Errorf("bullet points request failed: %w", err)
	}

	points := parseBulletPoints(resp.Text)
	if len(points) == 0 {
		return nil, fmt.Errorf("no bullet points could be parsed from response")
	}
	return points, nil
}

// SummarizeRevision 将要点列表归纳为修订摘要
func (a *Analyzer) SummarizeRevision(ctx context.Context, bulletPoints []string) (string, error) {
	if len(bulletPoints) == 0 {
		return "", fmt.Errorf("bullet points cannot be empty")
	}

	resp, err := a.genClient.Generate(ctx, revisionSummaryPrompt(bulletPoints))
	if err != nil {
		return "", fmt.Errorf("revision summary request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// ApplyRevision 将修订摘要应用到原文档文本，返回改写后的文档
func (a *Analyzer) ApplyRevision(ctx context.Context, summary, documentText string) (string, error) {
	if summary == "" {
		return "", fmt.Errorf("revision summary cannot be empty")
	}
	if documentText == "" {
		return "", fmt.Errorf("document text cannot be empty")
	}

	resp, err := a.genClient.Generate(ctx, applyRevisionPrompt(summary, documentText))
	if err != nil {
		return "", fmt.Errorf("document revision request failed: %w", err)
	}

	updated := strings.TrimSpace(resp.Text)
	if updated == "" {
		return "", fmt.Errorf("empty document returned from revision")
	}
	return updated, nil
}
