package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/analysis"
	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/repository"
)

// IncidentService 事件分析服务
// 负责把语音描述和佐证文档汇总成结构化的事件分析
type IncidentService struct {
	media    *MediaService             // 媒体处理服务
	analyzer *analysis.Analyzer        // 分析器
	repo     repository.RecordRepository
	logger   *logrus.Logger
}

// NewIncidentService 创建事件分析服务
func NewIncidentService(media *MediaService, analyzer *analysis.Analyzer, repo repository.RecordRepository, logger *logrus.Logger) (*IncidentService, error) {
	if media == nil || analyzer == nil || repo == nil {
		return nil, errors.New("media service, analyzer and repository are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &IncidentService{
		media:    media,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger,
	}, nil
}

// IncidentInput 事件分析输入
// 语音和文档至少提供一项
type IncidentInput struct {
	AudioPath     string   // 语音描述文件路径
	DocumentPaths []string // 佐证文档路径列表
}

// IncidentResult 事件分析结果
type IncidentResult struct {
	RecordID        string                     `json:"record_id"`
	Transcript      string                     `json:"transcript"`
	Summary         string                     `json:"summary"`
	Analysis        *analysis.IncidentAnalysis `json:"analysis"`
	FailedDocuments []string                   `json:"failed_documents,omitempty"`
}

// Analyze 分析事件
// 文档提取失败不会中断整体流程，失败的文档记录在结果中
func (s *IncidentService) Analyze(ctx context.Context, input IncidentInput) (*IncidentResult, error) {
	if input.AudioPath == "" && len(input.DocumentPaths) == 0 {
		return nil, errors.New("at least one audio or document input is required")
	}

	kind := models.SourceAudio
	primaryPath := input.AudioPath
	if input.AudioPath == "" {
		kind = models.SourceDocument
		primaryPath = input.DocumentPaths[0]
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeIncident, kind, primaryPath)
	if err != nil {
		return nil, err
	}

	var parts []string
	var failedDocs []string

	if input.AudioPath != "" {
		transcript, err := s.media.Transcribe(ctx, input.AudioPath)
		if err != nil {
			failRecord(s.repo, s.logger, record.ID, err)
			return nil, err
		}
		parts = append(parts, transcript)
	}

	for _, docPath := range input.DocumentPaths {
		text, err := s.media.ExtractDocument(ctx, docPath)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"record_id": record.ID,
				"document":  docPath,
			}).Warn("Failed to extract supporting document, continuing without it")
			failedDocs = append(failedDocs, docPath)
			continue
		}
		parts = append(parts, text)
	}

	combined := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if combined == "" {
		err := errors.New("no usable text could be obtained from the provided inputs")
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	// 摘要失败不中断分析
	summary, err := s.analyzer.SummarizeIncident(ctx, combined)
	if err != nil {
		s.logger.WithError(err).WithField("record_id", record.ID).Warn("Incident summary failed, continuing without summary")
		summary = ""
	}

	incident, err := s.analyzer.AnalyzeIncident(ctx, combined)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	result := &IncidentResult{
		RecordID:        record.ID,
		Transcript:      combined,
		Summary:         summary,
		Analysis:        incident,
		FailedDocuments: failedDocs,
	}

	if err := completeRecord(s.repo, s.logger, record.ID, combined, result); err != nil {
		s.logger.WithError(err).WithField("record_id", record.ID).Error("Failed to persist incident result")
	}

	return result, nil
}
