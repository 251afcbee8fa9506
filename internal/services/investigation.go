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

// InvestigationService 偏差调查服务
// 根据事件描述生成结构化的调查报告
type InvestigationService struct {
	media    *MediaService
	analyzer *analysis.Analyzer
	repo     repository.RecordRepository
	logger   *logrus.Logger
}

// NewInvestigationService 创建偏差调查服务
func NewInvestigationService(media *MediaService, analyzer *analysis.Analyzer, repo repository.RecordRepository, logger *logrus.Logger) (*InvestigationService, error) {
	if media == nil || analyzer == nil || repo == nil {
		return nil, errors.New("media service, analyzer and repository are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &InvestigationService{
		media:    media,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger,
	}, nil
}

// InvestigationResult 偏差调查结果
type InvestigationResult struct {
	RecordID   string                        `json:"record_id"`
	Transcript string                        `json:"transcript"`
	Report     *analysis.InvestigationReport `json:"report"`
}

// AnalyzeVoice 从语音描述生成调查报告
func (s *InvestigationService) AnalyzeVoice(ctx context.Context, audioPath string) (*InvestigationResult, error) {
	if audioPath == "" {
		return nil, errors.New("audio path cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeInvestigation, models.SourceAudio, audioPath)
	if err != nil {
		return nil, err
	}

	transcript, err := s.media.Transcribe(ctx, audioPath)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	return s.analyze(ctx, record.ID, transcript)
}

// AnalyzeText 从已有文本生成调查报告
func (s *InvestigationService) AnalyzeText(ctx context.Context, text string) (*InvestigationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("investigation text cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeInvestigation, models.SourceText, "")
	if err != nil {
		return nil, err
	}

	return s.analyze(ctx, record.ID, text)
}

func (s *InvestigationService) analyze(ctx context.Context, recordID, transcript string) (*InvestigationResult, error) {
	report, err := s.analyzer.AnalyzeInvestigation(ctx, transcript)
	if err != nil {
		failRecord(s.repo, s.logger, recordID, err)
		return nil, err
	}

	result := &InvestigationResult{
		RecordID:   recordID,
		Transcript: transcript,
		Report:     report,
	}

	if err := completeRecord(s.repo, s.logger, recordID, transcript, result); err != nil {
		s.logger.WithError(err).WithField("record_id", recordID).Error("Failed to persist investigation result")
	}

	return result, nil
}
