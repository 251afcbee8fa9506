package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/analysis"
	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/repository"
)

// ReviewService 质量审核服务
// 根据语音描述同时生成质量审核和SME审核两个视角的评估
type ReviewService struct {
	media    *MediaService
	analyzer *analysis.Analyzer
	repo     repository.RecordRepository
	logger   *logrus.Logger
}

// NewReviewService 创建质量审核服务
func NewReviewService(media *MediaService, analyzer *analysis.Analyzer, repo repository.RecordRepository, logger *logrus.Logger) (*ReviewService, error) {
	if media == nil || analyzer == nil || repo == nil {
		return nil, errors.New("media service, analyzer and repository are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &ReviewService{
		media:    media,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger,
	}, nil
}

// ReviewResult 质量审核结果
type ReviewResult struct {
	RecordID      string                  `json:"record_id"`
	Transcript    string                  `json:"transcript"`
	QualityReview *analysis.QualityReview `json:"quality_review"`
	SMEReview     *analysis.SMEReview     `json:"sme_review"`
}

// Analyze 生成质量审核和SME审核
func (s *ReviewService) Analyze(ctx context.Context, audioPath string) (*ReviewResult, error) {
	if audioPath == "" {
		return nil, errors.New("audio path cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeQualityReview, models.SourceAudio, audioPath)
	if err != nil {
		return nil, err
	}

	transcript, err := s.media.Transcribe(ctx, audioPath)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	quality, err := s.analyzer.QualityReview(ctx, transcript)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	sme, err := s.analyzer.SMEReview(ctx, transcript)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	result := &ReviewResult{
		RecordID:      record.ID,
		Transcript:    transcript,
		QualityReview: quality,
		SMEReview:     sme,
	}

	if err := completeRecord(s.repo, s.logger, record.ID, transcript, result); err != nil {
		s.logger.WithError(err).WithField("record_id", record.ID).Error("Failed to persist review result")
	}

	return result, nil
}
