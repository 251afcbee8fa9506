package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/analysis"
	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/repository"
)

// EmailService 邮件生成服务
// 根据语音描述生成指定类型和语气的邮件
type EmailService struct {
	media    *MediaService
	analyzer *analysis.Analyzer
	repo     repository.RecordRepository
	logger   *logrus.Logger
}

// NewEmailService 创建邮件生成服务
func NewEmailService(media *MediaService, analyzer *analysis.Analyzer, repo repository.RecordRepository, logger *logrus.Logger) (*EmailService, error) {
	if media == nil || analyzer == nil || repo == nil {
		return nil, errors.New("media service, analyzer and repository are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &EmailService{
		media:    media,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger,
	}, nil
}

// EmailInput 邮件生成输入
type EmailInput struct {
	AudioPath string // 语音文件路径
	EmailType string // 邮件类型，如 notification / request / followup
	Tone      string // 语气，如 formal / friendly
	Recipient string // 收件人描述（可选）
}

// EmailResult 邮件生成结果
type EmailResult struct {
	RecordID   string                 `json:"record_id"`
	Transcript string                 `json:"transcript"`
	Email      *analysis.EmailContent `json:"email"`
}

// Generate 从语音生成邮件
func (s *EmailService) Generate(ctx context.Context, input EmailInput) (*EmailResult, error) {
	if input.AudioPath == "" {
		return nil, errors.New("audio path cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeEmail, models.SourceAudio, input.AudioPath)
	if err != nil {
		return nil, err
	}

	transcript, err := s.media.Transcribe(ctx, input.AudioPath)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	email, err := s.analyzer.GenerateEmail(ctx, transcript, input.EmailType, input.Tone, input.Recipient)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	result := &EmailResult{
		RecordID:   record.ID,
		Transcript: transcript,
		Email:      email,
	}

	if err := completeRecord(s.repo, s.logger, record.ID, transcript, result); err != nil {
		s.logger.WithError(err).WithField("record_id", record.ID).Error("Failed to persist email result")
	}

	return result, nil
}
