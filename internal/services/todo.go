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

// TodoService 待办列表生成服务
// 从语音或文本描述中提取可执行的待办事项
type TodoService struct {
	media    *MediaService
	analyzer *analysis.Analyzer
	repo     repository.RecordRepository
	logger   *logrus.Logger
}

// NewTodoService 创建待办列表生成服务
func NewTodoService(media *MediaService, analyzer *analysis.Analyzer, repo repository.RecordRepository, logger *logrus.Logger) (*TodoService, error) {
	if media == nil || analyzer == nil || repo == nil {
		return nil, errors.New("media service, analyzer and repository are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &TodoService{
		media:    media,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger,
	}, nil
}

// TodoResult 待办列表生成结果
type TodoResult struct {
	RecordID   string   `json:"record_id"`
	Transcript string   `json:"transcript"`
	Items      []string `json:"items"`
}

// GenerateFromAudio 从语音生成待办列表
func (s *TodoService) GenerateFromAudio(ctx context.Context, audioPath string) (*TodoResult, error) {
	if audioPath == "" {
		return nil, errors.New("audio path cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeTodo, models.SourceAudio, audioPath)
	if err != nil {
		return nil, err
	}

	transcript, err := s.media.Transcribe(ctx, audioPath)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	return s.generate(ctx, record.ID, transcript)
}

// GenerateFromText 从文本生成待办列表
func (s *TodoService) GenerateFromText(ctx context.Context, text string) (*TodoResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeTodo, models.SourceText, "")
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, record.ID, text)
}

func (s *TodoService) generate(ctx context.Context, recordID, text string) (*TodoResult, error) {
	items, err := s.analyzer.GenerateTodoList(ctx, text)
	if err != nil {
		failRecord(s.repo, s.logger, recordID, err)
		return nil, err
	}

	result := &TodoResult{
		RecordID:   recordID,
		Transcript: text,
		Items:      items,
	}

	if err := completeRecord(s.repo, s.logger, recordID, text, result); err != nil {
		s.logger.WithError(err).WithField("record_id", recordID).Error("Failed to persist todo result")
	}

	return result, nil
}
