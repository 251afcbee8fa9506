package services

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/repository"
)

// HistoryService 分析历史查询服务
type HistoryService struct {
	repo   repository.RecordRepository
	logger *logrus.Logger
}

// NewHistoryService 创建分析历史查询服务
func NewHistoryService(repo repository.RecordRepository, logger *logrus.Logger) (*HistoryService, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &HistoryService{repo: repo, logger: logger}, nil
}

// ListRecords 分页列出分析记录
// filters支持type和status两个筛选键
func (s *HistoryService) ListRecords(offset, limit int, filters map[string]interface{}) ([]*models.AnalysisRecord, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(offset, limit, filters)
}

// GetRecord 获取单条分析记录
func (s *HistoryService) GetRecord(id string) (*models.AnalysisRecord, error) {
	if id == "" {
		return nil, errors.New("record id cannot be empty")
	}
	return s.repo.GetByID(id)
}

// GetTask 获取任务关联信息
func (s *HistoryService) GetTask(taskID string) (*models.AnalysisTask, error) {
	if taskID == "" {
		return nil, errors.New("task id cannot be empty")
	}
	return s.repo.GetTaskByID(taskID)
}
