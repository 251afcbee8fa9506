package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/analysis"
	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/repository"
	"github.com/smartqms/ai-analysis-api/pkg/taskqueue"
)

// AttachmentService 附件分析服务
// 对偏差佐证文档进行OCR提取和归类，支持同步和队列异步两种方式
type AttachmentService struct {
	media    *MediaService
	analyzer *analysis.Analyzer
	repo     repository.RecordRepository
	queue    taskqueue.Queue // 可选，用于异步处理
	logger   *logrus.Logger
}

// AttachmentOption 附件服务配置选项
type AttachmentOption func(*AttachmentService)

// WithAttachmentQueue 设置任务队列，启用异步处理
func WithAttachmentQueue(queue taskqueue.Queue) AttachmentOption {
	return func(s *AttachmentService) {
		s.queue = queue
	}
}

// NewAttachmentService 创建附件分析服务
func NewAttachmentService(media *MediaService, analyzer *analysis.Analyzer, repo repository.RecordRepository, logger *logrus.Logger, opts ...AttachmentOption) (*AttachmentService, error) {
	if media == nil || analyzer == nil || repo == nil {
		return nil, errors.New("media service, analyzer and repository are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	srv := &AttachmentService{
		media:    media,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv, nil
}

// AttachmentResult 附件分析结果
type AttachmentResult struct {
	RecordID string                       `json:"record_id"`
	FileName string                       `json:"file_name"`
	Summary  string                       `json:"summary"`
	Analysis *analysis.AttachmentAnalysis `json:"analysis"`
}

// Analyze 同步分析附件文档
func (s *AttachmentService) Analyze(ctx context.Context, filePath string) (*AttachmentResult, error) {
	if filePath == "" {
		return nil, errors.New("file path cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeAttachment, models.SourceDocument, filePath)
	if err != nil {
		return nil, err
	}

	result, err := s.process(ctx, record.ID, filePath)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	return result, nil
}

// AnalyzeAsync 将附件分析任务加入队列
// 返回记录ID和任务ID，调用方可通过任务接口查询进度
func (s *AttachmentService) AnalyzeAsync(ctx context.Context, filePath string) (string, string, error) {
	if filePath == "" {
		return "", "", errors.New("file path cannot be empty")
	}
	if s.queue == nil {
		return "", "", errors.New("task queue is not configured")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeAttachment, models.SourceDocument, filePath)
	if err != nil {
		return "", "", err
	}

	payload := taskqueue.AttachmentAnalyzePayload{
		RecordID: record.ID,
		FilePath: filePath,
		FileName: filepath.Base(filePath),
	}

	taskID, err := s.queue.Enqueue(ctx, taskqueue.TaskAttachmentAnalyze, record.ID, payload)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return "", "", fmt.Errorf("failed to enqueue attachment analysis: %w", err)
	}

	task := &models.AnalysisTask{
		RecordID: record.ID,
		TaskID:   taskID,
		TaskType: string(taskqueue.TaskAttachmentAnalyze),
		Status:   string(taskqueue.StatusPending),
	}
	if err := s.repo.SaveTask(task); err != nil {
		s.logger.WithError(err).WithField("task_id", taskID).Error("Failed to save task association")
	}

	s.logger.WithFields(logrus.Fields{
		"record_id": record.ID,
		"task_id":   taskID,
	}).Info("Attachment analysis task enqueued")

	return record.ID, taskID, nil
}

// process 执行附件提取和归类，并持久化结果
func (s *AttachmentService) process(ctx context.Context, recordID, filePath string) (*AttachmentResult, error) {
	text, err := s.media.ExtractDocument(ctx, filePath)
	if err != nil {
		return nil, err
	}

	attachment, err := s.analyzer.AnalyzeAttachment(ctx, text)
	if err != nil {
		return nil, err
	}

	// 文档摘要失败不影响归类结果
	summary, err := s.analyzer.SummarizeDocument(ctx, text)
	if err != nil {
		s.logger.WithError(err).WithField("record_id", recordID).Warn("Document summary failed, continuing without summary")
		summary = ""
	}

	result := &AttachmentResult{
		RecordID: recordID,
		FileName: filepath.Base(filePath),
		Summary:  summary,
		Analysis: attachment,
	}

	if err := completeRecord(s.repo, s.logger, recordID, text, result); err != nil {
		s.logger.WithError(err).WithField("record_id", recordID).Error("Failed to persist attachment result")
	}

	return result, nil
}

// TaskHandler 返回桥接到本服务的队列任务处理器
func (s *AttachmentService) TaskHandler() taskqueue.Handler {
	return &attachmentTaskHandler{service: s}
}

// attachmentTaskHandler 附件分析队列任务处理器
type attachmentTaskHandler struct {
	service *AttachmentService
}

func (h *attachmentTaskHandler) ProcessTask(ctx context.Context, task *taskqueue.Task) error {
	var payload taskqueue.AttachmentAnalyzePayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return fmt.Errorf("invalid attachment task payload: %w", err)
	}

	if err := h.service.repo.UpdateTaskStatus(task.ID, string(taskqueue.StatusProcessing), ""); err != nil {
		h.service.logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to update task status")
	}

	result, err := h.service.process(ctx, payload.RecordID, payload.FilePath)
	if err != nil {
		failRecord(h.service.repo, h.service.logger, payload.RecordID, err)
		if updateErr := h.service.repo.UpdateTaskStatus(task.ID, string(taskqueue.StatusFailed), err.Error()); updateErr != nil {
			h.service.logger.WithError(updateErr).WithField("task_id", task.ID).Warn("Failed to update task status")
		}
		return err
	}

	// 把结果同步回队列，供任务查询接口读取
	resultData, err := json.Marshal(taskqueue.AttachmentAnalyzeResult{Analysis: mustMarshal(result)})
	if err == nil && h.service.queue != nil {
		if updateErr := h.service.queue.UpdateTaskStatus(ctx, task.ID, taskqueue.StatusCompleted, json.RawMessage(resultData), ""); updateErr != nil {
			h.service.logger.WithError(updateErr).WithField("task_id", task.ID).Warn("Failed to update queue task result")
		}
	}

	if err := h.service.repo.UpdateTaskStatus(task.ID, string(taskqueue.StatusCompleted), ""); err != nil {
		h.service.logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to update task status")
	}

	return nil
}

func (h *attachmentTaskHandler) GetTaskTypes() []taskqueue.TaskType {
	return []taskqueue.TaskType{taskqueue.TaskAttachmentAnalyze}
}

// mustMarshal 序列化结果，失败时返回空对象
func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
