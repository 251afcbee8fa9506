package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// TaskCallbackHandler 任务回调处理函数类型
// 处理特定类型任务的回调，返回处理结果
type TaskCallbackHandler func(ctx context.Context, task *Task, result json.RawMessage) error

// CallbackProcessor 回调处理器
// 负责接收和处理任务回调
type CallbackProcessor struct {
	queue     Queue                            // 任务队列
	handlers  map[TaskType]TaskCallbackHandler // 任务类型对应的处理函数
	defaultFn TaskCallbackHandler              // 默认处理函数
	logger    *logrus.Logger                   // 日志记录器
}

// NewCallbackProcessor 创建新的回调处理器
func NewCallbackProcessor(queue Queue, logger *logrus.Logger) *CallbackProcessor {
	if logger == nil {
		logger = logrus.New()
	}

	return &CallbackProcessor{
		queue:    queue,
		handlers: make(map[TaskType]TaskCallbackHandler),
		logger:   logger,
	}
}

// RegisterHandler 注册特定类型的任务处理函数
func (p *CallbackProcessor) RegisterHandler(taskType TaskType, handler TaskCallbackHandler) {
	p.handlers[taskType] = handler
	p.logger.Infof("Registered handler for task type: %s", taskType)
}

// SetDefaultHandler 设置默认处理函数
// 未注册处理函数的任务类型会落到默认处理函数
func (p *CallbackProcessor) SetDefaultHandler(handler TaskCallbackHandler) {
	p.defaultFn = handler
}

// ProcessCallback 处理回调数据
func (p *CallbackProcessor) ProcessCallback(ctx context.Context, callbackData []byte) error {
	// 解析回调数据
	var callback TaskCallback
	if err := json.Unmarshal(callbackData, &callback); err != nil {
		return fmt.Errorf("failed to unmarshal callback data: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"task_id":   callback.TaskID,
		"record_id": callback.RecordID,
		"status":    callback.Status,
		"type":      callback.Type,
	}).Info("Processing task callback")

	// 获取任务
	task, err := p.queue.GetTask(ctx, callback.TaskID)
	if err != nil {
		p.logger.WithError(err).Errorf("Failed to get task: %s", callback.TaskID)
		return fmt.Errorf("failed to get task: %w", err)
	}

	// 更新任务状态
	err = p.queue.UpdateTaskStatus(ctx, callback.TaskID, callback.Status, callback.Result, callback.Error)
	if err != nil {
		p.logger.WithError(err).Errorf("Failed to update task status: %s", callback.TaskID)
		return fmt.Errorf("failed to update task status: %w", err)
	}

	// 通知状态更新
	if err := p.queue.NotifyTaskUpdate(ctx, callback.TaskID); err != nil {
		// 继续处理，不返回错误
	}

	// 如果任务失败，记录错误但不调用处理函数
	if callback.Status == StatusFailed {
		p.logger.WithFields(logrus.Fields{
			"task_id": callback.TaskID,
			"error":   callback.Error,
		}).Error("Task failed")
		return nil
	}

	// 找到对应的处理函数
	handler, exists := p.handlers[callback.Type]
	if !exists {
		handler = p.defaultFn
		p.logger.WithField("type", callback.Type).Info("No handler registered for task type: " + string(callback.Type))
	}

	// 如果没有处理函数，直接返回
	if handler == nil {
		p.logger.Debug("No handler available for task type: " + string(callback.Type))
		return nil
	}

	// 调用处理函数
	p.logger.Debugf("Calling handler for task: %s (type: %s)", task.ID, task.Type)
	return handler(ctx, task, callback.Result)
}

// CallbackRequest HTTP回调请求结构体
type CallbackRequest struct {
	TaskID    string          `json:"task_id"`   // 任务ID
	RecordID  string          `json:"record_id"` // 分析记录ID
	Status    TaskStatus      `json:"status"`    // 任务状态
	Type      TaskType        `json:"type"`      // 任务类型
	Result    json.RawMessage `json:"result"`    // 任务结果
	Error     string          `json:"error"`     // 错误信息
	Timestamp string          `json:"timestamp"` // 时间戳
}

// CallbackResponse HTTP回调响应结构体
type CallbackResponse struct {
	Success   bool   `json:"success"`           // 是否成功
	Message   string `json:"message,omitempty"` // 消息
	TaskID    string `json:"task_id"`           // 任务ID
	Timestamp string `json:"timestamp"`         // 时间戳
}

// HandleCallback 处理HTTP回调请求
func (p *CallbackProcessor) HandleCallback(ctx context.Context, req *CallbackRequest) (*CallbackResponse, error) {
	// 记录返回的回调信息
	p.logger.WithFields(logrus.Fields{
		"task_id":   req.TaskID,
		"record_id": req.RecordID,
		"status":    req.Status,
		"type":      req.Type,
	}).Info("Received callback request")

	// 使用不同的时间格式解析时间戳，以兼容外部AI服务的时间格式
	var timestamp time.Time
	if req.Timestamp != "" {
		formats := []string{
			time.RFC3339,                 // 2006-01-02T15:04:05Z07:00
			"2006-01-02T15:04:05Z",       // 带Z的UTC时间
			"2006-01-02T15:04:05.999999", // 带毫秒不带时区
			"2006-01-02T15:04:05",        // 不带时区
		}

		var parseErr error
		for _, format := range formats {
			timestamp, parseErr = time.Parse(format, req.Timestamp)
			if parseErr == nil {
				break
			}
		}

		if parseErr != nil {
			// 如果解析失败，使用当前时间并记录警告
			p.logger.WithFields(logrus.Fields{
				"timestamp": req.Timestamp,
				"error":     parseErr,
			}).Warn("Failed to parse timestamp, using current time")
			timestamp = time.Now()
		}
	} else {
		// 如果没有提供时间戳，使用当前时间
		timestamp = time.Now()
	}

	// 创建回调对象
	callback := &TaskCallback{
		TaskID:    req.TaskID,
		RecordID:  req.RecordID,
		Status:    req.Status,
		Type:      req.Type,
		Result:    req.Result,
		Error:     req.Error,
		Timestamp: timestamp,
	}

	callbackData, err := json.Marshal(callback)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal callback data")
		return &CallbackResponse{
			Success:   false,
			Message:   fmt.Sprintf("failed to marshal callback: %v", err),
			TaskID:    req.TaskID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, err
	}

	// 处理回调
	err = p.ProcessCallback(ctx, callbackData)
	if err != nil {
		p.logger.WithError(err).Error("Failed to process callback")
		return &CallbackResponse{
			Success:   false,
			Message:   err.Error(),
			TaskID:    req.TaskID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, err
	}

	return &CallbackResponse{
		Success:   true,
		Message:   "Task callback processed successfully",
		TaskID:    req.TaskID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// DefaultTranscribeHandler 默认的语音转写回调处理函数
// 转写完成后创建事件分析任务
func DefaultTranscribeHandler(ctx context.Context, queue Queue, logger *logrus.Logger) TaskCallbackHandler {
	return func(ctx context.Context, task *Task, result json.RawMessage) error {
		// 解析结果
		var transcribeResult TranscribeResult
		if err := json.Unmarshal(result, &transcribeResult); err != nil {
			logger.WithError(err).Error("Failed to unmarshal transcribe result")
			return fmt.Errorf("failed to unmarshal transcribe result: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"task_id":   task.ID,
			"record_id": task.RecordID,
			"chars":     transcribeResult.Chars,
		}).Info("Audio transcription completed")

		// 如果转写内容为空，不创建后续任务
		if transcribeResult.Transcript == "" {
			logger.Warn("Empty transcript, skipping incident analysis task")
			return nil
		}

		// 创建事件分析任务
		analyzePayload := IncidentAnalyzePayload{
			RecordID:   task.RecordID,
			Transcript: transcribeResult.Transcript,
		}

		// 将任务加入队列
		taskID, err := queue.Enqueue(ctx, TaskIncidentAnalyze, task.RecordID, analyzePayload)
		if err != nil {
			logger.WithError(err).Error("Failed to enqueue incident analysis task")
			return fmt.Errorf("failed to enqueue incident analysis task: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"record_id":       task.RecordID,
			"analyze_task_id": taskID,
		}).Info("Created incident analysis task")

		return nil
	}
}

// DefaultDocumentExtractHandler 默认的文档提取回调处理函数
// 提取完成后创建附件分析任务
func DefaultDocumentExtractHandler(ctx context.Context, queue Queue, logger *logrus.Logger) TaskCallbackHandler {
	return func(ctx context.Context, task *Task, result json.RawMessage) error {
		// 解析结果
		var extractResult DocumentExtractResult
		if err := json.Unmarshal(result, &extractResult); err != nil {
			logger.WithError(err).Error("Failed to unmarshal document extract result")
			return fmt.Errorf("failed to unmarshal document extract result: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"task_id":      task.ID,
			"record_id":    task.RecordID,
			"strategy":     extractResult.Strategy,
			"chunk_count":  extractResult.ChunkCount,
			"failed_count": extractResult.FailedCount,
		}).Info("Document extraction completed")

		// 如果文档内容为空，不创建后续任务
		if extractResult.Text == "" {
			logger.Warn("Empty document text, skipping attachment analysis task")
			return nil
		}

		// 创建附件分析任务
		analyzePayload := AttachmentAnalyzePayload{
			RecordID: task.RecordID,
			Text:     extractResult.Text,
		}

		// 将任务加入队列
		taskID, err := queue.Enqueue(ctx, TaskAttachmentAnalyze, task.RecordID, analyzePayload)
		if err != nil {
			logger.WithError(err).Error("Failed to enqueue attachment analysis task")
			return fmt.Errorf("failed to enqueue attachment analysis task: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"record_id":       task.RecordID,
			"analyze_task_id": taskID,
		}).Info("Created attachment analysis task")

		return nil
	}
}

// DefaultIncidentAnalyzeHandler 默认的事件分析回调处理函数
// 事件分析是流程的最后一步，处理完成后记录结果
func DefaultIncidentAnalyzeHandler(ctx context.Context, queue Queue, logger *logrus.Logger) TaskCallbackHandler {
	return func(ctx context.Context, task *Task, result json.RawMessage) error {
		// 解析结果
		var analyzeResult IncidentAnalyzeResult
		if err := json.Unmarshal(result, &analyzeResult); err != nil {
			logger.WithError(err).Error("Failed to unmarshal incident analysis result")
			return fmt.Errorf("failed to unmarshal incident analysis result: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"task_id":   task.ID,
			"record_id": task.RecordID,
			"summary":   analyzeResult.Summary,
		}).Info("Incident analysis completed")

		// 结果持久化由服务层注册的处理函数完成，此处仅提供回调框架

		return nil
	}
}

// DefaultAttachmentAnalyzeHandler 默认的附件分析回调处理函数
func DefaultAttachmentAnalyzeHandler(ctx context.Context, queue Queue, logger *logrus.Logger) TaskCallbackHandler {
	return func(ctx context.Context, task *Task, result json.RawMessage) error {
		// 解析结果
		var analyzeResult AttachmentAnalyzeResult
		if err := json.Unmarshal(result, &analyzeResult); err != nil {
			logger.WithError(err).Error("Failed to unmarshal attachment analysis result")
			return fmt.Errorf("failed to unmarshal attachment analysis result: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"task_id":   task.ID,
			"record_id": task.RecordID,
		}).Info("Attachment analysis completed")

		// 结果持久化由服务层注册的处理函数完成，此处仅提供回调框架

		return nil
	}
}

// RegisterDefaultHandlers 注册默认的任务处理函数
func (p *CallbackProcessor) RegisterDefaultHandlers(queue Queue) {
	p.RegisterHandler(TaskTranscribe, DefaultTranscribeHandler(context.Background(), queue, p.logger))
	p.RegisterHandler(TaskDocumentExtract, DefaultDocumentExtractHandler(context.Background(), queue, p.logger))
	p.RegisterHandler(TaskIncidentAnalyze, DefaultIncidentAnalyzeHandler(context.Background(), queue, p.logger))
	p.RegisterHandler(TaskAttachmentAnalyze, DefaultAttachmentAnalyzeHandler(context.Background(), queue, p.logger))

	p.logger.Info("Registered default task handlers")
}

func (p *CallbackProcessor) GetRegisteredHandlerTypes() map[TaskType]bool {
	result := make(map[TaskType]bool)
	for handlerType := range p.handlers {
		result[handlerType] = true
	}
	return result
}
