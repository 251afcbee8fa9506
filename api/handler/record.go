package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/api/middleware"
	"github.com/smartqms/ai-analysis-api/api/model"
	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/services"
	"github.com/smartqms/ai-analysis-api/pkg/taskqueue"
)

// RecordHandler 处理分析记录和任务查询请求
type RecordHandler struct {
	history   *services.HistoryService     // 历史记录服务
	queue     taskqueue.Queue              // 任务队列，未配置时任务状态从数据库读取
	processor *taskqueue.CallbackProcessor // 任务回调处理器，队列启用时创建
	logger    *logrus.Logger               // 日志记录器
}

// RecordOption 记录处理器配置选项
type RecordOption func(*RecordHandler)

// WithRecordQueue 设置任务队列
func WithRecordQueue(queue taskqueue.Queue) RecordOption {
	return func(h *RecordHandler) {
		h.queue = queue
	}
}

// NewRecordHandler 创建记录查询处理器
func NewRecordHandler(history *services.HistoryService, opts ...RecordOption) *RecordHandler {
	h := &RecordHandler{
		history: history,
		logger:  middleware.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.queue != nil {
		h.processor = taskqueue.NewCallbackProcessor(h.queue, h.logger)
		h.processor.RegisterDefaultHandlers(h.queue)
	}
	return h
}

// ListRecords 分页查询分析记录
// GET /api/records
func (h *RecordHandler) ListRecords(c *gin.Context) {
	var req model.RecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("无效的查询参数"))
		return
	}

	filters := make(map[string]interface{})
	if req.Type != "" {
		filters["type"] = req.Type
	}
	if req.Status != "" {
		filters["status"] = req.Status
	}

	page := req.GetPage()
	pageSize := req.GetPageSize()

	records, total, err := h.history.ListRecords((page-1)*pageSize, pageSize, filters)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list analysis records")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError, "查询分析记录失败"))
		return
	}

	infos := make([]model.RecordInfo, len(records))
	for i, record := range records {
		infos[i] = model.NewRecordInfo(record)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.RecordListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Records:  infos,
	}))
}

// GetRecord 查询单条分析记录
// GET /api/records/:id
func (h *RecordHandler) GetRecord(c *gin.Context) {
	var req model.RecordIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的记录ID"))
		return
	}

	record, err := h.history.GetRecord(req.ID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			middleware.HandleError(c, middleware.NewNotFoundError("未找到分析记录"))
			return
		}
		h.logger.WithError(err).WithField("record_id", req.ID).Error("Failed to get analysis record")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError, "查询分析记录失败"))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewRecordInfo(record)))
}

// GetTask 查询异步任务状态
// GET /api/tasks/:id
// 优先从队列读取实时状态，队列不可用时退回数据库记录
func (h *RecordHandler) GetTask(c *gin.Context) {
	var req model.TaskIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的任务ID"))
		return
	}

	if h.queue != nil {
		task, err := h.queue.GetTask(c.Request.Context(), req.ID)
		if err == nil {
			c.JSON(http.StatusOK, model.NewSuccessResponse(model.TaskStatusResponse{
				TaskID:      task.ID,
				RecordID:    task.RecordID,
				Type:        string(task.Type),
				Status:      string(task.Status),
				Result:      json.RawMessage(task.Result),
				Error:       task.Error,
				CreatedAt:   task.CreatedAt,
				StartedAt:   task.StartedAt,
				CompletedAt: task.CompletedAt,
			}))
			return
		}
		if !errors.Is(err, taskqueue.ErrTaskNotFound) {
			h.logger.WithError(err).WithField("task_id", req.ID).Warn("Failed to read task from queue, falling back to database")
		}
	}

	task, err := h.history.GetTask(req.ID)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			middleware.HandleError(c, middleware.NewNotFoundError("未找到任务"))
			return
		}
		h.logger.WithError(err).WithField("task_id", req.ID).Error("Failed to get task")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError, "查询任务失败"))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.TaskStatusResponse{
		TaskID:      task.TaskID,
		RecordID:    task.RecordID,
		Type:        task.TaskType,
		Status:      task.Status,
		Result:      json.RawMessage(task.Result),
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.EndedAt,
	}))
}

// TaskCallback 接收外部处理服务的任务回调
// POST /api/tasks/callback
func (h *RecordHandler) TaskCallback(c *gin.Context) {
	if h.processor == nil {
		c.JSON(http.StatusServiceUnavailable, model.NewErrorResponse(
			http.StatusServiceUnavailable, "任务队列未启用"))
		return
	}

	var req taskqueue.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的回调数据"))
		return
	}

	resp, err := h.processor.HandleCallback(c.Request.Context(), &req)
	if err != nil {
		h.logger.WithError(err).WithField("task_id", req.TaskID).Error("Failed to process task callback")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError, "处理任务回调失败"))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}
