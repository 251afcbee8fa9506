package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/api/middleware"
	"github.com/smartqms/ai-analysis-api/api/model"
	"github.com/smartqms/ai-analysis-api/internal/services"
	"github.com/smartqms/ai-analysis-api/pkg/storage"
)

// GenerateHandler 处理邮件和待办列表生成请求
type GenerateHandler struct {
	email       *services.EmailService // 邮件生成服务
	todo        *services.TodoService  // 待办列表生成服务
	fileStorage storage.Storage        // 文件存储服务
	logger      *logrus.Logger         // 日志记录器
}

// NewGenerateHandler 创建生成类处理器
func NewGenerateHandler(email *services.EmailService, todo *services.TodoService, fileStorage storage.Storage) *GenerateHandler {
	return &GenerateHandler{
		email:       email,
		todo:        todo,
		fileStorage: fileStorage,
		logger:      middleware.GetLogger(),
	}
}

// GenerateEmail 从语音生成邮件
// POST /api/email/generate
func (h *GenerateHandler) GenerateEmail(c *gin.Context) {
	var req model.EmailGenerateRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid email generate request")
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	info, err := saveUpload(req.Audio, audioExtensions, h.fileStorage)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid email audio upload")
		middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
		return
	}

	// 未指定时使用默认的类型和语气
	if req.EmailType == "" {
		req.EmailType = "general"
	}
	if req.Tone == "" {
		req.Tone = "professional"
	}

	result, err := h.email.Generate(c.Request.Context(), services.EmailInput{
		AudioPath: info.Path,
		EmailType: req.EmailType,
		Tone:      req.Tone,
		Recipient: req.Recipient,
	})
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("邮件生成失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// GenerateTodo 从语音生成待办列表
// POST /api/todo/generate
func (h *GenerateHandler) GenerateTodo(c *gin.Context) {
	header, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "未提供音频文件"))
		return
	}

	info, err := saveUpload(header, audioExtensions, h.fileStorage)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid todo audio upload")
		middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
		return
	}

	result, err := h.todo.GenerateFromAudio(c.Request.Context(), info.Path)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("待办列表生成失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// GenerateTodoFromText 从文本生成待办列表
// POST /api/todo/text
func (h *GenerateHandler) GenerateTodoFromText(c *gin.Context) {
	var req model.TodoTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	result, err := h.todo.GenerateFromText(c.Request.Context(), req.Text)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("待办列表生成失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}
