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

// DeviationHandler 处理偏差管理相关的API请求
type DeviationHandler struct {
	incident      *services.IncidentService      // 事件分析服务
	investigation *services.InvestigationService // 偏差调查服务
	review        *services.ReviewService        // 质量审核服务
	attachment    *services.AttachmentService    // 附件分析服务
	fileStorage   storage.Storage                // 文件存储服务
	logger        *logrus.Logger                 // 日志记录器
}

// NewDeviationHandler 创建偏差管理处理器
func NewDeviationHandler(
	incident *services.IncidentService,
	investigation *services.InvestigationService,
	review *services.ReviewService,
	attachment *services.AttachmentService,
	fileStorage storage.Storage,
) *DeviationHandler {
	return &DeviationHandler{
		incident:      incident,
		investigation: investigation,
		review:        review,
		attachment:    attachment,
		fileStorage:   fileStorage,
		logger:        middleware.GetLogger(),
	}
}

// AnalyzeIncident 分析事件描述
// POST /api/deviation/incident/analyze
func (h *DeviationHandler) AnalyzeIncident(c *gin.Context) {
	var req model.IncidentAnalyzeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	if req.Audio == nil && len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest, "需要提供语音或文档文件"))
		return
	}

	input := services.IncidentInput{}

	if req.Audio != nil {
		info, err := saveUpload(req.Audio, audioExtensions, h.fileStorage)
		if err != nil {
			h.logger.WithError(err).Warn("Invalid incident audio upload")
			middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
			return
		}
		input.AudioPath = info.Path
	}

	for _, doc := range req.Documents {
		info, err := saveUpload(doc, documentExtensions, h.fileStorage)
		if err != nil {
			h.logger.WithError(err).Warn("Invalid incident document upload")
			middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
			return
		}
		input.DocumentPaths = append(input.DocumentPaths, info.Path)
	}

	result, err := h.incident.Analyze(c.Request.Context(), input)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("事件分析失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// AnalyzeInvestigationVoice 从语音分析偏差调查
// POST /api/deviation/investigation/analyze
func (h *DeviationHandler) AnalyzeInvestigationVoice(c *gin.Context) {
	audioPath, ok := h.bindAudioUpload(c)
	if !ok {
		return
	}

	result, err := h.investigation.AnalyzeVoice(c.Request.Context(), audioPath)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("偏差调查分析失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// AnalyzeInvestigationText 从文本分析偏差调查
// POST /api/deviation/investigation/text
func (h *DeviationHandler) AnalyzeInvestigationText(c *gin.Context) {
	var req model.InvestigationTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	result, err := h.investigation.AnalyzeText(c.Request.Context(), req.Text)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("偏差调查分析失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// AnalyzeQualityReview 从语音生成质量审核和SME审核
// POST /api/deviation/quality-review/analyze
func (h *DeviationHandler) AnalyzeQualityReview(c *gin.Context) {
	audioPath, ok := h.bindAudioUpload(c)
	if !ok {
		return
	}

	result, err := h.review.Analyze(c.Request.Context(), audioPath)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("质量审核分析失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// AnalyzeAttachment 分析附件文档
// POST /api/deviation/attachment/analyze
// async=true时任务入队异步处理，立即返回任务ID
func (h *DeviationHandler) AnalyzeAttachment(c *gin.Context) {
	var req model.AttachmentAnalyzeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的查询参数"))
		return
	}

	header, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "未提供文档文件"))
		return
	}

	info, err := saveUpload(header, documentExtensions, h.fileStorage)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid attachment upload")
		middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
		return
	}

	if req.Async {
		recordID, taskID, err := h.attachment.AnalyzeAsync(c.Request.Context(), info.Path)
		if err != nil {
			middleware.HandleError(c, middleware.NewInternalError("附件分析任务入队失败", err))
			return
		}

		c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.AsyncAcceptedResponse{
			RecordID: recordID,
			TaskID:   taskID,
			Status:   "pending",
		}))
		return
	}

	result, err := h.attachment.Analyze(c.Request.Context(), info.Path)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("附件分析失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// bindAudioUpload 从audio表单字段读取并保存音频文件
func (h *DeviationHandler) bindAudioUpload(c *gin.Context) (string, bool) {
	header, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "未提供音频文件"))
		return "", false
	}

	info, err := saveUpload(header, audioExtensions, h.fileStorage)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid audio upload")
		middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
		return "", false
	}
	return info.Path, true
}
