package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/api/middleware"
	"github.com/smartqms/ai-analysis-api/api/model"
	"github.com/smartqms/ai-analysis-api/internal/services"
	"github.com/smartqms/ai-analysis-api/pkg/storage"
)

// QTAHandler 处理质量技术协议修订相关的API请求
type QTAHandler struct {
	qta         *services.QTAService // 协议修订服务
	fileStorage storage.Storage      // 文件存储服务
	pdfDir      string               // 修订后PDF的输出目录
	logger      *logrus.Logger       // 日志记录器
}

// NewQTAHandler 创建协议修订处理器
func NewQTAHandler(qta *services.QTAService, fileStorage storage.Storage, pdfDir string) *QTAHandler {
	return &QTAHandler{
		qta:         qta,
		fileStorage: fileStorage,
		pdfDir:      pdfDir,
		logger:      middleware.GetLogger(),
	}
}

// ReviseVoice 处理语音修订要求
// POST /api/qta/revision/voice
// 可同时上传待修订的协议文档
func (h *QTAHandler) ReviseVoice(c *gin.Context) {
	audioHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "未提供音频文件"))
		return
	}

	audioInfo, err := saveUpload(audioHeader, audioExtensions, h.fileStorage)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid revision audio upload")
		middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
		return
	}

	documentPath := ""
	if docHeader, err := c.FormFile("document"); err == nil {
		docInfo, err := saveUpload(docHeader, documentExtensions, h.fileStorage)
		if err != nil {
			h.logger.WithError(err).Warn("Invalid revision document upload")
			middleware.HandleError(c, middleware.NewUploadError(err.Error(), err))
			return
		}
		documentPath = docInfo.Path
	}

	result, err := h.qta.ReviseVoice(c.Request.Context(), audioInfo.Path, documentPath)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("协议修订处理失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// UpdateDocument 按修订摘要改写协议文档
// POST /api/qta/revision/document
func (h *QTAHandler) UpdateDocument(c *gin.Context) {
	var req model.QTADocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的请求参数"))
		return
	}

	outputPDF := ""
	if req.RenderPDF {
		outputPDF = filepath.Join(h.pdfDir, fmt.Sprintf("qta_revision_%d.pdf", time.Now().UnixNano()))
	}

	result, err := h.qta.UpdateDocument(c.Request.Context(), req.Summary, req.DocumentText, outputPDF)
	if err != nil {
		middleware.HandleError(c, middleware.NewDependencyError("协议文档修订失败", err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}
