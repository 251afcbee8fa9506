package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/analysis"
	"github.com/smartqms/ai-analysis-api/internal/convert"
	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/repository"
)

// QTAService 质量技术协议修订服务
// 负责把语音修订要求整理成要点和摘要，并把修订应用到协议文档
type QTAService struct {
	media     *MediaService
	analyzer  *analysis.Analyzer
	converter *convert.Converter
	repo      repository.RecordRepository
	logger    *logrus.Logger
}

// NewQTAService 创建质量技术协议修订服务
func NewQTAService(media *MediaService, analyzer *analysis.Analyzer, repo repository.RecordRepository, logger *logrus.Logger) (*QTAService, error) {
	if media == nil || analyzer == nil || repo == nil {
		return nil, errors.New("media service, analyzer and repository are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &QTAService{
		media:     media,
		analyzer:  analyzer,
		converter: convert.NewConverter(),
		repo:      repo,
		logger:    logger,
	}, nil
}

// QTAVoiceResult 语音修订处理结果
type QTAVoiceResult struct {
	RecordID     string   `json:"record_id"`
	Transcript   string   `json:"transcript"`
	BulletPoints []string `json:"bullet_points"`
	Summary      string   `json:"summary"`
	DocumentText string   `json:"document_text,omitempty"` // 待修订协议文档的提取文本（如果提供了文档）
}

// ReviseVoice 处理语音修订要求
// 可同时上传待修订的协议文档，其文本一并返回供后续修订使用
func (s *QTAService) ReviseVoice(ctx context.Context, audioPath, documentPath string) (*QTAVoiceResult, error) {
	if audioPath == "" {
		return nil, errors.New("audio path cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeQTARevision, models.SourceAudio, audioPath)
	if err != nil {
		return nil, err
	}

	transcript, err := s.media.Transcribe(ctx, audioPath)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	bullets, err := s.analyzer.BulletPoints(ctx, transcript)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	summary, err := s.analyzer.SummarizeRevision(ctx, bullets)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	// 协议文档提取失败不中断语音修订流程
	var documentText string
	if documentPath != "" {
		documentText, err = s.media.ExtractDocument(ctx, documentPath)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"record_id": record.ID,
				"document":  documentPath,
			}).Warn("Failed to extract agreement document, continuing without it")
			documentText = ""
		}
	}

	result := &QTAVoiceResult{
		RecordID:     record.ID,
		Transcript:   transcript,
		BulletPoints: bullets,
		Summary:      summary,
		DocumentText: documentText,
	}

	if err := completeRecord(s.repo, s.logger, record.ID, transcript, result); err != nil {
		s.logger.WithError(err).WithField("record_id", record.ID).Error("Failed to persist revision result")
	}

	return result, nil
}

// QTADocumentResult 文档修订结果
type QTADocumentResult struct {
	RecordID    string `json:"record_id"`
	UpdatedText string `json:"updated_text"`
	PDFPath     string `json:"pdf_path,omitempty"`
}

// UpdateDocument 按修订摘要改写协议文档文本
// outputPDF非空时把改写结果渲染成PDF文件
func (s *QTAService) UpdateDocument(ctx context.Context, summary, documentText, outputPDF string) (*QTADocumentResult, error) {
	if summary == "" {
		return nil, errors.New("revision summary cannot be empty")
	}
	if documentText == "" {
		return nil, errors.New("document text cannot be empty")
	}

	record, err := beginRecord(s.repo, s.logger, models.TypeQTARevision, models.SourceText, "")
	if err != nil {
		return nil, err
	}

	updated, err := s.analyzer.ApplyRevision(ctx, summary, documentText)
	if err != nil {
		failRecord(s.repo, s.logger, record.ID, err)
		return nil, err
	}

	var pdfPath string
	if outputPDF != "" {
		pdfPath, err = s.converter.TextToPDF(updated, outputPDF)
		if err != nil {
			s.logger.WithError(err).WithField("record_id", record.ID).Warn("Failed to render revised document to PDF")
			pdfPath = ""
		}
	}

	result := &QTADocumentResult{
		RecordID:    record.ID,
		UpdatedText: updated,
		PDFPath:     pdfPath,
	}

	if err := completeRecord(s.repo, s.logger, record.ID, documentText, result); err != nil {
		s.logger.WithError(err).WithField("record_id", record.ID).Error("Failed to persist document revision result")
	}

	return result, nil
}
