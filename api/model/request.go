package model

import "mime/multipart"

// 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为20，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// IncidentAnalyzeRequest 事件分析请求
// 语音和文档至少提供一项，文档可多个
type IncidentAnalyzeRequest struct {
	Audio     *multipart.FileHeader   `form:"audio" binding:"omitempty"`
	Documents []*multipart.FileHeader `form:"documents" binding:"omitempty"`
}

// InvestigationTextRequest 文本偏差调查请求
type InvestigationTextRequest struct {
	Text string `json:"text" binding:"required"` // 调查描述文本
}

// AttachmentAnalyzeRequest 附件分析请求
type AttachmentAnalyzeRequest struct {
	Async bool `form:"async" binding:"omitempty"` // 是否异步处理
}

// EmailGenerateRequest 邮件生成请求
type EmailGenerateRequest struct {
	Audio     *multipart.FileHeader `form:"audio" binding:"required"`
	EmailType string                `form:"email_type" binding:"omitempty,oneof=general formal casual complaint request"`
	Tone      string                `form:"tone" binding:"omitempty,oneof=professional casual friendly formal"`
	Recipient string                `form:"recipient" binding:"omitempty"`
}

// TodoTextRequest 文本待办列表请求
type TodoTextRequest struct {
	Text string `json:"text" binding:"required"` // 待办描述文本
}

// QTADocumentRequest 协议文档修订请求
type QTADocumentRequest struct {
	Summary      string `json:"summary" binding:"required"`       // 修订要求摘要
	DocumentText string `json:"document_text" binding:"required"` // 协议文档原文
	RenderPDF    bool   `json:"render_pdf" binding:"omitempty"`   // 是否渲染修订后的PDF
}

// RecordListRequest 分析记录列表请求
type RecordListRequest struct {
	PaginationRequest
	Type   string `form:"type" binding:"omitempty,analysistype"`   // 按分析类型过滤
	Status string `form:"status" binding:"omitempty,recordstatus"` // 按状态过滤
}

// RecordIDRequest 记录ID路径参数
type RecordIDRequest struct {
	ID string `uri:"id" binding:"required"` // 记录ID
}

// TaskIDRequest 任务ID路径参数
type TaskIDRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}
