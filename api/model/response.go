package model

import (
	"encoding/json"
	"time"

	"github.com/smartqms/ai-analysis-api/internal/models"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// RecordInfo 分析记录信息
type RecordInfo struct {
	ID          string          `json:"id"`                     // 记录ID
	Type        string          `json:"type"`                   // 分析类型
	Status      string          `json:"status"`                 // 处理状态
	SourceKind  string          `json:"source_kind"`            // 输入来源类型
	FileName    string          `json:"filename,omitempty"`     // 源文件名
	FileSize    int64           `json:"file_size,omitempty"`    // 源文件大小
	Transcript  string          `json:"transcript,omitempty"`   // 转写或OCR文本
	Result      json.RawMessage `json:"result,omitempty"`       // 结构化分析结果
	Error       string          `json:"error,omitempty"`        // 错误信息
	CreatedAt   time.Time       `json:"created_at"`             // 创建时间
	CompletedAt *time.Time      `json:"completed_at,omitempty"` // 完成时间
}

// NewRecordInfo 将分析记录转换为响应信息
func NewRecordInfo(record *models.AnalysisRecord) RecordInfo {
	return RecordInfo{
		ID:          record.ID,
		Type:        string(record.Type),
		Status:      string(record.Status),
		SourceKind:  string(record.SourceKind),
		FileName:    record.FileName,
		FileSize:    record.FileSize,
		Transcript:  record.Transcript,
		Result:      json.RawMessage(record.Result),
		Error:       record.Error,
		CreatedAt:   record.CreatedAt,
		CompletedAt: record.CompletedAt,
	}
}

// RecordListResponse 分析记录列表响应
type RecordListResponse struct {
	Total    int64        `json:"total"`     // 总记录数
	Page     int          `json:"page"`      // 当前页码
	PageSize int          `json:"page_size"` // 每页大小
	Records  []RecordInfo `json:"records"`   // 记录列表
}

// TaskStatusResponse 异步任务状态响应
type TaskStatusResponse struct {
	TaskID      string          `json:"task_id"`                // 任务ID
	RecordID    string          `json:"record_id"`              // 关联的分析记录ID
	Type        string          `json:"type"`                   // 任务类型
	Status      string          `json:"status"`                 // 任务状态
	Result      json.RawMessage `json:"result,omitempty"`       // 任务结果
	Error       string          `json:"error,omitempty"`        // 错误信息
	CreatedAt   time.Time       `json:"created_at"`             // 创建时间
	StartedAt   *time.Time      `json:"started_at,omitempty"`   // 开始时间
	CompletedAt *time.Time      `json:"completed_at,omitempty"` // 完成时间
}

// AsyncAcceptedResponse 异步任务受理响应
type AsyncAcceptedResponse struct {
	RecordID string `json:"record_id"` // 分析记录ID
	TaskID   string `json:"task_id"`   // 队列任务ID
	Status   string `json:"status"`    // 初始状态
}
