package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskTranscribe 语音转写任务
	TaskTranscribe TaskType = "audio_transcribe"
	// TaskDocumentExtract 文档分块提取任务
	TaskDocumentExtract TaskType = "document_extract"
	// TaskIncidentAnalyze 事件分析任务
	TaskIncidentAnalyze TaskType = "incident_analyze"
	// TaskAttachmentAnalyze 附件分析任务
	TaskAttachmentAnalyze TaskType = "attachment_analyze"
	// TaskQTARevision 质量技术协议修订任务
	TaskQTARevision TaskType = "qta_revision"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	RecordID    string          `json:"record_id"`    // 关联的分析记录ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷数据，不同任务类型对应不同结构
	Result      json.RawMessage `json:"result"`       // 任务结果数据，不同任务类型对应不同结构
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// TranscribePayload 语音转写任务载荷
type TranscribePayload struct {
	FilePath string `json:"file_path"` // 音频文件存储路径
	FileName string `json:"file_name"` // 文件名
	Language string `json:"language"`  // 语言提示（可选）
}

// TranscribeResult 语音转写任务结果
type TranscribeResult struct {
	Transcript string `json:"transcript"` // 转写文本
	Chars      int    `json:"chars"`      // 字符数
	Error      string `json:"error"`      // 错误信息（如果有）
}

// DocumentExtractPayload 文档分块提取任务载荷
type DocumentExtractPayload struct {
	FilePath string `json:"file_path"` // 文件存储路径
	FileName string `json:"file_name"` // 文件名
	FileType string `json:"file_type"` // 文件类型
}

// DocumentExtractResult 文档分块提取任务结果
type DocumentExtractResult struct {
	Text        string `json:"text"`         // 提取的文本内容
	Strategy    string `json:"strategy"`     // 使用的分块策略
	ChunkCount  int    `json:"chunk_count"`  // 分块数量
	FailedCount int    `json:"failed_count"` // 提取失败的分块数
	Error       string `json:"error"`        // 错误信息（如果有）
}

// IncidentAnalyzePayload 事件分析任务载荷
type IncidentAnalyzePayload struct {
	RecordID   string `json:"record_id"`  // 分析记录ID
	Transcript string `json:"transcript"` // 事件描述文本（转写或提取结果）
}

// IncidentAnalyzeResult 事件分析任务结果
type IncidentAnalyzeResult struct {
	Analysis json.RawMessage `json:"analysis"` // 结构化分析结果
	Summary  string          `json:"summary"`  // 事件摘要
	Error    string          `json:"error"`    // 错误信息（如果有）
}

// AttachmentAnalyzePayload 附件分析任务载荷
type AttachmentAnalyzePayload struct {
	RecordID string `json:"record_id"` // 分析记录ID
	FilePath string `json:"file_path"` // 附件文件路径
	FileName string `json:"file_name"` // 文件名
	Text     string `json:"text"`      // 已提取的文档文本（如果有）
}

// AttachmentAnalyzeResult 附件分析任务结果
type AttachmentAnalyzeResult struct {
	Analysis json.RawMessage `json:"analysis"` // 附件归类结果
	Error    string          `json:"error"`    // 错误信息（如果有）
}

// QTARevisionPayload 质量技术协议修订任务载荷
type QTARevisionPayload struct {
	RecordID string `json:"record_id"` // 分析记录ID
	FilePath string `json:"file_path"` // 音频文件路径
	QTAID    string `json:"qta_id"`    // 协议编号
}

// QTARevisionResult 质量技术协议修订任务结果
type QTARevisionResult struct {
	Transcript   string   `json:"transcript"`    // 转写文本
	BulletPoints []string `json:"bullet_points"` // 修订要点
	Summary      string   `json:"summary"`       // 修订摘要
	Error        string   `json:"error"`         // 错误信息（如果有）
}

// TaskCallback 任务回调信息
type TaskCallback struct {
	TaskID    string          `json:"task_id"`   // 任务ID
	RecordID  string          `json:"record_id"` // 分析记录ID
	Status    TaskStatus      `json:"status"`    // 任务状态
	Type      TaskType        `json:"type"`      // 任务类型
	Result    json.RawMessage `json:"result"`    // 任务结果
	Error     string          `json:"error"`     // 错误信息
	Timestamp time.Time       `json:"timestamp"` // 回调时间戳
}
