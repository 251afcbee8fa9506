package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisType 分析类型
type AnalysisType string

const (
	// TypeIncident 事件分析
	TypeIncident AnalysisType = "incident"
	// TypeInvestigation 偏差调查分析
	TypeInvestigation AnalysisType = "investigation"
	// TypeQualityReview 质量审核分析
	TypeQualityReview AnalysisType = "quality_review"
	// TypeAttachment 附件文档分析
	TypeAttachment AnalysisType = "attachment"
	// TypeEmail 邮件生成
	TypeEmail AnalysisType = "email"
	// TypeTodo 待办列表生成
	TypeTodo AnalysisType = "todo"
	// TypeQTARevision QTA修订
	TypeQTARevision AnalysisType = "qta_revision"
)

// RecordStatus 分析记录状态
type RecordStatus string

const (
	// StatusPending 等待处理
	StatusPending RecordStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing RecordStatus = "processing"
	// StatusCompleted 处理完成
	StatusCompleted RecordStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed RecordStatus = "failed"
)

// SourceKind 分析输入来源类型
type SourceKind string

const (
	// SourceAudio 音频输入
	SourceAudio SourceKind = "audio"
	// SourceDocument 文档输入
	SourceDocument SourceKind = "document"
	// SourceText 文本输入
	SourceText SourceKind = "text"
)

// AnalysisRecord 分析记录数据模型
// 保存每次分析的输入来源、转写文本和结构化结果
type AnalysisRecord struct {
	ID          string         `gorm:"primaryKey"`         // 记录ID，主键
	Type        AnalysisType   `gorm:"not null;index"`     // 分析类型
	Status      RecordStatus   `gorm:"not null;index"`     // 处理状态
	SourceKind  SourceKind     `gorm:"not null;size:20"`   // 输入来源类型
	FileName    string         `gorm:"size:255"`           // 源文件名
	FilePath    string         `gorm:"size:512"`           // 源文件存储路径
	FileSize    int64          `gorm:"not null;default:0"` // 源文件大小（字节）
	Transcript  string         `gorm:"type:text"`          // 转写或OCR文本
	Result      datatypes.JSON `gorm:"type:json"`          // 结构化分析结果
	Error       string         `gorm:"type:text"`          // 错误信息
	CreatedAt   time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt   time.Time      `gorm:"not null"`           // 更新时间
	CompletedAt *time.Time     `gorm:"index"`              // 完成时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (r *AnalysisRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.UpdatedAt = time.Now()
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (r *AnalysisRecord) BeforeUpdate(tx *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// AnalysisTask 异步分析任务关联模型
// 跟踪记录与队列任务的对应关系
type AnalysisTask struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"` // 主键ID
	RecordID  string         `gorm:"not null;index"`           // 分析记录ID
	TaskID    string         `gorm:"not null;uniqueIndex"`     // 队列任务ID
	TaskType  string         `gorm:"not null;size:50"`         // 任务类型
	Status    string         `gorm:"not null;size:20"`         // 任务状态
	CreatedAt time.Time      `gorm:"not null"`                 // 创建时间
	UpdatedAt time.Time      `gorm:"not null"`                 // 更新时间
	StartedAt *time.Time     `gorm:""`                         // 开始时间
	EndedAt   *time.Time     `gorm:""`                         // 结束时间
	Error     string         `gorm:"type:text"`                // 错误信息
	Result    datatypes.JSON `gorm:"type:json"`                // 任务结果
	Retries   int            `gorm:"default:0"`                // 重试次数
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (t *AnalysisTask) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (t *AnalysisTask) BeforeUpdate(tx *gorm.DB) (err error) {
	t.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (AnalysisTask) TableName() string {
	return "analysis_tasks"
}
