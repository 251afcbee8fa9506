package repository

import "github.com/smartqms/ai-analysis-api/internal/models"

// RecordRepository 分析记录仓储接口
// 负责分析记录和任务关联的存储与检索
type RecordRepository interface {
	// Create 创建分析记录
	Create(record *models.AnalysisRecord) error

	// Update 更新分析记录
	Update(record *models.AnalysisRecord) error

	// GetByID 根据ID获取分析记录
	GetByID(id string) (*models.AnalysisRecord, error)

	// List 列出分析记录，支持分页和筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.AnalysisRecord, int64, error)

	// Delete 删除分析记录
	Delete(id string) error

	// UpdateStatus 更新记录状态
	UpdateStatus(id string, status models.RecordStatus, errorMsg string) error

	// SetResult 写入分析结果并标记完成
	SetResult(id string, transcript string, result []byte) error

	// SaveTask 保存任务关联
	SaveTask(task *models.AnalysisTask) error

	// GetTaskByID 根据任务ID获取任务关联
	GetTaskByID(taskID string) (*models.AnalysisTask, error)

	// UpdateTaskStatus 更新任务状态
	UpdateTaskStatus(taskID, status, errorMsg string) error
}
