package repository

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smartqms/ai-analysis-api/internal/database"
	"github.com/smartqms/ai-analysis-api/internal/models"
)

// recordRepository 分析记录仓储实现
type recordRepository struct {
	db *gorm.DB // 数据库连接
}

// NewRecordRepository 创建分析记录仓储实例
func NewRecordRepository() RecordRepository {
	return &recordRepository{
		db: database.MustDB(),
	}
}

// NewRecordRepositoryWithDB 使用指定的数据库连接创建仓储实例
func NewRecordRepositoryWithDB(db *gorm.DB) RecordRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &recordRepository{db: db}
}

// Create 创建分析记录
func (r *recordRepository) Create(record *models.AnalysisRecord) error {
	if record.ID == "" {
		return errors.New("record ID cannot be empty")
	}
	return r.db.Create(record).Error
}

// Update 更新分析记录
func (r *recordRepository) Update(record *models.AnalysisRecord) error {
	if record.ID == "" {
		return errors.New("record ID cannot be empty")
	}
	return r.db.Save(record).Error
}

// GetByID 根据ID获取分析记录
func (r *recordRepository) GetByID(id string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// List 列出分析记录，支持分页和按类型、状态筛选
func (r *recordRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.AnalysisRecord, int64, error) {
	var records []*models.AnalysisRecord
	var total int64

	query := r.db.Model(&models.AnalysisRecord{})

	if filters != nil {
		if t, ok := filters["type"].(string); ok && t != "" {
			query = query.Where("type = ?", t)
		}
		if t, ok := filters["type"].(models.AnalysisType); ok && t != "" {
			query = query.Where("type = ?", string(t))
		}
		if s, ok := filters["status"].(string); ok && s != "" {
			query = query.Where("status = ?", s)
		}
		if s, ok := filters["status"].(models.RecordStatus); ok && s != "" {
			query = query.Where("status = ?", string(s))
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Delete 删除分析记录及其任务关联
func (r *recordRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_id = ?", id).Delete(&models.AnalysisTask{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.AnalysisRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrRecordNotFound
		}
		return nil
	})
}

// UpdateStatus 更新记录状态
func (r *recordRepository) UpdateStatus(id string, status models.RecordStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": time.Now(),
	}
	if status == models.StatusCompleted || status == models.StatusFailed {
		now := time.Now()
		updates["completed_at"] = &now
	}

	result := r.db.Model(&models.AnalysisRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// SetResult 写入转写文本和分析结果并标记完成
func (r *recordRepository) SetResult(id string, transcript string, result []byte) error {
	now := time.Now()
	updates := map[string]interface{}{
		"transcript":   transcript,
		"result":       datatypes.JSON(result),
		"status":       models.StatusCompleted,
		"updated_at":   now,
		"completed_at": &now,
	}

	res := r.db.Model(&models.AnalysisRecord{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// SaveTask 保存任务关联
func (r *recordRepository) SaveTask(task *models.AnalysisTask) error {
	if task.TaskID == "" {
		return errors.New("task ID cannot be empty")
	}
	return r.db.Create(task).Error
}

// GetTaskByID 根据任务ID获取任务关联
func (r *recordRepository) GetTaskByID(taskID string) (*models.AnalysisTask, error) {
	var task models.AnalysisTask
	err := r.db.Where("task_id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// UpdateTaskStatus 更新任务状态
func (r *recordRepository) UpdateTaskStatus(taskID, status, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": time.Now(),
	}
	if status == "completed" || status == "failed" {
		now := time.Now()
		updates["ended_at"] = &now
	}

	result := r.db.Model(&models.AnalysisTask{}).Where("task_id = ?", taskID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}
