package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartqms/ai-analysis-api/internal/models"
	"github.com/smartqms/ai-analysis-api/internal/repository"
)

// beginRecord 创建一条待处理的分析记录
func beginRecord(repo repository.RecordRepository, logger *logrus.Logger, analysisType models.AnalysisType, kind models.SourceKind, filePath string) (*models.AnalysisRecord, error) {
	record := &models.AnalysisRecord{
		ID:         uuid.New().String(),
		Type:       analysisType,
		Status:     models.StatusProcessing,
		SourceKind: kind,
	}

	if filePath != "" {
		record.FilePath = filePath
		record.FileName = filepath.Base(filePath)
		if stat, err := os.Stat(filePath); err == nil {
			record.FileSize = stat.Size()
		}
	}

	if err := repo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to create analysis record: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"record_id": record.ID,
		"type":      analysisType,
		"source":    kind,
	}).Info("Analysis record created")

	return record, nil
}

// completeRecord 序列化结果并标记记录完成
func completeRecord(repo repository.RecordRepository, logger *logrus.Logger, recordID, transcript string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	if err := repo.SetResult(recordID, transcript, data); err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}

	logger.WithField("record_id", recordID).Info("Analysis record completed")
	return nil
}

// failRecord 标记记录失败，失败本身不再向上传播
func failRecord(repo repository.RecordRepository, logger *logrus.Logger, recordID string, cause error) {
	if err := repo.UpdateStatus(recordID, models.StatusFailed, cause.Error()); err != nil {
		logger.WithError(err).WithField("record_id", recordID).Error("Failed to mark record as failed")
	}
}
