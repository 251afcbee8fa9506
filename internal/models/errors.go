package models

import "errors"

var (
	// ErrRecordNotFound 分析记录不存在错误
	ErrRecordNotFound = errors.New("analysis record not found")

	// ErrTaskNotFound 分析任务不存在错误
	ErrTaskNotFound = errors.New("analysis task not found")

	// ErrInvalidRecordStatus 无效的记录状态错误
	ErrInvalidRecordStatus = errors.New("invalid record status")
)
