package model

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 记录过滤参数的合法取值
var (
	validAnalysisTypes = map[string]struct{}{
		"incident":       {},
		"investigation":  {},
		"quality_review": {},
		"attachment":     {},
		"email":          {},
		"todo":           {},
		"qta_revision":   {},
	}

	validRecordStatuses = map[string]struct{}{
		"pending":    {},
		"processing": {},
		"completed":  {},
		"failed":     {},
	}
)

// RegisterValidators 注册自定义参数校验器
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("analysistype", func(fl validator.FieldLevel) bool {
		_, ok := validAnalysisTypes[fl.Field().String()]
		return ok
	})

	v.RegisterValidation("recordstatus", func(fl validator.FieldLevel) bool {
		_, ok := validRecordStatuses[fl.Field().String()]
		return ok
	})
}
