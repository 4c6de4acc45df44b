package handler

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"spaxio-scheduled/internal/model"
	"spaxio-scheduled/internal/syllabus"
)

// RegisterValidators 向 gin 的绑定校验器注册自定义规则
//
//	weekday        Mon … Sun，大小写不敏感
//	calendar_date  YYYY-MM-DD，须为真实存在的日期
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("绑定校验器类型不受支持: %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("weekday", validateWeekday); err != nil {
		return err
	}
	return v.RegisterValidation("calendar_date", validateCalendarDate)
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, ok := syllabus.CanonicalDay(fl.Field().String())
	return ok
}

func validateCalendarDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !syllabus.IsValidCalendarDate(s) {
		return false
	}
	_, err := model.ParseDate(s)
	return err == nil
}
