package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator 基于 validate tag 的配置校验
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建验证器
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate 校验配置结构体，失败时返回 ErrValidationFailed 包装的可读信息
func (v *Validator) Validate(cfg any) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if err := v.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, formatValidationErrors(err))
	}
	return nil
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field '%s' is required", field))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be at least %s", field, fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be at most %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field '%s' failed validation '%s'", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
