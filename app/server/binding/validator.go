package binding

import (
	exprValidator "github.com/bytedance/go-tagexpr/v2/validator"
)

const defaultValidateTag = "vd"

// StructValidator 表示一个结构体验证器。
type StructValidator interface {
	ValidateStruct(any) error
	Engine() any
	ValidateTag() string
}

var defaultValidate = NewValidator(defaultValidateTag)

// NewValidator 创建使用给定标签的验证器，tag 为空时使用 "vd"。
func NewValidator(tag string) StructValidator {
	if tag == "" {
		tag = defaultValidateTag
	}
	return &validator{
		validateTag: tag,
		validate:    exprValidator.New(tag).SetErrorFactory(defaultValidateErrorFactory),
	}
}

// DefaultValidator 返回默认验证器。
func DefaultValidator() StructValidator {
	return defaultValidate
}

// MustRegValidateFunc 注册验证表达式中可用的函数，force 为真时覆盖同名函数。
func MustRegValidateFunc(funcName string, fn func(args ...any) error, force ...bool) {
	exprValidator.MustRegFunc(funcName, fn, force...)
}

var _ StructValidator = (*validator)(nil)

type validator struct {
	validateTag string
	validate    *exprValidator.Validator
}

// ValidateStruct 可接收任何类型，但只处理结构体或结构体指针。
func (v *validator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	return v.validate.Validate(obj)
}

// Engine 返回底层验证器。
func (v *validator) Engine() any {
	return v.validate
}

// ValidateTag 返回验证标签。
func (v *validator) ValidateTag() string {
	return v.validateTag
}

// ValidateError 是验证失败的字段及消息。
type ValidateError struct {
	FailPath, Msg string
}

func (e *ValidateError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "无效参数：" + e.FailPath
}

func defaultValidateErrorFactory(failPath, msg string) error {
	return &ValidateError{
		FailPath: failPath,
		Msg:      msg,
	}
}
