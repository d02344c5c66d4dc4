package service

import "fmt"

// 工具失败的机器可读错误码，随 tool_result 帧原样下发给客户端
const (
	ErrCodePhaseViolation   = "phase_violation"
	ErrCodeSchemaValidation = "schema_validation_error"
	ErrCodePersistence      = "persistence_error"
	ErrCodeModel            = "model_error"
	ErrCodeDomain           = "domain_error"
)

// ToolError 单个工具调用的局部失败，不中断本轮其余工具
type ToolError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"` // 校验失败时的字段路径
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewPhaseViolation(tool ToolName, phase Phase) *ToolError {
	return &ToolError{
		Code:    ErrCodePhaseViolation,
		Message: fmt.Sprintf("工具 %s 在 %s 阶段不可用", tool, phase),
	}
}

func NewSchemaValidationError(field, message string) *ToolError {
	return &ToolError{Code: ErrCodeSchemaValidation, Field: field, Message: message}
}

func NewPersistenceError(err error) *ToolError {
	return &ToolError{Code: ErrCodePersistence, Message: err.Error()}
}

func NewDomainError(err error) *ToolError {
	return &ToolError{Code: ErrCodeDomain, Message: err.Error()}
}
