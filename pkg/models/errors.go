package models

import (
	"errors"
	"fmt"
)

// Ошибки ядра расчёта. Проверяются через errors.Is.
var (
	ErrInvalidCoordinate         = errors.New("invalid coordinate")
	ErrInvalidContext            = errors.New("invalid safety context")
	ErrInvalidTransportMode      = errors.New("invalid transport mode")
	ErrBatchSizeExceeded         = errors.New("batch size exceeded")
	ErrEmptyBatch                = errors.New("batch is empty")
	ErrUpstreamSignalUnavailable = errors.New("upstream signal unavailable")
	ErrPersistenceWriteFailed    = errors.New("persistence write failed")
	ErrRouteNotFound             = errors.New("route not found")
	ErrNoRoutes                  = errors.New("no route options")
)

// FieldError описывает ошибку валидации конкретного поля запроса
type FieldError struct {
	Field   string `json:"field"`   // Имя поля в запросе
	Message string `json:"message"` // Описание ошибки
}

// ValidationError собирает ошибки по полям и оборачивает исходную причину
type ValidationError struct {
	Cause  error
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s: %s %s", e.Cause, e.Fields[0].Field, e.Fields[0].Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError создает ошибку валидации для одного поля
func NewValidationError(cause error, field, message string) *ValidationError {
	return &ValidationError{
		Cause:  cause,
		Fields: []FieldError{{Field: field, Message: message}},
	}
}
