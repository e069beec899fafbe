package domain

import (
	"errors"
	"fmt"
)

// ErrInternal — ошибка хранилища или инфраструктуры.
// Детали логируются на месте, наружу уходит только этот sentinel.
var ErrInternal = errors.New("internal error")

// ValidationError — неверный ввод или недопустимый переход состояния.
//
// Ожидаемая ситуация, которую исправляет вызывающая сторона,
// поэтому как сбой не логируется.
type ValidationError struct {
	// Field — поле, к которому относится ошибка (может быть пустым).
	Field string

	// Message — человекочитаемое описание.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создаёт ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError — запрошенная сущность не существует.
type NotFoundError struct {
	// Entity — тип сущности: "run", "request", "team member" и т.д.
	Entity string

	// ID — идентификатор, который искали.
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFoundError создаёт NotFoundError.
func NewNotFoundError(entity string, id fmt.Stringer) *NotFoundError {
	e := &NotFoundError{Entity: entity}
	if id != nil {
		e.ID = id.String()
	}
	return e
}

// IsValidation проверяет, является ли err (или обёрнутая в неё) ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound проверяет, является ли err (или обёрнутая в неё) NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
