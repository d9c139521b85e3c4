package ai

import (
	"errors"
	"fmt"
)

// ErrInvalidInput - пустая роль, пустой список роадмапов и т.п.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound - ни один из запрошенных роадмапов не принадлежит пользователю
var ErrNotFound = errors.New("not found")

// MalformedResponseError - из ответа модели не удалось извлечь валидный JSON.
// Сырой текст сохраняется для диагностики.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	return "malformed AI response: no valid JSON structure recovered"
}

// GenerationError - провайдер недоступен, таймаут или ответ не прошел
// валидацию обязательных полей. Ничего не сохраняется, вызов можно повторить.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
