package errors

import (
	"errors"
	"fmt"
)

// Category groups errors by subsystem
type Category string

const (
	CategoryLLM      Category = "llm"
	CategoryTool     Category = "tool"
	CategoryEngine   Category = "engine"
	CategoryBudget   Category = "budget"
	CategoryApproval Category = "approval"
	CategoryConfig   Category = "config"
	CategorySession  Category = "session"
)

// VibeError is the structured error type for the project
type VibeError struct {
	Category  Category
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *VibeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

func (e *VibeError) Unwrap() error {
	return e.Cause
}

func (e *VibeError) Is(target error) bool {
	t, ok := target.(*VibeError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Category == t.Category
}

// IsRetryable checks whether an error is retryable.
// Returns false for nil errors or non-VibeError types.
func IsRetryable(err error) bool {
	var ve *VibeError
	if errors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// GetCategory extracts the error category from a VibeError.
// Returns an empty Category for nil errors or non-VibeError types.
func GetCategory(err error) Category {
	var ve *VibeError
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ""
}

// IsCode reports whether err is a VibeError carrying the given code.
// Callers of the turn pipeline use this to react differently to budget
// aborts, timeouts, and loop-limit errors.
func IsCode(err error, code string) bool {
	var ve *VibeError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

// GetUserMessage returns a user-friendly message for the error.
// For VibeError it returns the Message field; for other errors it returns Error().
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *VibeError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
