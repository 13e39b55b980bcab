package operations

import (
	"errors"
	"fmt"
)

// ErrorType classifies a run error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeIngestion        ErrorType = "ingestion"
	ErrorTypeNarration        ErrorType = "narration"
	ErrorTypeInsufficientData ErrorType = "insufficient_data"
	ErrorTypeOutput           ErrorType = "output"
	ErrorTypeCancellation     ErrorType = "cancellation"
	ErrorTypeFatal            ErrorType = "fatal"
)

// Sentinel validation causes, usable with errors.Is
var (
	ErrNoInput       = errors.New("no input folder or files given")
	ErrEmptyPrompt   = errors.New("analysis prompt is empty")
	ErrMissingAPIKey = errors.New("llm api key is not configured")
	ErrNoFilesFound  = errors.New("no spreadsheet files found")
)

// OperationError represents a run error raised in a given stage
type OperationError struct {
	Type    ErrorType `json:"type"`
	Stage   State     `json:"stage,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil && e.Cause.Error() != msg {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a blocking input error
func NewValidationError(cause error) *OperationError {
	return &OperationError{Type: ErrorTypeValidation, Stage: StateIdle, Message: cause.Error(), Cause: cause}
}

// NewNoFilesError reports an input location without spreadsheets
func NewNoFilesError(location string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeValidation,
		Stage:   StateScanning,
		Message: fmt.Sprintf("no .xls or .xlsx files found in %s", location),
		Cause:   ErrNoFilesFound,
	}
}

// NewOutputError reports a report write failure
func NewOutputError(cause error) *OperationError {
	return &OperationError{Type: ErrorTypeOutput, Stage: StateComposing, Message: "failed to write report", Cause: cause}
}

// NewCancellationError reports a run stopped by its context
func NewCancellationError(stage State, cause error) *OperationError {
	return &OperationError{Type: ErrorTypeCancellation, Stage: stage, Message: "analysis was cancelled", Cause: cause}
}

// NewFatalError wraps an unexpected failure
func NewFatalError(stage State, message string, cause error) *OperationError {
	return &OperationError{Type: ErrorTypeFatal, Stage: stage, Message: message, Cause: cause}
}

// GetErrorType returns the type of the error, or "" for nil
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeFatal
}

// IsValidation reports whether err blocked the run before any work
func IsValidation(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}
