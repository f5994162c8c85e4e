package backup

import (
	"errors"
	"fmt"
)

// RunError represents errors that occur during a backup run
type RunError struct {
	Severity  ErrorSeverity          `json:"severity"`
	Component ErrorComponent         `json:"component"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s/%s: %s (caused by: %v)", e.Severity, e.Component, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Severity, e.Component, e.Message)
}

// Unwrap returns the underlying cause error
func (e *RunError) Unwrap() error {
	return e.Cause
}

// ErrorSeverity classifies how an error affects the run as a whole
type ErrorSeverity string

const (
	// SeverityFatal aborts the run; nothing useful can continue
	SeverityFatal ErrorSeverity = "FATAL"
	// SeverityTarget fails one target; the run continues with the rest
	SeverityTarget ErrorSeverity = "TARGET"
	// SeverityBestEffort is logged and otherwise ignored
	SeverityBestEffort ErrorSeverity = "BEST_EFFORT"
	// SeverityRetention marks a retention sweep problem; backups already
	// uploaded are unaffected
	SeverityRetention ErrorSeverity = "RETENTION"
)

// ErrorComponent identifies the subsystem an error originated in
type ErrorComponent string

const (
	ComponentSnapshot      ErrorComponent = "SNAPSHOT"
	ComponentArchive       ErrorComponent = "ARCHIVE"
	ComponentStorage       ErrorComponent = "STORAGE"
	ComponentValidation    ErrorComponent = "VALIDATION"
	ComponentConfiguration ErrorComponent = "CONFIGURATION"
	ComponentPreflight     ErrorComponent = "PREFLIGHT"
	ComponentRun           ErrorComponent = "RUN"
)

// NewRunError creates a new RunError
func NewRunError(severity ErrorSeverity, component ErrorComponent, message string, cause error) *RunError {
	return &RunError{
		Severity:  severity,
		Component: component,
		Message:   message,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *RunError) WithContext(key string, value interface{}) *RunError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors

func NewFatalError(component ErrorComponent, message string, cause error) *RunError {
	return NewRunError(SeverityFatal, component, message, cause)
}

func NewSnapshotError(message string, cause error) *RunError {
	return NewRunError(SeverityTarget, ComponentSnapshot, message, cause)
}

func NewArchiveError(message string, cause error) *RunError {
	return NewRunError(SeverityTarget, ComponentArchive, message, cause)
}

func NewStorageError(message string, cause error) *RunError {
	return NewRunError(SeverityTarget, ComponentStorage, message, cause)
}

func NewValidationError(message string, cause error) *RunError {
	return NewRunError(SeverityFatal, ComponentValidation, message, cause)
}

func NewConfigurationError(message string, cause error) *RunError {
	return NewRunError(SeverityFatal, ComponentConfiguration, message, cause)
}

func NewRetentionError(message string, cause error) *RunError {
	return NewRunError(SeverityRetention, ComponentStorage, message, cause)
}

func NewBestEffortError(component ErrorComponent, message string, cause error) *RunError {
	return NewRunError(SeverityBestEffort, component, message, cause)
}

// IsFatal reports whether err (or anything it wraps) aborts the run
func IsFatal(err error) bool {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Severity == SeverityFatal
	}
	return false
}

// IsTargetError reports whether err fails a single target only
func IsTargetError(err error) bool {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Severity == SeverityTarget
	}
	return false
}

// ValidationError represents validation-specific errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
