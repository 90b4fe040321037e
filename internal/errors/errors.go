// Package errors provides a lightweight structured error type (KitError) and a
// classification scheme shared by the content pipeline, the build hooks and the CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of an error for classification.
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Content authoring errors (metadata, entries, collection lookups)
	CategoryContent ErrorCategory = "content"

	// Build and processing errors
	CategoryBuild      ErrorCategory = "build"
	CategoryGenerator  ErrorCategory = "generator"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"
)

// Classified is implemented by typed domain errors that know their category.
// CLIErrorAdapter finds them anywhere in a wrap chain.
type Classified interface {
	error
	ErrorCategory() ErrorCategory
}

// KitError is a structured error with category, severity and context.
type KitError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for KitError
type ContextFields map[string]any

func (e *KitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

func (e *KitError) Unwrap() error {
	return e.Cause
}

// ErrorCategory implements Classified.
func (e *KitError) ErrorCategory() ErrorCategory {
	return e.Category
}

// WithContext adds context information to the error
func (e *KitError) WithContext(key string, value any) *KitError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new KitError
func New(category ErrorCategory, severity ErrorSeverity, message string) *KitError {
	return &KitError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new KitError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *KitError {
	return &KitError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory reports whether any error in err's chain carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	return GetCategory(err) == category
}

// GetCategory extracts the category from the first classified error in the chain,
// or returns CategoryInternal when none is found.
func GetCategory(err error) ErrorCategory {
	var c Classified
	if stdErrors.As(err, &c) {
		return c.ErrorCategory()
	}
	return CategoryInternal
}
