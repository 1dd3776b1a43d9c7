package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Upstream (version control provider) errors (1xxx)
	ErrCodeUpstreamNotFound    ErrorCode = "L10N1001"
	ErrCodeUpstreamRateLimited ErrorCode = "L10N1002"
	ErrCodeUpstreamError       ErrorCode = "L10N1003"
	ErrCodeUpstreamAuth        ErrorCode = "L10N1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "L10N2001"
	ErrCodeConfigInvalid  ErrorCode = "L10N2002"

	// Structured document errors (3xxx)
	ErrCodeUnsupportedFormat ErrorCode = "L10N3001"
	ErrCodeParseError        ErrorCode = "L10N3002"

	// Storage errors (4xxx)
	ErrCodeStorage       ErrorCode = "L10N4001"
	ErrCodeDuplicateName ErrorCode = "L10N4002"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "L10N6001"
	ErrCodeRequiredField    ErrorCode = "L10N6002"

	// Lookup errors (8xxx)
	ErrCodeSiteNotFound   ErrorCode = "L10N8001"
	ErrCodeResultNotFound ErrorCode = "L10N8002"

	// Analysis and system errors (9xxx)
	ErrCodeAnalysisFailed     ErrorCode = "L10N9001"
	ErrCodeInternal           ErrorCode = "L10N9002"
	ErrCodeTimeout            ErrorCode = "L10N9003"
	ErrCodeServiceUnavailable ErrorCode = "L10N9004"
	ErrCodeResourceExhausted  ErrorCode = "L10N9005"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit some properties
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// Summary returns the message followed by the cause, without code or suggestions.
// It is what ends up in an analysis result's error message.
func (e *AppError) Summary() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + Summary(e.Cause)
}

// Summary returns a single-line description of err suitable for persisting.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Summary()
	}
	return err.Error()
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// UnsupportedFormatError reports a structured-config file whose extension is not recognised
func UnsupportedFormatError(filename string) *AppError {
	return New(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported i18n file format: %s", filename)).
		WithContext("filename", filename).
		WithSuggestions("Use a .toml, .yaml or .yml translation file")
}

// ParseError wraps a decoder failure for a structured-config document
func ParseError(format string, cause error) *AppError {
	msg := fmt.Sprintf("failed to parse %s", format)
	return Wrap(cause, ErrCodeParseError, msg).
		WithContext("format", format)
}

// UpstreamNotFound reports a repository, branch or path the provider could not find
func UpstreamNotFound(what string, cause error) *AppError {
	err := New(ErrCodeUpstreamNotFound, fmt.Sprintf("not found: %s", what)).
		WithContext("resource", what)
	err.Cause = cause
	return err
}

// UpstreamRateLimited reports provider throttling
func UpstreamRateLimited(cause error) *AppError {
	err := New(ErrCodeUpstreamRateLimited, "provider API rate limit exceeded").
		WithSuggestions(
			"Wait for the rate limit window to reset",
			"Configure an access token with 'l10ntrack token set'",
		).AsRecoverable()
	err.Cause = cause
	return err
}

// UpstreamError reports any other provider failure
func UpstreamError(message string, cause error) *AppError {
	err := New(ErrCodeUpstreamError, message)
	err.Cause = cause
	return err
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Refer to the configuration documentation",
		)
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// SiteNotFound reports an unknown site identifier
func SiteNotFound(id string) *AppError {
	return New(ErrCodeSiteNotFound, fmt.Sprintf("site not found: %s", id)).
		WithContext("site", id)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// As is errors.As from the standard library, re-exported so callers need one errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsNotFound reports whether err means the requested upstream resource is absent.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeUpstreamNotFound)
}
