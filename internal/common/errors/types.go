package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the failure domain of an error
type ErrorType string

const (
	// ErrTypeConfigMissing represents a required setting that is absent
	ErrTypeConfigMissing ErrorType = "config_missing"
	// ErrTypeConnection represents failures to reach a provider
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeProviderRejected represents a non-200 provider response
	ErrTypeProviderRejected ErrorType = "provider_rejected"
	// ErrTypeMalformedResponse represents an unparsable intermediate response
	ErrTypeMalformedResponse ErrorType = "malformed_response"
	// ErrTypeFatalInit represents an adapter that cannot be loaded
	ErrTypeFatalInit ErrorType = "fatal_init"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeUnsupported represents an alarm kind an adapter does not handle
	ErrTypeUnsupported ErrorType = "unsupported"
	// ErrTypeInternal represents local failures to build a request
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches key=value, e.g. the delivery stage that failed
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ConfigMissingError reports a required key absent from an adapter section
func ConfigMissingError(section, key string) *AppError {
	return &AppError{
		Type:    ErrTypeConfigMissing,
		Message: fmt.Sprintf("missing setting %s.%s", section, key),
		Context: map[string]interface{}{"section": section, "key": key},
	}
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ProviderRejectedError reports a provider response other than 200
func ProviderRejectedError(status int, reason string) *AppError {
	return &AppError{
		Type:    ErrTypeProviderRejected,
		Message: fmt.Sprintf("provider responded %d %s", status, reason),
		Context: map[string]interface{}{"status": status, "reason": reason},
	}
}

// MalformedResponseError creates a new malformed response error
func MalformedResponseError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeMalformedResponse,
		Message: msg,
		Cause:   cause,
	}
}

// FatalInitError creates an error that aborts loading of one adapter
func FatalInitError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeFatalInit,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// UnsupportedKindError reports an alarm kind an adapter does not deliver
func UnsupportedKindError(kind string) *AppError {
	return &AppError{
		Type:    ErrTypeUnsupported,
		Message: fmt.Sprintf("%s not supported", kind),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// IsType checks if err, or any error it wraps, is an AppError of errType
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if err wraps an AppError, otherwise ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ErrTypeInternal
	}
	return appErr.Type
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
