package shipper

import (
	"errors"
	"fmt"
)

// Kind classifies a ShipperError for propagation decisions.
type Kind string

const (
	// KindValidation marks missing or invalid input, raised before any network call.
	KindValidation Kind = "validation"
	// KindTransport marks a connection-level failure reaching the provider.
	KindTransport Kind = "transport"
	// KindAPI marks a reachable provider returning a non-success status or malformed payload.
	KindAPI Kind = "api"
	// KindConfiguration marks a disabled integration or an unusable credential.
	KindConfiguration Kind = "configuration"
)

// ShipperError represents an error from the courier integration.
type ShipperError struct {
	Carrier    string
	Kind       Kind
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
// Validation errors render their message verbatim.
func (e *ShipperError) Error() string {
	if e.Kind == KindValidation && e.Cause == nil {
		return e.Message
	}
	prefix := string(e.Kind)
	if e.Carrier != "" {
		prefix = e.Carrier + " " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", prefix, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", prefix, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError. A target without a code
// matches every error of the same kind.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Kind != "" && e.Kind == t.Kind
	}
	return e.Code == t.Code
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier string, kind Kind, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying a user-facing message.
func NewValidationError(message string) *ShipperError {
	return NewShipperError("", KindValidation, "VALIDATION", message)
}

// NewTransportError creates a retryable transport error.
func NewTransportError(carrier, message string, cause error) *ShipperError {
	return NewShipperError(carrier, KindTransport, "TRANSPORT", message).
		WithCause(cause).
		WithRetryable(true)
}

// NewAPIError creates a provider-level error.
func NewAPIError(carrier, code, message string) *ShipperError {
	return NewShipperError(carrier, KindAPI, code, message)
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(carrier, message string) *ShipperError {
	return NewShipperError(carrier, KindConfiguration, "CONFIGURATION", message)
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// Kind sentinels, matched by errors.Is against any error of that kind.
var (
	ErrValidation    = &ShipperError{Kind: KindValidation}
	ErrTransport     = &ShipperError{Kind: KindTransport}
	ErrAPI           = &ShipperError{Kind: KindAPI}
	ErrConfiguration = &ShipperError{Kind: KindConfiguration}
)

// Sentinel errors for common courier scenarios.
var (
	// ErrServiceUnavailable indicates the courier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimitExceeded indicates the courier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnsupportedPrintFormat indicates printCN returned neither a URL nor markup.
	ErrUnsupportedPrintFormat = errors.New("unsupported packing slip format")
)

// KindOf returns the kind of err, or "" when err is not a ShipperError.
func KindOf(err error) Kind {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Kind
	}
	return ""
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
