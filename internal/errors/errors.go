package errors

import (
	"fmt"
	"net/http"
)

// Kind tags a VicError. The set is closed: callers switch on it exhaustively.
type Kind string

const (
	KindServer         Kind = "server"          // backend answered with a non-2xx status
	KindNetwork        Kind = "network"         // no response received
	KindUnknown        Kind = "unknown"         // anything else (decode failure, bad URL)
	KindInvalidRequest Kind = "invalid_request" // local validation, never from the API client
)

// NetworkMessage is shown whenever the backend could not be reached.
const NetworkMessage = "No response received from server. Please check your connection."

// VicError is the single error shape crossing the API client boundary.
type VicError struct {
	Kind       Kind
	Status     int    // KindServer only
	StatusText string // KindServer only
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *VicError) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport or decode error, if any.
func (e *VicError) Unwrap() error {
	return e.Cause
}

// IsClientError reports a 4xx answer from the backend.
func (e *VicError) IsClientError() bool {
	return e.Kind == KindServer && e.Status >= 400 && e.Status < 500
}

// IsTransient reports failures worth one automatic retry.
func (e *VicError) IsTransient() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindServer:
		return e.Status >= 500
	default:
		return false
	}
}

// HTTPStatus maps the error onto the status the web UI answers with.
func (e *VicError) HTTPStatus() int {
	switch e.Kind {
	case KindServer:
		if e.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case KindNetwork:
		return http.StatusServiceUnavailable
	case KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewServer creates an error for a backend that answered with a failure status.
func NewServer(status int, statusText string) *VicError {
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	return &VicError{
		Kind:       KindServer,
		Status:     status,
		StatusText: statusText,
		Message:    fmt.Sprintf("Server error: %d %s", status, statusText),
	}
}

// NewNetwork creates an error for a request that never got a response.
func NewNetwork(cause error) *VicError {
	return &VicError{
		Kind:    KindNetwork,
		Message: NetworkMessage,
		Cause:   cause,
	}
}

// NewUnknown wraps any other failure, keeping its message verbatim.
func NewUnknown(err error) *VicError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &VicError{
		Kind:    KindUnknown,
		Message: msg,
		Cause:   err,
	}
}

// NewInvalidRequest creates a local validation error.
func NewInvalidRequest(msg string) *VicError {
	return &VicError{
		Kind:    KindInvalidRequest,
		Message: msg,
	}
}

// As normalizes any error into a VicError. Non-VicErrors become KindUnknown.
func As(err error) *VicError {
	if err == nil {
		return nil
	}
	if vErr, ok := err.(*VicError); ok {
		return vErr
	}
	return NewUnknown(err)
}

// Is checks if an error is a VicError of the given kind.
func Is(err error, kind Kind) bool {
	if vErr, ok := err.(*VicError); ok {
		return vErr.Kind == kind
	}
	return false
}
