package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches any *NotFoundError via errors.Is
	ErrNotFound = errors.New("resource not found")
	// ErrValidation matches any *ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")
)

// ErrorKind classifies client failures
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindHTTP       ErrorKind = "http"
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindUnknown    ErrorKind = "unknown"
)

// TransportError means no HTTP response was received (DNS, connection
// refused, timeout, cancellation).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response, or a 2xx whose envelope reported failure.
// Message is the backend's message field verbatim when present.
type HTTPError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, msg)
}

// NotFoundError is a 404 response
type NotFoundError struct {
	HTTPError
}

func (e *NotFoundError) Unwrap() error { return &e.HTTPError }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError is a 4xx response carrying a validation envelope
type ValidationError struct {
	HTTPError
	Fields map[string][]string
}

func (e *ValidationError) Unwrap() error { return &e.HTTPError }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FieldMessage returns the first message reported for field
func (e *ValidationError) FieldMessage(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// KindOf classifies err
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return KindHTTP
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return KindTransport
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// newStatusError maps a failed response onto the error kinds
func newStatusError(method, url string, status int, env *errorEnvelope) error {
	base := HTTPError{
		Method:  method,
		URL:     url,
		Status:  status,
		Message: env.Message,
	}

	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{HTTPError: base}
	case status == http.StatusUnprocessableEntity,
		status >= 400 && status < 500 && len(env.Errors) > 0:
		return &ValidationError{HTTPError: base, Fields: env.Errors}
	default:
		return &base
	}
}
