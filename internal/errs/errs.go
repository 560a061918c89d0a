package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code is a client-side error code.
type Code string

const (
	InvalidArgument  Code = "invalid_argument"
	Unauthenticated  Code = "unauthenticated"
	PermissionDenied Code = "permission_denied"
	Restricted       Code = "restricted"
	NotFound         Code = "not_found"
	Unavailable      Code = "unavailable"
	Internal         Code = "internal"
)

// FallbackMessage is shown when nothing better can be extracted from an error.
const FallbackMessage = "Something went wrong. Please try again."

// Error is a coded error. Status is the HTTP status that produced it, or 0 when
// the request never got a response.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// FromResponse builds the error for a non-2xx API response. message is whatever
// the server said, already extracted from the body; when it is empty the
// status line becomes the user-facing text.
func FromResponse(status int, message string) error {
	code := FromStatus(status)
	if status == http.StatusForbidden && strings.Contains(strings.ToLower(message), "restricted") {
		code = Restricted
	}
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     fmt.Errorf("request failed with status code %d", status),
	}
}

// Transport wraps a failure that produced no response (dial, timeout, TLS).
func Transport(cause error) error {
	return &Error{
		Code: Unavailable,
		Err:  cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Status
	}
	return 0
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var coded *Error
	return errors.As(err, &coded) && coded.Code == code
}

// MessageOf returns the coded message, or "internal error" for untyped errors.
// Use UserMessage for text shown to people.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// UserMessage normalizes any error into one human-readable string. The order is
// the server's message (structured field or plain body, already folded into
// Message when the response was decoded), then the transport error text, then
// FallbackMessage.
func UserMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}
	var coded *Error
	if errors.As(err, &coded) {
		if msg := strings.TrimSpace(coded.Message); msg != "" {
			return msg
		}
		if coded.Err != nil {
			if msg := strings.TrimSpace(coded.Err.Error()); msg != "" {
				return msg
			}
		}
		return FallbackMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackMessage
}

// FromStatus maps an HTTP status to a code.
func FromStatus(status int) Code {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return InvalidArgument
	case status == http.StatusUnauthorized:
		return Unauthenticated
	case status == http.StatusForbidden:
		return PermissionDenied
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout, status == http.StatusRequestTimeout:
		return Unavailable
	default:
		return Internal
	}
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied, Restricted:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
