// Package apperr defines the error taxonomy shared by the gateway, the
// enhancement engine and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// ErrorType categorizes a failure.
type ErrorType int

const (
	// ErrTypeValidation indicates empty or invalid user input.
	ErrTypeValidation ErrorType = iota
	// ErrTypeAuth indicates a missing or rejected credential.
	ErrTypeAuth
	// ErrTypeUpstream indicates the generative provider returned a failure.
	ErrTypeUpstream
	// ErrTypeTimeout indicates video generation hit its polling ceiling.
	ErrTypeTimeout
	// ErrTypePersistence indicates a ledger write failed.
	ErrTypePersistence
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeValidation:
		return "validation"
	case ErrTypeAuth:
		return "auth"
	case ErrTypeUpstream:
		return "upstream"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypePersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a typed failure carrying the operation that produced it.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports rejected user input.
func Validation(op, message string) *Error {
	return &Error{Type: ErrTypeValidation, Op: op, Message: message}
}

// Auth reports a missing or invalid credential.
func Auth(op, message string, err error) *Error {
	return &Error{Type: ErrTypeAuth, Op: op, Message: message, Err: err}
}

// Upstream reports a provider failure.
func Upstream(op, message string, err error) *Error {
	return &Error{Type: ErrTypeUpstream, Op: op, Message: message, Err: err}
}

// Timeout reports an exhausted polling ceiling.
func Timeout(op, message string) *Error {
	return &Error{Type: ErrTypeTimeout, Op: op, Message: message}
}

// Persistence reports a failed ledger write.
func Persistence(op string, err error) *Error {
	return &Error{Type: ErrTypePersistence, Op: op, Message: "failed to persist", Err: err}
}

// TypeOf returns the type of the first *Error in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// Is reports whether err carries an *Error of type t.
func Is(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

// HTTPStatus maps err to the status code the web surface answers with.
func HTTPStatus(err error) int {
	t, ok := TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch t {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeAuth:
		return http.StatusUnauthorized
	case ErrTypeUpstream:
		return http.StatusBadGateway
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err. Provider messages are kept
// verbatim so the browser shows what the upstream said.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Type == ErrTypeUpstream && e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		if e.Err != nil && e.Type == ErrTypeAuth {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	return err.Error()
}
