package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so callers can tell a missing session apart from a broken provider.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation_failure"
	KindTranscription Kind = "transcription_failure"
	KindGeneration    Kind = "generation_failure"
	KindSynthesis     Kind = "synthesis_failure"
	KindInternal      Kind = "internal"
)

// Error carries the kind, the operation that failed and the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Ensure keeps an already classified error as is and wraps anything else with kind.
func Ensure(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(kind, op, message, err)
}

// KindOf reports the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is classified with kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the human readable message of a classified error.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal error"
}

// CauseOf returns the text of the underlying cause, or "" when there is none.
func CauseOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
		return ""
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// HTTPStatus maps a kind to the response status used by the HTTP layer.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindTranscription, KindGeneration, KindSynthesis:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
