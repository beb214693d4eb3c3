package core

import "github.com/pkg/errors"

// FieldError attaches an error message to a specific input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed input. It carries either a general
// error or a list of per-field errors; the API layer renders the latter
// as a field -> message object.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdownError signals the server to stop gracefully when it bubbles up
// to the HTTP error handler.
type shutdownError struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdownError{message: msg}
}

func (s shutdownError) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdownError)
	return ok
}
