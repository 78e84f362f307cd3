package core

import "github.com/pkg/errors"

// FieldError carries the failure of a single request field, keyed the
// way the API reports it to clients.
type FieldError struct {
	Field string
	Error string
}

// ValidationError groups the field errors of a rejected request, eg. a
// letter whose message is blank or too long.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError wraps err together with the offending fields so
// handlers can render a field-to-message map.
func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks a condition the service cannot recover from in-process.
type shutdown struct {
	message string
}

// NewShutdownError reports an unrecoverable condition; the API error
// handler reacts to it by stopping the server gracefully.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, however wrapped, calls for a server
// shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
