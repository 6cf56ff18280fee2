package crawl

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel behind every ValidationError.
var ErrInvalidInput = errors.New("crawl: invalid input")

// ErrMonitorNotFound is returned when a price monitor ID is unknown.
var ErrMonitorNotFound = errors.New("crawl: monitor not found")

// ValidationError reports malformed or missing operation input. It is
// the only operation failure callers see as an error shape; fetch
// failures degrade to guidance payloads instead. Serializes to the
// structured {"error": true, "message": ...} object.
type ValidationError struct {
	IsError bool   `json:"error"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// invalidf builds a ValidationError naming the offending field.
func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{IsError: true, Message: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps err into its ValidationError when it carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
