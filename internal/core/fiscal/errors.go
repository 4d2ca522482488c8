package fiscal

import (
	"errors"
	"fmt"
)

// ErrUnknownDocument is returned when the XML root is not a supported fiscal schema.
var ErrUnknownDocument = errors.New("tipo de documento não identificado")

// ParseError reports a file that could not be read as a fiscal document.
// It is fatal for that file only.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Path != "" {
		return fmt.Sprintf("parse %s: %s", e.Path, msg)
	}
	return "parse: " + msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
