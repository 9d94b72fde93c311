package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the workflow file, a config file, or a target tool is absent.
	ErrNotFound = errors.New("not found")
	// ErrFormat: input is not well-formed XML, or a JSON argument is malformed.
	ErrFormat = errors.New("malformed input")
	// ErrStructure: the anchor element an edit needs is missing.
	ErrStructure = errors.New("missing structure")
	// ErrIO: the workflow could not be written.
	ErrIO = errors.New("write failed")
	// ErrDuplicateID: more than one tool carries the requested ToolID.
	ErrDuplicateID = errors.New("duplicate tool id")
	// ErrInvalidArgument: a required argument is missing or contradictory.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind names the category of err for transports that report it, or "" when
// err is not one of the sentinel categories.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrStructure):
		return "structure"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	}
	return ""
}

// Error carries a caller-facing message while still matching its sentinel
// category with errors.Is.
type Error struct {
	kind error
	msg  string
	err  error
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes both the category and the underlying cause, if any.
func (e *Error) Unwrap() []error {
	if e.err != nil {
		return []error{e.kind, e.err}
	}
	return []error{e.kind}
}

// Errorf builds an *Error of the given category. A trailing %w verb is
// honored for the underlying cause.
func Errorf(kind error, format string, args ...any) error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{kind: kind, msg: wrapped.Error(), err: errors.Unwrap(wrapped)}
}
