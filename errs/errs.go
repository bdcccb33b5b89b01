package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a malformed JSON line, entry or payload.
	ErrParse = errors.New("parse error")
	// ErrUnsupportedFormat marks a file whose extension is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrStorage marks a failed read or write against the record store.
	ErrStorage = errors.New("storage error")
	// ErrNoFieldsSelected is returned when preprocessing is asked to run
	// without any field.
	ErrNoFieldsSelected = errors.New("no fields selected")
	// ErrInsufficientData marks a reduction or clustering run without enough
	// valid vectors.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrModelLoad marks a model that could not be loaded.
	ErrModelLoad = errors.New("model load error")
)

// Error carries the kind, the operation that failed and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.Error()
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error kind so errors.Is(err, ErrStorage) works on a wrapped
// *Error regardless of the cause.
func (e *Error) Is(target error) bool { return e.Kind == target }

// New builds an *Error for kind.
func New(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Parse(op string, err error) error { return New(ErrParse, op, err) }

func UnsupportedFormat(op string, err error) error { return New(ErrUnsupportedFormat, op, err) }

func Storage(op string, err error) error { return New(ErrStorage, op, err) }

func NoFieldsSelected(op string) error { return New(ErrNoFieldsSelected, op, nil) }

func InsufficientData(op string, err error) error { return New(ErrInsufficientData, op, err) }

func ModelLoad(op string, err error) error { return New(ErrModelLoad, op, err) }

// Recoverable reports whether err ends a stage softly: a status message is
// due, but the stage did not fail.
func Recoverable(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

// Truncate shortens s to at most n characters and appends "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
