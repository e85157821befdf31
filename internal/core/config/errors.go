package config

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches a settings file that is missing or unreadable.
	ErrNotFound = errors.New("config file not found")
	// ErrParse matches a settings file or environment merge that failed to parse.
	ErrParse = errors.New("config parse failed")
	// ErrValidation matches a merged tree that does not fit the typed snapshot.
	ErrValidation = errors.New("config validation failed")
)

// Kind tells which loading stage failed.
type Kind int

const (
	KindNotFound Kind = iota
	KindParse
	KindValidation
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindParse:
		return ErrParse
	default:
		return ErrValidation
	}
}

// Error is returned by Load. Path is always set; Field is set when the
// failure can be pinned to a dotted field path.
type Error struct {
	Kind  Kind
	Path  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s for %s", msg, e.Field)
	}
	return fmt.Sprintf("%s (%s): %v", msg, e.Path, e.Err)
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Err
}
