package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalid       = errors.New("invalid input")
	ErrForbidden     = errors.New("operation not permitted for this client")
	ErrNotConfigured = errors.New("server not configured")
	ErrBusy          = errors.New("table is locked by a maintenance run")
	ErrUnknownID     = errors.New("unknown id")
)

// StoreError marks a failure that originated in a persistence backend.
type StoreError struct {
	Backend string
	Op      string
	Table   string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Invalidf returns an error wrapping ErrInvalid with a client-facing message.
func Invalidf(format string, args ...any) error {
	return &invalidError{msg: fmt.Sprintf(format, args...)}
}

type invalidError struct{ msg string }

func (e *invalidError) Error() string        { return e.msg }
func (e *invalidError) Is(target error) bool { return target == ErrInvalid }
