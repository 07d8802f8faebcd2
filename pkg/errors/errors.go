package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJump is returned by the interpreter when a branch points past
// the end of the program.
var ErrInvalidJump = errors.New("invalid jump target")

// ParseError carries every diagnostic produced while building a program.
type ParseError struct {
	Diagnostics []string
}

func (e *ParseError) Error() string {
	return strings.Join(e.Diagnostics, "\n")
}

// IsParseError checks if an error is (or wraps) a parse error
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// BoundsError reports a cursor that left the cell array.
type BoundsError struct {
	Index int
	Size  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("data index %d out of bounds for array of size %d", e.Index, e.Size)
}

// IsBoundsError checks if an error is (or wraps) a bounds error
func IsBoundsError(err error) bool {
	var be *BoundsError
	return errors.As(err, &be)
}

type CompileError struct {
	Message string
	Cause   error
}

func (e *CompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// IsCompileError checks if an error is (or wraps) a compile error
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// WrapCompileError wraps an existing error as a compile error
func WrapCompileError(err error, message string) *CompileError {
	return &CompileError{
		Message: message,
		Cause:   err,
	}
}

// CompileErrorf creates a new compile error with formatted message
func CompileErrorf(format string, args ...interface{}) *CompileError {
	return &CompileError{
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}
