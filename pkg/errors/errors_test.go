package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestParseErrorJoinsDiagnostics(t *testing.T) {
	err := &ParseError{Diagnostics: []string{"first", "second"}}
	if got, want := err.Error(), "first\nsecond"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsParseError(fmt.Errorf("load: %w", err)) {
		t.Error("IsParseError(wrapped) = false, want true")
	}
}

func TestBoundsError(t *testing.T) {
	err := error(&BoundsError{Index: -1, Size: 30000})
	if got, want := err.Error(), "data index -1 out of bounds for array of size 30000"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsBoundsError(err) {
		t.Error("IsBoundsError = false, want true")
	}
	if IsBoundsError(io.EOF) {
		t.Error("IsBoundsError(io.EOF) = true, want false")
	}
}

func TestCompileErrorWrapping(t *testing.T) {
	err := WrapCompileError(io.ErrUnexpectedEOF, "allocate code buffer")
	if got, want := err.Error(), "allocate code buffer: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is(cause) = false, want true")
	}
	if !IsCompileError(fmt.Errorf("run: %w", err)) {
		t.Error("IsCompileError(wrapped) = false, want true")
	}

	plain := CompileErrorf("mode %q unavailable", "jit")
	if got, want := plain.Error(), `mode "jit" unavailable`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
