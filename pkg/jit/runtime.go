package jit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/tliron/commonlog"

	bferrors "github.com/aHeraud/bf/pkg/errors"
	"github.com/aHeraud/bf/pkg/types"
)

// ErrUnsupported is returned when native code cannot be run on this
// platform or build.
var ErrUnsupported = errors.New("native execution is not supported on this platform")

// The trampolines keep their streams in process globals, so only one
// routine runs at a time.
var runMu sync.Mutex

// Execute translates and runs a program natively.
func Execute(program types.Program, in io.Reader, out io.Writer) error {
	return Run(Translate(program), in, out)
}

// Run links the code against the host trampolines, copies it into an
// executable buffer and calls it with a fresh zeroed cell array. Output
// written by the routine has been delivered to out when Run returns.
//
// An *os.File input is read directly. Any other reader is copied into a
// pipe by a goroutine that Run does not wait for: if the reader blocks,
// that goroutine outlives Run, and the next chunk it reads is discarded
// once the pipe is closed. Pass an *os.File to share an interactive
// stream across runs.
func Run(code *Code, in io.Reader, out io.Writer) (err error) {
	if code == nil || len(code.Bytes) == 0 {
		return bferrors.CompileErrorf("no native code to run")
	}
	if !Supported {
		return ErrUnsupported
	}

	runMu.Lock()
	defer runMu.Unlock()

	log := commonlog.GetLogger("bf.jit")

	exe, err := Allocate(len(code.Bytes), true)
	if err != nil {
		return bferrors.WrapCompileError(err, "failed to allocate executable memory")
	}
	defer func() {
		if ferr := exe.Free(); ferr != nil && err == nil {
			err = bferrors.WrapCompileError(ferr, "failed to release executable memory")
		}
	}()

	cells, err := Allocate(types.MemorySize, false)
	if err != nil {
		return bferrors.WrapCompileError(err, "failed to allocate cell memory")
	}
	defer func() {
		if ferr := cells.Free(); ferr != nil && err == nil {
			err = bferrors.WrapCompileError(ferr, "failed to release cell memory")
		}
	}()

	readByte, writeByte := trampolineAddrs()
	copy(exe.Bytes(), code.Link(readByte, writeByte))

	inFile, releaseIn, err := bindInput(in)
	if err != nil {
		return bferrors.WrapCompileError(err, "failed to bind input stream")
	}
	defer releaseIn()

	outFile, finishOut, err := bindOutput(out)
	if err != nil {
		return bferrors.WrapCompileError(err, "failed to bind output stream")
	}

	log.Debugf("running %d bytes of native code (%d instructions)", len(code.Bytes), code.Instructions)
	runErr := invoke(exe.Addr(), cells.Addr(), inFile.Fd(), outFile.Fd())
	runtime.KeepAlive(inFile)
	runtime.KeepAlive(outFile)

	if ferr := finishOut(); ferr != nil && runErr == nil {
		runErr = ferr
	}
	if runErr != nil {
		return fmt.Errorf("native run failed: %w", runErr)
	}
	return nil
}

// bindInput returns a file the trampolines can read from. Files are used
// directly; any other reader is fed through a pipe. The release function
// closes the pipe, which also stops the feeding goroutine at its next
// write.
func bindInput(in io.Reader) (*os.File, func(), error) {
	if f, ok := in.(*os.File); ok {
		return f, func() {}, nil
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	go func() {
		if in != nil {
			_, _ = io.Copy(w, in)
		}
		_ = w.Close()
	}()
	return r, func() { _ = r.Close() }, nil
}

// bindOutput returns a file the trampolines can write to. Files are used
// directly; any other writer is drained from a pipe by a goroutine. The
// finish function closes the write end and waits until everything has
// been copied to out.
func bindOutput(out io.Writer) (*os.File, func() error, error) {
	if f, ok := out.(*os.File); ok {
		return f, func() error { return nil }, nil
	}
	if out == nil {
		out = io.Discard
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, r)
		if err != nil {
			// keep the pipe drained so the routine never writes to a closed reader
			_, _ = io.Copy(io.Discard, r)
		}
		_ = r.Close()
		done <- err
	}()
	return w, func() error {
		werr := w.Close()
		if err := <-done; err != nil {
			return err
		}
		return werr
	}, nil
}
