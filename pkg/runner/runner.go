// Package runner ties the pipeline together: parse, optimize, translate
// and execute a program with the backend the caller asked for.
package runner

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/aHeraud/bf/pkg/cache"
	"github.com/aHeraud/bf/pkg/interpreter"
	"github.com/aHeraud/bf/pkg/jit"
	"github.com/aHeraud/bf/pkg/optimizer"
	"github.com/aHeraud/bf/pkg/parser"
	"github.com/aHeraud/bf/pkg/types"
)

// ExecutionMode determines which backend runs a program
type ExecutionMode int

const (
	ModeAuto        ExecutionMode = iota // native when available, otherwise interpreted
	ModeJIT                              // native only
	ModeInterpreter                      // bounds checked, portable
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeJIT:
		return "jit"
	case ModeInterpreter:
		return "interpreter"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a configuration value to an ExecutionMode.
func ParseMode(s string) (ExecutionMode, error) {
	switch s {
	case "auto", "":
		return ModeAuto, nil
	case "jit":
		return ModeJIT, nil
	case "interpreter":
		return ModeInterpreter, nil
	}
	return ModeAuto, fmt.Errorf("unknown execution mode %q", s)
}

// Options configure a Runner.
type Options struct {
	Mode     ExecutionMode
	Optimize bool
	// Cache is optional. It is not closed by the runner.
	Cache *cache.Cache
}

// Compiled is a program ready to run.
type Compiled struct {
	Program types.Program
	// Code is nil when the program will only be interpreted.
	Code   *jit.Code
	Stats  optimizer.Stats
	Cached bool
}

type Runner struct {
	opts Options
}

func New(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Backend resolves ModeAuto against the platform. Requesting the native
// backend where it is not available is an error.
func (r *Runner) Backend() (ExecutionMode, error) {
	switch r.opts.Mode {
	case ModeAuto:
		if jit.Supported {
			return ModeJIT, nil
		}
		return ModeInterpreter, nil
	case ModeJIT:
		if !jit.Supported {
			return ModeJIT, fmt.Errorf("jit mode requested: %w", jit.ErrUnsupported)
		}
		return ModeJIT, nil
	case ModeInterpreter:
		return ModeInterpreter, nil
	}
	return r.opts.Mode, fmt.Errorf("unknown execution mode %d", int(r.opts.Mode))
}

// Compile builds the program for the resolved backend, consulting the
// cache first when one is configured. Parse errors are returned as
// *errors.ParseError.
func (r *Runner) Compile(source string) (*Compiled, error) {
	backend, err := r.Backend()
	if err != nil {
		return nil, err
	}
	log := commonlog.GetLogger("bf.runner")

	var key cache.Key
	if r.opts.Cache != nil {
		key = cache.MakeKey(source, r.opts.Optimize)
		entry, ok, err := r.opts.Cache.Get(key)
		if err != nil {
			return nil, err
		}
		if ok && (backend != ModeJIT || entry.Code != nil) {
			log.Debugf("cache hit %x", key[:8])
			return &Compiled{
				Program: entry.Program,
				Code:    entry.Code,
				Stats:   optimizer.Stats{Before: len(entry.Program), After: len(entry.Program)},
				Cached:  true,
			}, nil
		}
	}

	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	compiled := &Compiled{
		Program: program,
		Stats:   optimizer.Stats{Before: len(program), After: len(program)},
	}
	if r.opts.Optimize {
		compiled.Program, compiled.Stats = optimizer.OptimizeWithStats(program)
	}
	if backend == ModeJIT {
		compiled.Code = jit.Translate(compiled.Program)
		log.Debugf("translated %d instructions into %d bytes", len(compiled.Program), len(compiled.Code.Bytes))
	}

	if r.opts.Cache != nil {
		if err := r.opts.Cache.Put(key, &cache.Entry{Program: compiled.Program, Code: compiled.Code}); err != nil {
			// not fatal, the program still runs
			log.Warningf("could not store compiled program: %v", err)
		}
	}
	return compiled, nil
}

// Execute runs a compiled program on the resolved backend.
func (r *Runner) Execute(compiled *Compiled, in io.Reader, out io.Writer) error {
	backend, err := r.Backend()
	if err != nil {
		return err
	}
	if backend == ModeJIT {
		code := compiled.Code
		if code == nil {
			code = jit.Translate(compiled.Program)
		}
		return jit.Run(code, in, out)
	}
	return interpreter.Run(compiled.Program, in, out)
}

// Run compiles and executes source.
func (r *Runner) Run(source string, in io.Reader, out io.Writer) error {
	compiled, err := r.Compile(source)
	if err != nil {
		return err
	}
	return r.Execute(compiled, in, out)
}
