package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"

	"github.com/aHeraud/bf/pkg/cache"
	"github.com/aHeraud/bf/pkg/config"
	bferrors "github.com/aHeraud/bf/pkg/errors"
	"github.com/aHeraud/bf/pkg/jit"
	"github.com/aHeraud/bf/pkg/runner"

	_ "github.com/tliron/commonlog/simple"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] FILE\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	interpret := flag.Bool("i", false, "Run with the interpreter instead of native code")
	configPath := flag.String("config", "", "Path to a bf.toml file (default: search upwards from the working directory)")
	mode := flag.String("mode", "", "Execution mode: auto, jit or interpreter")
	noOpt := flag.Bool("no-opt", false, "Disable the peephole optimizer")
	cacheDir := flag.String("cache", "", "Enable the compilation cache in this directory")
	verbosity := flag.Int("v", 0, "Log verbosity")
	logFile := flag.String("log", "", "Write logs to this file instead of stderr")
	dumpIR := flag.Bool("dump-ir", false, "Print the instruction listing and exit")
	dumpCode := flag.Bool("dump-code", false, "Print the disassembled native code and exit")

	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		atexit.Exit(2)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		atexit.Fatalf("Failed to load configuration: %v", err)
	}

	// flags win over the environment and the file
	var overrides config.Overrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			overrides.Mode = mode
		case "no-opt":
			optimize := !*noOpt
			overrides.Optimize = &optimize
		case "cache":
			overrides.CacheDir = cacheDir
		case "v":
			overrides.Verbosity = verbosity
		case "log":
			overrides.LogFile = logFile
		}
	})
	if err := cfg.Apply(overrides, os.LookupEnv); err != nil {
		atexit.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Log.File != "" {
		commonlog.Configure(cfg.Log.Verbosity, &cfg.Log.File)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}
	log := commonlog.GetLogger("bf")

	execMode, err := runner.ParseMode(cfg.Run.Mode)
	if err != nil {
		atexit.Fatalf("%v", err)
	}
	if *interpret {
		execMode = runner.ModeInterpreter
	}
	if *dumpCode {
		// translation needs no native support
		execMode = runner.ModeInterpreter
	}

	path := flag.Arg(0)
	source, err := os.ReadFile(path)
	if err != nil {
		atexit.Fatalf("Failed to read %s: %v", path, err)
	}

	opts := runner.Options{
		Mode:     execMode,
		Optimize: cfg.Run.Optimize,
	}
	if cfg.Cache.Enabled && !*dumpCode {
		c, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			atexit.Fatalf("%v", err)
		}
		atexit.Register(func() { c.Close() })
		opts.Cache = c
	}

	r := runner.New(opts)
	compiled, err := r.Compile(string(source))
	if err != nil {
		if bferrors.IsParseError(err) {
			reportParseError(err)
			atexit.Exit(1)
		}
		if errors.Is(err, jit.ErrUnsupported) {
			atexit.Fatalf("Native execution is only available on x86-64 with cgo; run with -i to interpret")
		}
		atexit.Fatalf("Failed to compile %s: %v", path, err)
	}
	log.Infof("%s: %d instructions (%d before optimization, %d passes), cached=%v",
		path, compiled.Stats.After, compiled.Stats.Before, compiled.Stats.Passes, compiled.Cached)

	switch {
	case *dumpIR:
		fmt.Print(compiled.Program.String())
		atexit.Exit(0)
	case *dumpCode:
		fmt.Print(jit.Disassemble(jit.Translate(compiled.Program)))
		atexit.Exit(0)
	}

	if err := r.Execute(compiled, os.Stdin, os.Stdout); err != nil {
		switch {
		case bferrors.IsCompileError(err):
			// allocation, protection or code loading failed before the program ran
			atexit.Fatalf("Resource failure: %v", err)
		case bferrors.IsBoundsError(err):
			atexit.Fatalf("Runtime error: %v", err)
		default:
			atexit.Fatalf("Execution failed: %v", err)
		}
	}
	atexit.Exit(0)
}

// reportParseError prints one diagnostic per line, in the order found.
func reportParseError(err error) {
	var pe *bferrors.ParseError
	if errors.As(err, &pe) {
		for _, d := range pe.Diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
	}
}
