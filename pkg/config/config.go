// Package config handles bf.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up next to the working
// directory and its parents.
const FileName = "bf.toml"

// Config represents a bf.toml file.
type Config struct {
	Run   Run   `toml:"run"`
	Cache Cache `toml:"cache"`
	Log   Log   `toml:"log"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `toml:"-"`
}

// Run selects how programs are executed.
type Run struct {
	Mode     string `toml:"mode"`
	Optimize bool   `toml:"optimize"`
}

// Cache configures the compilation cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Run: Run{
			Mode:     "auto",
			Optimize: true,
		},
		Cache: Cache{
			Dir: ".bfcache",
		},
	}
}

// Load parses a configuration file. Keys missing from the file keep their
// defaults; a relative cache directory is resolved against the file's
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if c.Cache.Dir != "" && !filepath.IsAbs(c.Cache.Dir) {
		c.Cache.Dir = filepath.Join(filepath.Dir(c.Path), c.Cache.Dir)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a bf.toml file and loads it.
// Defaults are returned if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks values that decoding alone cannot.
func (c *Config) Validate() error {
	switch c.Run.Mode {
	case "auto", "jit", "interpreter":
	default:
		return fmt.Errorf("run.mode must be auto, jit or interpreter, got %q", c.Run.Mode)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required when the cache is enabled")
	}
	return nil
}

// ModeEnv names the environment variable that overrides run.mode.
const ModeEnv = "BF_MODE"

// Overrides holds command-line values. Nil fields were not given.
type Overrides struct {
	Mode      *string
	Optimize  *bool
	CacheDir  *string
	Verbosity *int
	LogFile   *string
}

// Apply layers the environment and then the overrides on top of the
// loaded values, and validates the result. lookupEnv is normally
// os.LookupEnv.
func (c *Config) Apply(o Overrides, lookupEnv func(string) (string, bool)) error {
	if lookupEnv != nil {
		if mode, ok := lookupEnv(ModeEnv); ok {
			c.Run.Mode = mode
		}
	}
	if o.Mode != nil {
		c.Run.Mode = *o.Mode
	}
	if o.Optimize != nil {
		c.Run.Optimize = *o.Optimize
	}
	if o.CacheDir != nil {
		c.Cache.Enabled = true
		c.Cache.Dir = *o.CacheDir
	}
	if o.Verbosity != nil {
		c.Log.Verbosity = *o.Verbosity
	}
	if o.LogFile != nil {
		c.Log.File = *o.LogFile
	}
	return c.Validate()
}
