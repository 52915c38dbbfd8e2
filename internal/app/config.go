package app

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSeed is forwarded to every universe unless a seed is configured or
// given on the command line.
const DefaultSeed = 80539

// Analysis modes.
const (
	// ModeFull allocates a new run and visits every universe in the grid.
	ModeFull = "full"
	// ModeContinue reuses the current run and visits only the universes
	// whose artifacts are missing.
	ModeContinue = "continue"
	// ModeTest allocates a new run and visits a minimal smoke subset: the
	// first and last universe of the grid.
	ModeTest = "test"
)

// Grid export formats.
const (
	GridFormatJSON = "json"
	GridFormatCSV  = "csv"
	GridFormatNone = "none"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // multiverse configuration file; empty triggers discovery
	OutputDir  string

	Mode       string
	UniverseID string // ID prefix selecting a single universe; empty visits the whole grid
	Runner     string // overrides the configured executor with a registered in-process runner
	Universe   string // overrides the configured executor with a script or binary path

	Seed         int64
	SeedSet      bool // seed came from the command line and beats the config file
	Workers      int
	VisitTimeout time.Duration

	GridFormat string
	GridOnly   bool

	LogFormat  string
	LogLevel   string
	StatusPort int
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("OutputDir is a required configuration field and cannot be empty")
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	}
	switch cfg.Mode {
	case ModeFull, ModeContinue, ModeTest:
	default:
		return nil, fmt.Errorf("invalid mode %q: must be '%s', '%s', or '%s'", cfg.Mode, ModeFull, ModeContinue, ModeTest)
	}

	if cfg.GridFormat == "" {
		cfg.GridFormat = GridFormatJSON
	}
	switch cfg.GridFormat {
	case GridFormatJSON, GridFormatCSV, GridFormatNone:
	default:
		return nil, fmt.Errorf("invalid grid-format %q: must be '%s', '%s', or '%s'", cfg.GridFormat, GridFormatJSON, GridFormatCSV, GridFormatNone)
	}

	if cfg.Runner != "" && cfg.Universe != "" {
		return nil, errors.New("runner and universe are mutually exclusive executor overrides")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("workers cannot be negative")
	}
	if cfg.VisitTimeout < 0 {
		return nil, errors.New("visit-timeout cannot be negative")
	}

	return &cfg, nil
}
