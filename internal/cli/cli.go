package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vk/multiversego/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envDefaults carries environment-provided flag defaults. A flag given on
// the command line always wins over its environment variable.
type envDefaults struct {
	Config       string        `env:"MULTIVERSE_CONFIG"`
	OutputDir    string        `env:"MULTIVERSE_OUTPUT_DIR" envDefault:"output"`
	Mode         string        `env:"MULTIVERSE_MODE" envDefault:"full"`
	Seed         *int64        `env:"MULTIVERSE_SEED"`
	Workers      int           `env:"MULTIVERSE_WORKERS"`
	VisitTimeout time.Duration `env:"MULTIVERSE_VISIT_TIMEOUT"`
	GridFormat   string        `env:"MULTIVERSE_GRID_FORMAT" envDefault:"json"`
	LogFormat    string        `env:"MULTIVERSE_LOG_FORMAT" envDefault:"json"`
	LogLevel     string        `env:"MULTIVERSE_LOG_LEVEL" envDefault:"info"`
	StatusPort   int           `env:"MULTIVERSE_STATUS_PORT"`
}

// Parse processes command-line arguments. It returns a populated app Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var defaults envDefaults
	if err := env.Parse(&defaults); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid environment configuration: %v", err)}
	}

	flagSet := flag.NewFlagSet("multiverse", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Multiverse - a multiverse analysis orchestrator.

Usage:
  multiverse [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a multiverse configuration file (.hcl, .toml, .json or .yaml).
    When omitted, the working directory is searched for multiverse.hcl,
    multiverse.toml, multiverse.json or multiverse.yaml.

Options:
`)
		flagSet.PrintDefaults()
	}

	seedDefault := int64(app.DefaultSeed)
	seedSet := defaults.Seed != nil
	if seedSet {
		seedDefault = *defaults.Seed
	}

	configFlag := flagSet.String("config", defaults.Config, "Path to the multiverse configuration file.")
	modeFlag := flagSet.String("mode", defaults.Mode, "Analysis mode. Options: 'full', 'continue' or 'test'.")
	outputDirFlag := flagSet.String("output-dir", defaults.OutputDir, "Directory for run artifacts and aggregated results.")
	universeFlag := flagSet.String("universe", "", "Path to a script executed once per universe (command executor shortcut).")
	runnerFlag := flagSet.String("runner", "", "Name of a registered in-process runner (runner executor shortcut).")
	seedFlag := flagSet.Int64("seed", seedDefault, "Seed forwarded to every universe.")
	uidFlag := flagSet.String("u-id", "", "Visit only the universe whose ID starts with this prefix.")
	workersFlag := flagSet.Int("workers", defaults.Workers, "Number of concurrent universe visits. 0 picks a host-based default.")
	visitTimeoutFlag := flagSet.Duration("visit-timeout", defaults.VisitTimeout, "Per-universe execution timeout. 0 disables the timeout.")
	gridOnlyFlag := flagSet.Bool("grid-only", false, "Export the universe grid and exit without visiting.")
	gridFormatFlag := flagSet.String("grid-format", defaults.GridFormat, "Grid export format. Options: 'json', 'csv' or 'none'.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	statusPortFlag := flagSet.Int("status-port", defaults.StatusPort, "Port for the HTTP status server. 0 is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	configPath := *configFlag
	if configPath == "" && flagSet.NArg() > 0 {
		configPath = flagSet.Arg(0)
	}
	slog.Debug("Configuration path determined.", "path", configPath)

	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath:   configPath,
		OutputDir:    *outputDirFlag,
		Mode:         strings.ToLower(*modeFlag),
		UniverseID:   *uidFlag,
		Runner:       *runnerFlag,
		Universe:     *universeFlag,
		Seed:         *seedFlag,
		SeedSet:      seedSet,
		Workers:      *workersFlag,
		VisitTimeout: *visitTimeoutFlag,
		GridFormat:   strings.ToLower(*gridFormatFlag),
		GridOnly:     *gridOnlyFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		StatusPort:   *statusPortFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
