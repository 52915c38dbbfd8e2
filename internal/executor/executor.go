// Package executor abstracts the unit of analysis behind a single
// synchronous interface. The orchestrator hands an executor the full
// parameter payload for one universe and gets back the result columns that
// universe produced; whether the analysis ran in-process, as a subprocess,
// or as a remote call is the executor's business.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/multiversego/internal/config"
)

// Payload is the full parameter set handed to an executor for one universe
// visit. OutputDir is the output root, not the run directory; executors that
// write supplementary files of their own derive paths from RunNo and
// UniverseID the same way the engine does.
type Payload struct {
	UniverseID string         `json:"universe_id"`
	Dimensions map[string]any `json:"dimensions"`
	RunNo      int            `json:"run_no"`
	OutputDir  string         `json:"output_dir"`
	Seed       int64          `json:"seed"`
}

// Result carries the columns an executor produced for one universe. The
// orchestrator injects the reserved identity, run, and timing columns
// itself; executors only ever report their own measurements. Output holds
// whatever the analysis printed while running and ends up in the execution
// trace, not the artifact.
type Result struct {
	Columns map[string]any
	Output  string
}

// Executor runs the unit of analysis for a single universe.
type Executor interface {
	// Name identifies the backend in logs and error markers.
	Name() string
	// Execute runs the analysis synchronously, honoring ctx for
	// cancellation and deadlines. Failures are reported as *ExecutionError.
	Execute(ctx context.Context, payload *Payload) (*Result, error)
}

// ExecutionError marks a failure of the analysis for one universe. It is
// recorded against that universe and never aborts the rest of the batch.
type ExecutionError struct {
	UniverseID string
	Executor   string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executor %q failed for universe %s: %v", e.Executor, e.UniverseID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// FromConfig builds the executor named by the configuration. Type "runner"
// resolves against the given registry of in-process runners.
func FromConfig(cfg *config.Executor, registry *Registry) (Executor, error) {
	if cfg == nil {
		return nil, errors.New("no executor configured")
	}
	switch cfg.Type {
	case "command":
		return NewCommandExecutor(cfg.Command)
	case "runner":
		return NewRunnerExecutor(registry, cfg.Runner)
	case "http":
		return NewHTTPExecutor(cfg.URL, cfg.Headers)
	default:
		return nil, fmt.Errorf("unsupported executor type %q (supported: command, runner, http)", cfg.Type)
	}
}
