package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Runner is an in-process unit of analysis: one function invoked per
// universe visit, returning the result columns for that universe.
type Runner func(ctx context.Context, payload *Payload) (map[string]any, error)

// Module is the interface that all in-process analysis modules must
// implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered in-process runners for a single
// application instance.
type Registry struct {
	runners map[string]Runner
}

// NewRegistry creates and initializes a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]Runner),
	}
}

// RegisterRunner registers an in-process runner under a unique name.
func (r *Registry) RegisterRunner(name string, fn Runner) {
	if _, exists := r.runners[name]; exists {
		panic(fmt.Sprintf("runner with name '%s' already registered", name))
	}
	slog.Debug("Registering runner.", "name", name)
	r.runners[name] = fn
}

// Runner looks up a registered runner by name.
func (r *Registry) Runner(name string) (Runner, bool) {
	fn, ok := r.runners[name]
	return fn, ok
}

// Names returns the registered runner names in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunnerExecutor adapts a registered in-process runner to the Executor
// interface.
type RunnerExecutor struct {
	name string
	fn   Runner
}

// NewRunnerExecutor resolves name against the registry.
func NewRunnerExecutor(registry *Registry, name string) (*RunnerExecutor, error) {
	if name == "" {
		return nil, fmt.Errorf("no runner named (registered: %s)", strings.Join(registry.Names(), ", "))
	}
	fn, ok := registry.Runner(name)
	if !ok {
		return nil, fmt.Errorf("unknown runner %q (registered: %s)", name, strings.Join(registry.Names(), ", "))
	}
	return &RunnerExecutor{name: name, fn: fn}, nil
}

func (e *RunnerExecutor) Name() string { return "runner:" + e.name }

// Execute invokes the runner function. A panicking runner is recorded as a
// failed visit, not a crashed batch.
func (e *RunnerExecutor) Execute(ctx context.Context, payload *Payload) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExecutionError{
				UniverseID: payload.UniverseID,
				Executor:   e.Name(),
				Err:        fmt.Errorf("runner panicked: %v", r),
			}
		}
	}()

	columns, runErr := e.fn(ctx, payload)
	if runErr != nil {
		return nil, &ExecutionError{UniverseID: payload.UniverseID, Executor: e.Name(), Err: runErr}
	}
	return &Result{Columns: columns}, nil
}
