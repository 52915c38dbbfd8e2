// Package echo provides the built-in smoke test runner. It reflects each
// universe's dimensions back as result columns without doing any analysis,
// which makes the full orchestration path testable end to end.
package echo

import (
	"context"

	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/executor"
)

// Module implements the executor.Module interface for this package.
type Module struct{}

// OnVisitEcho is the handler for the 'echo' runner. It returns one column
// per dimension plus the seed the visit ran with.
func OnVisitEcho(ctx context.Context, payload *executor.Payload) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Echoing universe parameters.", "universe_id", payload.UniverseID)

	columns := make(map[string]any, len(payload.Dimensions)+1)
	for name, value := range payload.Dimensions {
		columns["echo_"+name] = value
	}
	columns["echo_seed"] = payload.Seed
	return columns, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *executor.Registry) {
	r.RegisterRunner("echo", OnVisitEcho)
}
