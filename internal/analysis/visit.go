package analysis

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/executor"
	"github.com/vk/multiversego/internal/grid"
)

// Reserved artifact columns owned by the orchestrator. Executors never
// supply these; a colliding executor column is dropped.
const (
	ColUniverseID    = "mv_universe_id"
	ColRunNo         = "mv_run_no"
	ColExecutionTime = "mv_execution_time"
	DimColumnPrefix  = "mv_dim_"
)

// visitTrace is the execution record written next to each universe's
// artifact. Failed visits get a trace too, which is how a half-finished run
// stays debuggable.
type visitTrace struct {
	UniverseID    string         `json:"universe_id"`
	RunNo         int            `json:"run_no"`
	Seed          int64          `json:"seed"`
	Executor      string         `json:"executor"`
	Dimensions    map[string]any `json:"dimensions"`
	StartedAt     time.Time      `json:"started_at"`
	ExecutionTime float64        `json:"execution_time_seconds"`
	Columns       map[string]any `json:"columns,omitempty"`
	Output        string         `json:"output,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Visit runs the unit of analysis for one universe. On success it writes the
// universe's result artifact and execution trace; on failure it writes only
// the trace, so a later continued run treats the universe as missing and
// visits it again. Artifact names are pure functions of run number and
// universe ID, which makes re-visiting idempotent.
func (o *Orchestrator) Visit(ctx context.Context, runNo int, u grid.Universe) error {
	logger := ctxlog.FromContext(ctx).With("universe_id", u.ID(), "run_no", runNo)
	logger.Info("▶️ Visiting universe.")

	payload := &executor.Payload{
		UniverseID: u.ID(),
		Dimensions: u.Params(),
		RunNo:      runNo,
		OutputDir:  o.store.Root(),
		Seed:       o.seed,
	}

	visitCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		visitCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	result, execErr := o.exec.Execute(visitCtx, payload)
	elapsed := time.Since(startedAt).Seconds()

	trace := &visitTrace{
		UniverseID:    u.ID(),
		RunNo:         runNo,
		Seed:          o.seed,
		Executor:      o.exec.Name(),
		Dimensions:    payload.Dimensions,
		StartedAt:     startedAt.UTC(),
		ExecutionTime: elapsed,
	}

	if execErr != nil {
		o.failed.Add(1)
		trace.Error = execErr.Error()
		if traceErr := o.writeTrace(runNo, trace); traceErr != nil {
			logger.Warn("Failed to write execution trace.", "error", traceErr)
		}
		return execErr
	}
	trace.Columns = result.Columns
	trace.Output = result.Output

	if err := o.writeArtifact(ctx, runNo, u, elapsed, result.Columns); err != nil {
		o.failed.Add(1)
		trace.Error = err.Error()
		if traceErr := o.writeTrace(runNo, trace); traceErr != nil {
			logger.Warn("Failed to write execution trace.", "error", traceErr)
		}
		return err
	}
	if err := o.writeTrace(runNo, trace); err != nil {
		logger.Warn("Failed to write execution trace.", "error", err)
	}

	o.visited.Add(1)
	logger.Info("✅ Universe visited.", "execution_time", fmt.Sprintf("%.3fs", elapsed))
	return nil
}

// writeArtifact persists the single-row result CSV for one universe. The
// header starts with the reserved identity and timing columns, then one
// prefixed column per dimension sorted by dimension name, then the
// executor's columns sorted by name.
func (o *Orchestrator) writeArtifact(ctx context.Context, runNo int, u grid.Universe, elapsedSeconds float64, columns map[string]any) error {
	logger := ctxlog.FromContext(ctx)

	path, err := o.store.ArtifactPath(runNo, u.ID())
	if err != nil {
		return err
	}

	params := u.Params()
	dimNames := make([]string, 0, len(params))
	for name := range params {
		dimNames = append(dimNames, name)
	}
	sort.Strings(dimNames)

	header := []string{ColUniverseID, ColRunNo, ColExecutionTime}
	row := []string{
		u.ID(),
		strconv.Itoa(runNo),
		strconv.FormatFloat(elapsedSeconds, 'f', -1, 64),
	}
	reserved := map[string]bool{ColUniverseID: true, ColRunNo: true, ColExecutionTime: true}
	for _, name := range dimNames {
		column := DimColumnPrefix + name
		reserved[column] = true
		header = append(header, column)
		row = append(row, grid.FormatValue(params[name]))
	}

	resultNames := make([]string, 0, len(columns))
	for name := range columns {
		resultNames = append(resultNames, name)
	}
	sort.Strings(resultNames)
	for _, name := range resultNames {
		if reserved[name] {
			logger.Warn("Executor column collides with a reserved column, dropping it.", "column", name, "universe_id", u.ID())
			continue
		}
		header = append(header, name)
		row = append(row, grid.FormatValue(columns[name]))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write artifact header: %w", err)
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write artifact row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func (o *Orchestrator) writeTrace(runNo int, trace *visitTrace) error {
	path, err := o.store.TracePath(runNo, trace.UniverseID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("encode execution trace: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write execution trace: %w", err)
	}
	return nil
}
