package analysis

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/multiversego/internal/executor"
	"github.com/vk/multiversego/internal/grid"
	"github.com/vk/multiversego/internal/runstore"
)

func newOrchestrator(t *testing.T, exec executor.Executor, workers int) (*Orchestrator, *runstore.Store) {
	t.Helper()
	store := runstore.New(t.TempDir())
	o, err := New(Options{
		Executor: exec,
		Store:    store,
		Seed:     80539,
		Workers:  workers,
	})
	require.NoError(t, err)
	return o, store
}

func runnerExecutor(t *testing.T, fn executor.Runner) executor.Executor {
	t.Helper()
	registry := executor.NewRegistry()
	registry.RegisterRunner("test", fn)
	exec, err := executor.NewRunnerExecutor(registry, "test")
	require.NoError(t, err)
	return exec
}

func mustUniverse(t *testing.T, params map[string]any) grid.Universe {
	t.Helper()
	u, err := grid.NewUniverse(params)
	require.NoError(t, err)
	return u
}

func readArtifact(t *testing.T, path string) (header, row []string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "an artifact holds exactly one data row")
	return records[0], records[1]
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		return nil, nil
	})

	_, err := New(Options{Store: runstore.New(t.TempDir())})
	require.Error(t, err)

	_, err = New(Options{Executor: exec})
	require.Error(t, err)

	o, err := New(Options{Executor: exec, Store: runstore.New(t.TempDir())})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, o.Workers(), 1)
}

func TestVisit_WritesArtifactAndTrace(t *testing.T) {
	t.Parallel()
	var gotPayload *executor.Payload
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		gotPayload = p
		return map[string]any{"note": "ok", "accuracy": 0.93}, nil
	})
	o, store := newOrchestrator(t, exec, 1)
	u := mustUniverse(t, map[string]any{"scaler": "standard", "folds": 5})

	err := o.Visit(context.Background(), 3, u)
	require.NoError(t, err)

	// The payload carries the full visit context for the executor.
	require.NotNil(t, gotPayload)
	assert.Equal(t, u.ID(), gotPayload.UniverseID)
	assert.Equal(t, 3, gotPayload.RunNo)
	assert.Equal(t, store.Root(), gotPayload.OutputDir)
	assert.Equal(t, int64(80539), gotPayload.Seed)
	assert.Equal(t, u.Params(), gotPayload.Dimensions)

	artifactPath, err := store.ArtifactPath(3, u.ID())
	require.NoError(t, err)
	header, row := readArtifact(t, artifactPath)
	assert.Equal(t, []string{
		"mv_universe_id", "mv_run_no", "mv_execution_time",
		"mv_dim_folds", "mv_dim_scaler",
		"accuracy", "note",
	}, header)
	assert.Equal(t, u.ID(), row[0])
	assert.Equal(t, "3", row[1])
	elapsed, err := strconv.ParseFloat(row[2], 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 0.0)
	assert.Equal(t, []string{"5", "standard", "0.93", "ok"}, row[3:])

	tracePath, err := store.TracePath(3, u.ID())
	require.NoError(t, err)
	data, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	var trace map[string]any
	require.NoError(t, json.Unmarshal(data, &trace))
	assert.Equal(t, u.ID(), trace["universe_id"])
	assert.Equal(t, float64(3), trace["run_no"])
	assert.Equal(t, float64(80539), trace["seed"])
	assert.Equal(t, "runner:test", trace["executor"])
	assert.Equal(t, map[string]any{"note": "ok", "accuracy": 0.93}, trace["columns"])
	assert.NotContains(t, trace, "error")

	visited, failed := o.Progress()
	assert.Equal(t, int64(1), visited)
	assert.Equal(t, int64(0), failed)
}

func TestVisit_FailureWritesTraceButNoArtifact(t *testing.T) {
	t.Parallel()
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		return nil, errors.New("model diverged")
	})
	o, store := newOrchestrator(t, exec, 1)
	u := mustUniverse(t, map[string]any{"scaler": "robust"})

	err := o.Visit(context.Background(), 1, u)

	var execErr *executor.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, u.ID(), execErr.UniverseID)

	artifactPath, pathErr := store.ArtifactPath(1, u.ID())
	require.NoError(t, pathErr)
	assert.NoFileExists(t, artifactPath, "a failed visit must leave the universe missing")

	tracePath, pathErr := store.TracePath(1, u.ID())
	require.NoError(t, pathErr)
	data, readErr := os.ReadFile(tracePath)
	require.NoError(t, readErr)
	var trace map[string]any
	require.NoError(t, json.Unmarshal(data, &trace))
	assert.Contains(t, trace["error"], "model diverged")

	visited, failed := o.Progress()
	assert.Equal(t, int64(0), visited)
	assert.Equal(t, int64(1), failed)
}

func TestVisit_RevisitOverwritesInPlace(t *testing.T) {
	t.Parallel()
	score := 0.1
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		return map[string]any{"score": score}, nil
	})
	o, store := newOrchestrator(t, exec, 1)
	u := mustUniverse(t, map[string]any{"x": "a"})

	require.NoError(t, o.Visit(context.Background(), 2, u))
	score = 0.9
	require.NoError(t, o.Visit(context.Background(), 2, u))

	dataDir, err := store.RunDir(2, runstore.DataDir)
	require.NoError(t, err)
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	artifactPath, err := store.ArtifactPath(2, u.ID())
	require.NoError(t, err)
	header, row := readArtifact(t, artifactPath)
	assert.Equal(t, "score", header[len(header)-1])
	assert.Equal(t, "0.9", row[len(row)-1])
}

func TestVisit_DropsCollidingExecutorColumns(t *testing.T) {
	t.Parallel()
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		return map[string]any{"mv_run_no": 99, "score": 1.0}, nil
	})
	o, store := newOrchestrator(t, exec, 1)
	u := mustUniverse(t, map[string]any{"x": "a"})

	require.NoError(t, o.Visit(context.Background(), 1, u))

	artifactPath, err := store.ArtifactPath(1, u.ID())
	require.NoError(t, err)
	header, row := readArtifact(t, artifactPath)
	assert.Equal(t, []string{"mv_universe_id", "mv_run_no", "mv_execution_time", "mv_dim_x", "score"}, header)
	assert.Equal(t, "1", row[1], "the reserved run number column wins over the executor's")
}

func TestVisit_TimeoutBoundsLongVisit(t *testing.T) {
	t.Parallel()
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
			return map[string]any{}, nil
		}
	})
	store := runstore.New(t.TempDir())
	o, err := New(Options{
		Executor:     exec,
		Store:        store,
		Workers:      1,
		VisitTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	err = o.Visit(context.Background(), 1, mustUniverse(t, map[string]any{"x": "a"}))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestVisitAll_VisitsEveryUniverse(t *testing.T) {
	t.Parallel()
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		return map[string]any{"echo": p.Dimensions["x"]}, nil
	})
	o, store := newOrchestrator(t, exec, 3)

	dim, err := grid.NewDimension("x", []any{"a", "b", "c", "d"})
	require.NoError(t, err)
	universes, err := grid.Generate([]grid.Dimension{dim}, nil)
	require.NoError(t, err)

	report, err := o.VisitAll(context.Background(), 1, universes)

	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 4, report.Visited)
	assert.Empty(t, report.Failed)
	assert.Zero(t, report.Skipped)
	assert.True(t, report.Complete())

	for _, u := range universes {
		path, err := store.ArtifactPath(1, u.ID())
		require.NoError(t, err)
		assert.FileExists(t, path)
	}
}

func TestVisitAll_FailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		if p.Dimensions["x"] == "b" {
			return nil, errors.New("singular matrix")
		}
		return map[string]any{"ok": true}, nil
	})
	o, store := newOrchestrator(t, exec, 2)

	dim, err := grid.NewDimension("x", []any{"a", "b", "c"})
	require.NoError(t, err)
	universes, err := grid.Generate([]grid.Dimension{dim}, nil)
	require.NoError(t, err)
	failedID, err := grid.UniverseID(map[string]any{"x": "b"})
	require.NoError(t, err)

	report, err := o.VisitAll(context.Background(), 1, universes)

	require.NoError(t, err, "a failed universe must not fail the batch")
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Visited)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, failedID, report.Failed[0].UniverseID)
	assert.Contains(t, report.Failed[0].Err.Error(), "singular matrix")
	assert.False(t, report.Complete())
	assert.Contains(t, report.String(), "2/3 universes visited")
	assert.Contains(t, report.String(), "1 failed")

	for _, u := range universes {
		path, err := store.ArtifactPath(1, u.ID())
		require.NoError(t, err)
		if u.ID() == failedID {
			assert.NoFileExists(t, path)
		} else {
			assert.FileExists(t, path)
		}
	}
}

func TestVisitAll_CancelSkipsQueuedVisits(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	exec := runnerExecutor(t, func(ctx context.Context, p *executor.Payload) (map[string]any, error) {
		// The first visit cancels the run; with a single worker every
		// queued universe after it must be skipped, not visited.
		once.Do(cancel)
		return map[string]any{}, nil
	})
	o, _ := newOrchestrator(t, exec, 1)

	dim, err := grid.NewDimension("x", []any{"a", "b", "c", "d"})
	require.NoError(t, err)
	universes, err := grid.Generate([]grid.Dimension{dim}, nil)
	require.NoError(t, err)

	report, err := o.VisitAll(ctx, 1, universes)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Visited, "the in-flight visit runs to completion")
	assert.Equal(t, 3, report.Skipped)
	assert.Empty(t, report.Failed)
	assert.Contains(t, report.String(), "3 skipped")
}
