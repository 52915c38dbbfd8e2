package analysis

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/executor"
	"github.com/vk/multiversego/internal/grid"
	"github.com/vk/multiversego/internal/runstore"
)

// Options configures an Orchestrator.
type Options struct {
	// Executor runs the unit of analysis for each universe.
	Executor executor.Executor
	// Store names artifacts and run directories.
	Store *runstore.Store
	// Seed is forwarded to every executor invocation.
	Seed int64
	// Workers bounds the pool size. Zero or negative means all but one of
	// the available CPUs.
	Workers int
	// VisitTimeout caps a single visit. Zero disables the deadline, since
	// a visit may legitimately block for minutes.
	VisitTimeout time.Duration
}

// Orchestrator fans universe visits out over a worker pool and records the
// outcome of every visit.
type Orchestrator struct {
	exec    executor.Executor
	store   *runstore.Store
	seed    int64
	workers int
	timeout time.Duration

	visited atomic.Int64
	failed  atomic.Int64
}

// New validates the options and creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Executor == nil {
		return nil, errors.New("orchestrator needs an executor")
	}
	if opts.Store == nil {
		return nil, errors.New("orchestrator needs a run store")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
		if workers < 1 {
			workers = 1
		}
	}
	return &Orchestrator{
		exec:    opts.Executor,
		store:   opts.Store,
		seed:    opts.Seed,
		workers: workers,
		timeout: opts.VisitTimeout,
	}, nil
}

// Workers returns the effective pool size.
func (o *Orchestrator) Workers() int { return o.workers }

// Progress reports the cumulative visit counters across all batches run by
// this orchestrator. Safe to call concurrently with VisitAll.
func (o *Orchestrator) Progress() (visited, failed int64) {
	return o.visited.Load(), o.failed.Load()
}

// VisitAll visits every universe in the slice concurrently and returns a
// report of the batch. A failed visit is recorded in the report and the
// batch carries on; cancelling ctx stops dispatch of not-yet-started visits
// while in-flight ones run to completion. The returned error is non-nil only
// when the run was cancelled.
func (o *Orchestrator) VisitAll(ctx context.Context, runNo int, universes []grid.Universe) (*BatchReport, error) {
	logger := ctxlog.FromContext(ctx)
	started := time.Now()

	jobs := make(chan grid.Universe, len(universes))
	for _, u := range universes {
		jobs <- u
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []VisitFailure
		visited  int
		skipped  int
	)

	logger.Info("Starting worker pool.", "workers", o.workers, "universes", len(universes))
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go o.worker(ctx, runNo, jobs, &wg, i, func(failure *VisitFailure) {
			mu.Lock()
			defer mu.Unlock()
			switch {
			case failure == nil:
				visited++
			case failure.Err == nil:
				skipped++
			default:
				failures = append(failures, *failure)
			}
		})
	}

	logger.Info("Waiting for all universe visits to complete...")
	wg.Wait()
	logger.Info("All universe visits completed.")

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].UniverseID < failures[j].UniverseID
	})

	report := &BatchReport{
		Total:   len(universes),
		Visited: visited,
		Failed:  failures,
		Skipped: skipped,
		Elapsed: time.Since(started),
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// worker is the core processing loop for a single concurrent worker. The
// record callback is invoked once per job: nil for success, a failure with
// nil Err for a skip, and a failure with a non-nil Err otherwise.
func (o *Orchestrator) worker(ctx context.Context, runNo int, jobs chan grid.Universe, wg *sync.WaitGroup, workerID int, record func(*VisitFailure)) {
	defer wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for u := range jobs {
		workerLogger := logger.With("workerID", workerID, "universe_id", u.ID())

		if ctx.Err() != nil {
			workerLogger.Warn("Run cancelled, skipping universe visit.")
			record(&VisitFailure{UniverseID: u.ID()})
			continue
		}

		workerLogger.Debug("Worker picked up universe for visiting.")
		if err := o.Visit(ctx, runNo, u); err != nil {
			workerLogger.Error("Universe visit failed.", "error", err)
			record(&VisitFailure{UniverseID: u.ID(), Err: err})
			continue
		}
		record(nil)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
