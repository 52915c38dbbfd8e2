package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vk/multiversego/internal/aggregate"
	"github.com/vk/multiversego/internal/analysis"
	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/executor"
	"github.com/vk/multiversego/internal/grid"
	"github.com/vk/multiversego/internal/runstore"
)

// Run executes the main application logic: generate the grid, resolve the
// run number, fan the visits out, then aggregate and reconcile the results.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.StatusPort > 0 {
		a.startStatusServer(a.config.StatusPort)
		defer a.closeStatusServer()
	}

	universes, err := grid.BuildFromConfig(a.model)
	if err != nil {
		return fmt.Errorf("failed to build universe grid: %w", err)
	}
	a.logger.Info("Universe grid generated.", "universes", len(universes), "dimensions", len(a.model.Dimensions))

	if err := a.exportGrid(universes); err != nil {
		return err
	}
	if a.config.GridOnly {
		a.logger.Info("Grid-only invocation, skipping execution.")
		return nil
	}
	if len(universes) == 0 {
		a.logger.Warn("⚠️ Constraints eliminated every universe, nothing to visit.")
		return nil
	}

	exec, err := a.buildExecutor()
	if err != nil {
		return err
	}
	a.logger.Debug("Executor selected.", "executor", exec.Name())

	runNo, err := a.store.Resolve(ctx, a.config.Mode != ModeContinue)
	if err != nil {
		return err
	}
	a.logger.Info("Run number resolved.", "run_no", runNo, "mode", a.config.Mode)

	orch, err := analysis.New(analysis.Options{
		Executor:     exec,
		Store:        a.store,
		Seed:         a.effectiveSeed(),
		Workers:      a.config.Workers,
		VisitTimeout: a.config.VisitTimeout,
	})
	if err != nil {
		return err
	}

	targets, err := a.selectTargets(ctx, runNo, universes)
	if err != nil {
		return err
	}
	a.setProgress(orch, runNo, len(targets))

	if len(targets) > 0 {
		a.logger.Info("🚀 Starting multiverse analysis...", "universes", len(targets), "run_no", runNo, "workers", orch.Workers())
		report, err := orch.VisitAll(ctx, runNo, targets)
		if err != nil {
			a.logger.Warn("Run cancelled.", "report", report.String())
			return err
		}
		a.logger.Info("🏁 Execution finished.", "report", report.String())
		for _, failure := range report.Failed {
			a.logger.Error("Universe failed.", "universe_id", failure.UniverseID, "error", failure.Err)
		}
	} else {
		a.logger.Info("Nothing to visit, every universe is already accounted for.", "run_no", runNo)
	}

	if err := a.finishRun(ctx, runNo, universes); err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// exportGrid persists the generated grid at the output root, unless the
// export format is none.
func (a *App) exportGrid(universes []grid.Universe) error {
	if a.config.GridFormat == GridFormatNone {
		a.logger.Debug("Grid export skipped.")
		return nil
	}
	if err := a.store.EnsureRoot(); err != nil {
		return err
	}

	path := a.store.GridPath(a.config.GridFormat)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grid file: %w", err)
	}
	defer f.Close()

	switch a.config.GridFormat {
	case GridFormatCSV:
		err = grid.WriteCSV(f, universes)
	default:
		err = grid.WriteJSON(f, universes)
	}
	if err != nil {
		return fmt.Errorf("export grid: %w", err)
	}
	a.logger.Info("Universe grid exported.", "path", path)
	return nil
}

// buildExecutor honors the command line overrides before falling back to the
// configured executor.
func (a *App) buildExecutor() (executor.Executor, error) {
	switch {
	case a.config.Runner != "":
		return executor.NewRunnerExecutor(a.registry, a.config.Runner)
	case a.config.Universe != "":
		return executor.NewCommandExecutor(commandForScript(a.config.Universe))
	default:
		return executor.FromConfig(a.model.Executor, a.registry)
	}
}

// commandForScript maps a universe script path to an argv. Python scripts
// run through the interpreter; anything else executes directly.
func commandForScript(path string) []string {
	if strings.HasSuffix(path, ".py") {
		return []string{"python3", path}
	}
	return []string{path}
}

// effectiveSeed resolves the seed precedence: explicit command line flag,
// then the config file, then the default.
func (a *App) effectiveSeed() int64 {
	if a.config.SeedSet {
		return a.config.Seed
	}
	if a.model.Seed != nil {
		return *a.model.Seed
	}
	return a.config.Seed
}

// selectTargets narrows the grid to what this invocation should visit.
func (a *App) selectTargets(ctx context.Context, runNo int, universes []grid.Universe) ([]grid.Universe, error) {
	if a.config.UniverseID != "" {
		u, err := grid.FindByIDPrefix(universes, a.config.UniverseID)
		if err != nil {
			return nil, err
		}
		a.logger.Info("Selected a single universe by ID prefix.", "universe_id", u.ID())
		return []grid.Universe{u}, nil
	}

	switch a.config.Mode {
	case ModeContinue:
		return a.missingUniverses(ctx, runNo, universes)
	case ModeTest:
		if len(universes) > 1 {
			a.logger.Info("Test mode, visiting the first and last universe only.")
			return []grid.Universe{universes[0], universes[len(universes)-1]}, nil
		}
		return universes, nil
	default:
		return universes, nil
	}
}

// missingUniverses reconciles the current run's artifacts against the grid
// and returns only the universes without a result.
func (a *App) missingUniverses(ctx context.Context, runNo int, universes []grid.Universe) ([]grid.Universe, error) {
	dataDir, err := a.store.RunDir(runNo, runstore.DataDir)
	if err != nil {
		return nil, err
	}

	table, err := aggregate.Aggregate(ctx, dataDir)
	if err != nil {
		if !errors.Is(err, aggregate.ErrNoArtifacts) {
			return nil, err
		}
		a.logger.Warn("Run has no artifacts yet, visiting every universe.", "run_no", runNo)
		table = nil
	}

	report := aggregate.Check(universes, table)
	a.logger.Info("Continuing run.", "run_no", runNo, "missing", len(report.MissingIDs), "visited", len(universes)-len(report.MissingIDs))
	return report.MissingUniverses, nil
}

// finishRun aggregates the run's artifacts, snapshots and summarizes them,
// and reconciles the result set against the expected grid.
func (a *App) finishRun(ctx context.Context, runNo int, universes []grid.Universe) error {
	dataDir, err := a.store.RunDir(runNo, runstore.DataDir)
	if err != nil {
		return err
	}

	table, err := aggregate.Aggregate(ctx, dataDir)
	if err != nil {
		if errors.Is(err, aggregate.ErrNoArtifacts) {
			report := aggregate.Check(universes, nil)
			a.logger.Warn("⚠️ Multiverse incomplete.", "missing", len(report.MissingIDs), "extra", 0)
		}
		return fmt.Errorf("aggregation failed: %w", err)
	}

	snapshotPath, err := a.store.SnapshotPath(runNo)
	if err != nil {
		return err
	}
	if err := aggregate.WriteSnapshot(snapshotPath, table); err != nil {
		return err
	}
	a.logger.Info("Results aggregated.", "rows", len(table.Rows), "snapshot", snapshotPath)

	summary := aggregate.Summarize(table)
	if err := summary.Render(a.outW); err != nil {
		return err
	}

	report := aggregate.Check(universes, table)
	if report.Clean() {
		a.logger.Info("✅ All universes accounted for.", "universes", len(universes))
		return nil
	}
	a.logger.Warn("⚠️ Multiverse incomplete.", "missing", len(report.MissingIDs), "extra", len(report.ExtraIDs))
	for _, id := range report.MissingIDs {
		a.logger.Debug("Universe missing from results.", "universe_id", id)
	}
	for _, id := range report.ExtraIDs {
		a.logger.Debug("Result does not match any universe in the grid.", "universe_id", id)
	}
	return nil
}
