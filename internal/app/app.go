package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/multiversego/internal/analysis"
	"github.com/vk/multiversego/internal/config"
	"github.com/vk/multiversego/internal/configload"
	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/executor"
	"github.com/vk/multiversego/internal/runstore"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	registry *executor.Registry
	store    *runstore.Store

	httpServer *http.Server

	// progress feeds the status endpoint while a batch is in flight.
	progressMu sync.Mutex
	progress   batchProgress
}

type batchProgress struct {
	orch  *analysis.Orchestrator
	mode  string
	runNo int
	total int
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A configuration that cannot be located or loaded is a fatal startup error
// and panics; the entrypoint recovers it into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, modules ...executor.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	configPath := appConfig.ConfigPath
	if configPath == "" {
		found, err := configload.Discover(".")
		if err != nil {
			panic(fmt.Errorf("failed to locate configuration: %w", err))
		}
		configPath = found
		logger.Debug("Configuration file discovered.", "path", configPath)
	}

	model, err := configload.Load(ctx, configPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.", "path", configPath, "dimensions", len(model.Dimensions))

	registry := executor.NewRegistry()
	if len(modules) == 0 {
		modules = coreRunners
	}
	for _, mod := range modules {
		mod.Register(registry)
	}
	logger.Debug("All runner modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		model:    model,
		registry: registry,
		store:    runstore.New(appConfig.OutputDir),
	}
}

// Registry returns the application's runner registry. This is primarily for
// testing.
func (a *App) Registry() *executor.Registry {
	return a.registry
}

// Model returns the loaded configuration model. This is primarily for
// testing.
func (a *App) Model() *config.Model {
	return a.model
}
