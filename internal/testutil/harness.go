// Package testutil provides shared helpers for integration-style tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/multiversego/internal/app"
	"github.com/vk/multiversego/internal/executor"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run. ConfigPath
// and OutputDir let follow-up invocations (continued runs) reuse the same
// configuration and output root.
type HarnessResult struct {
	LogOutput  string
	Err        error
	App        *app.App
	ConfigPath string
	OutputDir  string
}

// RunIntegrationTest writes the given configuration file into a fresh temp
// directory, runs a full application lifecycle against it, and captures the
// log output. The mutate callback adjusts the app config before the run;
// modules replace the built-in runner set when given.
func RunIntegrationTest(t *testing.T, configName, configContent string, mutate func(*app.Config), modules ...executor.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, configName, configContent, mutate, modules...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided
// context, for cancellation scenarios.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, configName, configContent string, mutate func(*app.Config), modules ...executor.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, configName)
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := app.NewConfig(app.Config{
		ConfigPath: configPath,
		OutputDir:  filepath.Join(tmpDir, "output"),
		Mode:       app.ModeFull,
		Seed:       app.DefaultSeed,
		Workers:    2,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	var logBuf SafeBuffer

	// NewApp panics on unloadable configuration. The harness converts that
	// into an error so tests can assert on startup failures.
	var multiverseApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		multiverseApp = app.NewApp(&logBuf, cfg, modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput:  logBuf.String(),
			Err:        fmt.Errorf("application startup panicked | %v", panicErr),
			App:        nil,
			ConfigPath: configPath,
			OutputDir:  cfg.OutputDir,
		}
	}

	runErr := multiverseApp.Run(ctx)

	return &HarnessResult{
		LogOutput:  logBuf.String(),
		Err:        runErr,
		App:        multiverseApp,
		ConfigPath: configPath,
		OutputDir:  cfg.OutputDir,
	}
}
