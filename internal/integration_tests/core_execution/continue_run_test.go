package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/multiversego/internal/app"
	"github.com/vk/multiversego/internal/testutil"
)

// TestCoreExecution_ContinueRun validates resumability: after a completed run
// loses one artifact, a continue-mode invocation reuses the same run number,
// re-visits exactly the missing universe, and leaves the rest untouched.
func TestCoreExecution_ContinueRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	configHCL := `
dimension "scaler" {
  options = ["standard", "minmax"]
}

dimension "folds" {
  options = [5, 10]
}

executor {
  type   = "runner"
  runner = "echo"
}
`
	first := testutil.RunIntegrationTest(t, "multiverse.hcl", configHCL, nil)
	require.NoError(t, first.Err)

	artifacts := artifactPaths(t, first.OutputDir, 1)
	require.Len(t, artifacts, 4)

	// Simulate a lost result.
	require.NoError(t, os.Remove(artifacts[0]))

	// --- Act ---
	cfg, err := app.NewConfig(app.Config{
		ConfigPath: first.ConfigPath,
		OutputDir:  first.OutputDir,
		Mode:       app.ModeContinue,
		Seed:       app.DefaultSeed,
		Workers:    2,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	var logBuf testutil.SafeBuffer
	secondErr := app.NewApp(&logBuf, cfg).Run(context.Background())

	// --- Assert ---
	require.NoError(t, secondErr, "the continue run returned an unexpected error")

	counter := readFile(t, filepath.Join(first.OutputDir, "counter.txt"))
	assert.Equal(t, "1", counter, "continue mode must not allocate a new run number")

	assert.Len(t, artifactPaths(t, first.OutputDir, 1), 4, "the missing artifact should be recreated in place")

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "Continuing run.")
	assert.Contains(t, logOutput, "missing=1")
	assert.Contains(t, logOutput, "1/1 universes visited")
	assert.Contains(t, logOutput, "✅ All universes accounted for.")
}

// TestCoreExecution_ContinueRunWithNothingMissing validates that a continue
// invocation over a complete run visits nothing and still reconciles cleanly.
func TestCoreExecution_ContinueRunWithNothingMissing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	configHCL := `
dimension "x" {
  options = ["a", "b"]
}

executor {
  type   = "runner"
  runner = "echo"
}
`
	first := testutil.RunIntegrationTest(t, "multiverse.hcl", configHCL, nil)
	require.NoError(t, first.Err)
	require.Len(t, artifactPaths(t, first.OutputDir, 1), 2)

	// --- Act ---
	cfg, err := app.NewConfig(app.Config{
		ConfigPath: first.ConfigPath,
		OutputDir:  first.OutputDir,
		Mode:       app.ModeContinue,
		Seed:       app.DefaultSeed,
		Workers:    2,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	var logBuf testutil.SafeBuffer
	secondErr := app.NewApp(&logBuf, cfg).Run(context.Background())

	// --- Assert ---
	require.NoError(t, secondErr)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "Nothing to visit, every universe is already accounted for.")
	assert.Contains(t, logOutput, "✅ All universes accounted for.")
	assert.NotContains(t, logOutput, "🚀", "no visit should have been started")
}
