package integration_tests

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// artifactPaths lists the per-universe result files of run 1, sorted by name.
func artifactPaths(t *testing.T, outputDir string) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(outputDir, "runs", "1", "data", "m_1-*.csv"))
	require.NoError(t, err)
	return paths
}
