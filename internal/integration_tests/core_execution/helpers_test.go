package integration_tests

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// readFile returns the trimmed content of a small text file.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

// artifactPaths lists the per-universe result files of a run, sorted by name.
func artifactPaths(t *testing.T, outputDir string, runNo int) []string {
	t.Helper()
	run := strconv.Itoa(runNo)
	paths, err := filepath.Glob(filepath.Join(outputDir, "runs", run, "data", "m_"+run+"-*.csv"))
	require.NoError(t, err)
	return paths
}

// tracePaths lists the per-universe trace files of a run, sorted by name.
func tracePaths(t *testing.T, outputDir string, runNo int) []string {
	t.Helper()
	run := strconv.Itoa(runNo)
	paths, err := filepath.Glob(filepath.Join(outputDir, "runs", run, "notebooks", "m_"+run+"-*.json"))
	require.NoError(t, err)
	return paths
}

// readArtifact parses a result CSV into its header and data rows.
func readArtifact(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records, "artifact %s has no rows", path)
	return records[0], records[1:]
}

// columnValue returns the named column of an artifact's single data row.
func columnValue(t *testing.T, path, column string) string {
	t.Helper()
	header, rows := readArtifact(t, path)
	require.NotEmpty(t, rows, "artifact %s has no data row", path)
	for i, name := range header {
		if name == column {
			return rows[0][i]
		}
	}
	t.Fatalf("column %q not found in %s (header: %v)", column, path, header)
	return ""
}
