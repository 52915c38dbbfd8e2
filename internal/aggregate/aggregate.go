package aggregate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/fsutil"
)

// NA is the placeholder written where an artifact has no value for a column.
const NA = "NA"

// Reserved columns every artifact carries, in their fixed leading order.
var reservedColumns = []string{"mv_universe_id", "mv_run_no", "mv_execution_time"}

const dimColumnPrefix = "mv_dim_"

// ErrNoArtifacts is returned when an aggregation finds nothing to collect.
var ErrNoArtifacts = errors.New("no result artifacts found")

// Table is the consolidated result set of one run. Columns is the union of
// all artifact columns: the reserved identity and timing columns first, then
// the dimension columns sorted by name, then every other column in
// first-seen order. Rows follow artifact scan order, and cells missing from
// an artifact hold NA.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// UniverseIDs returns the distinct universe IDs present in the table, in
// row order.
func (t *Table) UniverseIDs() []string {
	idx := t.Column("mv_universe_id")
	if idx < 0 {
		return nil
	}
	var ids []string
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		id := row[idx]
		if id == "" || id == NA || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

type artifact struct {
	path   string
	header []string
	rows   []map[string]string
}

// Aggregate collects every *.csv artifact under dataDir into one table. The
// compressed snapshot of a previous aggregation does not match the suffix
// scan, so aggregating is repeatable. Returns ErrNoArtifacts when the scan
// comes up empty.
func Aggregate(ctx context.Context, dataDir string) (*Table, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := fsutil.FindFilesByExtension(dataDir, ".csv")
	if err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoArtifacts, dataDir)
	}
	logger.Debug("Collecting result artifacts.", "count", len(paths), "dir", dataDir)

	artifacts := make([]artifact, 0, len(paths))
	for _, path := range paths {
		a, err := readArtifact(path)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	columns := unionColumns(artifacts)
	table := &Table{Columns: columns}
	for _, a := range artifacts {
		for _, cells := range a.rows {
			row := make([]string, len(columns))
			for i, col := range columns {
				value, ok := cells[col]
				if !ok {
					value = NA
				}
				row[i] = value
			}
			table.Rows = append(table.Rows, row)
		}
	}
	return table, nil
}

func readArtifact(path string) (artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return artifact{}, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if len(records) == 0 {
		return artifact{}, fmt.Errorf("artifact %s is empty", path)
	}

	a := artifact{path: path, header: records[0]}
	for _, record := range records[1:] {
		cells := make(map[string]string, len(record))
		for i, col := range a.header {
			if i < len(record) {
				cells[col] = record[i]
			}
		}
		a.rows = append(a.rows, cells)
	}
	return a, nil
}

// unionColumns merges the artifact headers: reserved columns lead, dimension
// columns follow sorted by name, everything else keeps first-seen order.
func unionColumns(artifacts []artifact) []string {
	present := make(map[string]bool)
	var dims []string
	var rest []string
	for _, a := range artifacts {
		for _, col := range a.header {
			if present[col] {
				continue
			}
			present[col] = true
			switch {
			case isReserved(col):
			case strings.HasPrefix(col, dimColumnPrefix):
				dims = append(dims, col)
			default:
				rest = append(rest, col)
			}
		}
	}
	sort.Strings(dims)

	columns := make([]string, 0, len(present))
	for _, col := range reservedColumns {
		if present[col] {
			columns = append(columns, col)
		}
	}
	columns = append(columns, dims...)
	columns = append(columns, rest...)
	return columns
}

func isReserved(col string) bool {
	for _, reserved := range reservedColumns {
		if col == reserved {
			return true
		}
	}
	return false
}
