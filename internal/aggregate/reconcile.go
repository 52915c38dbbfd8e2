package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/multiversego/internal/grid"
)

// ReconciliationReport lists the differences between the expected grid and
// the universes present in an aggregated table. A non-clean report is a
// warning to the operator, never an error.
type ReconciliationReport struct {
	// MissingIDs are expected universes with no result row, sorted.
	MissingIDs []string
	// ExtraIDs appear in the results but not in the grid, sorted. They
	// usually mean the configuration changed between runs.
	ExtraIDs []string
	// MissingUniverses holds the full parameter sets behind MissingIDs in
	// grid order, ready to be handed back to the orchestrator.
	MissingUniverses []grid.Universe
}

// Clean reports whether results and grid match exactly.
func (r *ReconciliationReport) Clean() bool {
	return len(r.MissingIDs) == 0 && len(r.ExtraIDs) == 0
}

// String renders a one-line summary for logs.
func (r *ReconciliationReport) String() string {
	if r.Clean() {
		return "all universes accounted for"
	}
	var parts []string
	if len(r.MissingIDs) > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", len(r.MissingIDs)))
	}
	if len(r.ExtraIDs) > 0 {
		parts = append(parts, fmt.Sprintf("%d extra", len(r.ExtraIDs)))
	}
	return strings.Join(parts, ", ")
}

// Check reconciles the expected grid against an aggregated table. A nil
// table stands for a run with no artifacts at all, which makes every
// universe missing.
func Check(universes []grid.Universe, table *Table) *ReconciliationReport {
	visited := make(map[string]bool)
	if table != nil {
		for _, id := range table.UniverseIDs() {
			visited[id] = true
		}
	}

	expected := make(map[string]bool, len(universes))
	report := &ReconciliationReport{}
	for _, u := range universes {
		expected[u.ID()] = true
		if !visited[u.ID()] {
			report.MissingIDs = append(report.MissingIDs, u.ID())
			report.MissingUniverses = append(report.MissingUniverses, u)
		}
	}
	for id := range visited {
		if !expected[id] {
			report.ExtraIDs = append(report.ExtraIDs, id)
		}
	}

	sort.Strings(report.MissingIDs)
	sort.Strings(report.ExtraIDs)
	return report
}
