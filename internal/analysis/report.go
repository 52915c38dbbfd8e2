package analysis

import (
	"fmt"
	"strings"
	"time"
)

// VisitFailure records one universe whose visit failed.
type VisitFailure struct {
	UniverseID string
	Err        error
}

// BatchReport summarizes one batch of visits. Failed holds one entry per
// universe whose executor failed, sorted by universe ID; Skipped counts
// universes that never started because the run was cancelled.
type BatchReport struct {
	Total   int
	Visited int
	Failed  []VisitFailure
	Skipped int
	Elapsed time.Duration
}

// Complete reports whether every universe in the batch was visited
// successfully.
func (r *BatchReport) Complete() bool {
	return r.Visited == r.Total
}

// String renders a one-line summary for logs.
func (r *BatchReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d universes visited in %s", r.Visited, r.Total, r.Elapsed.Round(time.Millisecond))
	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, ", %d failed", len(r.Failed))
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", r.Skipped)
	}
	return b.String()
}
