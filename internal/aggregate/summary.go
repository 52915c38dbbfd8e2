package aggregate

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TimeStats describes the execution time distribution of a run in seconds.
type TimeStats struct {
	Min   float64
	Mean  float64
	Max   float64
	Total float64
}

// Summary holds the operator-facing statistics of one aggregated run.
type Summary struct {
	Rows          int
	Universes     int
	ResultColumns int
	// SuccessRate is the share of rows without an error marker. This
	// engine never writes failed artifacts, so the rate drops below 1
	// only when foreign artifacts bring an mv_error column in.
	SuccessRate   float64
	ExecutionTime TimeStats
}

// Summarize computes run statistics from an aggregated table. Cells holding
// NA or unparseable times are left out of the time distribution.
func Summarize(table *Table) *Summary {
	summary := &Summary{
		Rows:        len(table.Rows),
		Universes:   len(table.UniverseIDs()),
		SuccessRate: 1,
	}
	for _, col := range table.Columns {
		if !isReserved(col) && !strings.HasPrefix(col, dimColumnPrefix) {
			summary.ResultColumns++
		}
	}
	if idx := table.Column("mv_error"); idx >= 0 && len(table.Rows) > 0 {
		succeeded := 0
		for _, row := range table.Rows {
			if row[idx] == "" || row[idx] == NA {
				succeeded++
			}
		}
		summary.SuccessRate = float64(succeeded) / float64(len(table.Rows))
	}

	idx := table.Column("mv_execution_time")
	if idx < 0 {
		return summary
	}
	var times []float64
	for _, row := range table.Rows {
		value, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			continue
		}
		times = append(times, value)
	}
	if len(times) == 0 {
		return summary
	}

	stats := TimeStats{Min: times[0], Max: times[0]}
	for _, t := range times {
		stats.Total += t
		if t < stats.Min {
			stats.Min = t
		}
		if t > stats.Max {
			stats.Max = t
		}
	}
	stats.Mean = stats.Total / float64(len(times))
	summary.ExecutionTime = stats
	return summary
}

// Render writes the summary as an aligned text block.
func (s *Summary) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "result rows\t%d\n", s.Rows)
	fmt.Fprintf(tw, "universes\t%d\n", s.Universes)
	fmt.Fprintf(tw, "result columns\t%d\n", s.ResultColumns)
	fmt.Fprintf(tw, "success rate\t%.1f%%\n", s.SuccessRate*100)
	fmt.Fprintf(tw, "execution time (s)\tmin %.3f / mean %.3f / max %.3f / total %.3f\n",
		s.ExecutionTime.Min, s.ExecutionTime.Mean, s.ExecutionTime.Max, s.ExecutionTime.Total)
	return tw.Flush()
}
