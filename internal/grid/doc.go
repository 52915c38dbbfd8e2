// Package grid generates the multiverse grid: the ordered, constraint-filtered
// list of every valid combination of analytical decisions, each combination
// carrying a stable content-addressed identity.
package grid
