// Package aggregate consolidates the per-universe result artifacts of a run
// into a single table, snapshots that table to a compressed CSV, and
// reconciles it against the expected grid to find universes that are
// missing or were never part of the grid at all.
package aggregate
