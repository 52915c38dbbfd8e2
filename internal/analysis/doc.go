// Package analysis orchestrates the parallel visiting of universes. Each
// visit builds the parameter payload for one universe, delegates to the
// configured executor, and persists a result artifact plus an execution
// trace under the run directory. Visits are independent units of work with
// no data dependency on each other, so a bounded worker pool fans them out
// and a failure in one universe never aborts the rest of the batch.
package analysis
