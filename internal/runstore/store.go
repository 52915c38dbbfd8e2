// Package runstore manages the persistent run state of an output root: the
// monotonic run counter and the per-run directory layout, plus the naming of
// every artifact the engine writes.
package runstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/vk/multiversego/internal/ctxlog"
)

const (
	counterFile = "counter.txt"
	lockFile    = "counter.lock"

	// DataDir holds one result artifact per visited universe plus the
	// consolidated snapshot.
	DataDir = "data"
	// TraceDir holds one execution trace per visited universe.
	TraceDir = "notebooks"

	lockRetryDelay = 50 * time.Millisecond
)

// Store binds the run counter and directory layout to one output root. Two
// processes sharing a root coordinate through the counter lock; everything
// else is partitioned by run number and universe ID.
type Store struct {
	root string
}

// New creates a store for the given output root. The root itself is created
// lazily on first use.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the output root path.
func (s *Store) Root() string { return s.root }

// EnsureRoot creates the output root if it does not exist yet.
func (s *Store) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}
	return nil
}

// Resolve returns the run number for this invocation. With increment set, a
// fresh number is allocated by writing counter+1 back; otherwise the current
// counter value is returned unchanged, which is how a continued run finds
// its predecessor. The read-modify-write runs under an exclusive file lock
// so concurrent invocations against the same root cannot allocate the same
// run number.
func (s *Store) Resolve(ctx context.Context, increment bool) (int, error) {
	logger := ctxlog.FromContext(ctx)

	if err := s.EnsureRoot(); err != nil {
		return 0, err
	}

	lock := flock.New(filepath.Join(s.root, lockFile))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("acquire run counter lock: %w", err)
	}
	if !locked {
		return 0, errors.New("run counter lock unavailable")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to release run counter lock.", "error", err)
		}
	}()

	runNo, err := s.readCounter()
	if err != nil {
		return 0, err
	}
	if !increment {
		logger.Debug("Reusing current run number.", "run_no", runNo)
		return runNo, nil
	}

	runNo++
	if err := s.writeCounter(runNo); err != nil {
		return 0, err
	}
	logger.Debug("Allocated new run number.", "run_no", runNo)
	return runNo, nil
}

func (s *Store) readCounter() (int, error) {
	data, err := os.ReadFile(filepath.Join(s.root, counterFile))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read run counter: %w", err)
	}
	text := strings.TrimSpace(string(data))
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("malformed run counter %q: %w", text, err)
	}
	return n, nil
}

func (s *Store) writeCounter(n int) error {
	if err := os.WriteFile(filepath.Join(s.root, counterFile), []byte(strconv.Itoa(n)), 0644); err != nil {
		return fmt.Errorf("write run counter: %w", err)
	}
	return nil
}

// RunDir returns <root>/runs/<runNo>, or a subdirectory of it when sub is
// non-empty, creating the path on first access. MkdirAll makes concurrent
// first use by several workers safe.
func (s *Store) RunDir(runNo int, sub string) (string, error) {
	dir := filepath.Join(s.root, "runs", strconv.Itoa(runNo))
	if sub != "" {
		dir = filepath.Join(dir, sub)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return dir, nil
}

// ArtifactPath returns the result artifact path for one universe of a run.
// The name is a pure function of run number and universe ID, which is what
// makes re-visits overwrite in place.
func (s *Store) ArtifactPath(runNo int, universeID string) (string, error) {
	dir, err := s.RunDir(runNo, DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("m_%d-%s.csv", runNo, universeID)), nil
}

// TracePath returns the execution trace path for one universe of a run.
func (s *Store) TracePath(runNo int, universeID string) (string, error) {
	dir, err := s.RunDir(runNo, TraceDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("m_%d-%s.json", runNo, universeID)), nil
}

// SnapshotPath returns the consolidated snapshot path for a run. The .gz
// suffix keeps it out of the aggregator's *.csv artifact scan.
func (s *Store) SnapshotPath(runNo int) (string, error) {
	dir, err := s.RunDir(runNo, DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("agg_%d_run_outputs.csv.gz", runNo)), nil
}

// GridPath returns the exported grid path for the given format extension.
func (s *Store) GridPath(format string) string {
	return filepath.Join(s.root, "multiverse_grid."+format)
}
