package runstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FreshRootAllocatesRunOne(t *testing.T) {
	t.Parallel()
	store := New(filepath.Join(t.TempDir(), "output"))

	runNo, err := store.Resolve(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, 1, runNo)

	data, err := os.ReadFile(filepath.Join(store.Root(), "counter.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestResolve_ContinueDoesNotIncrement(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())
	ctx := context.Background()

	runNo, err := store.Resolve(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, runNo, "a fresh root has no runs to continue")
	assert.NoFileExists(t, filepath.Join(store.Root(), "counter.txt"),
		"resolving without increment should not write the counter")

	runNo, err = store.Resolve(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, runNo)

	runNo, err = store.Resolve(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, runNo)

	runNo, err = store.Resolve(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, runNo)
}

func TestResolve_MalformedCounter(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "counter.txt"), []byte("banana"), 0644))

	_, err := store.Resolve(context.Background(), true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed run counter")
}

func TestResolve_ConcurrentIncrementsAreUnique(t *testing.T) {
	t.Parallel()
	const workers = 8
	store := New(t.TempDir())

	var wg sync.WaitGroup
	results := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNo, err := store.Resolve(context.Background(), true)
			assert.NoError(t, err)
			results <- runNo
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for runNo := range results {
		assert.False(t, seen[runNo], "run number %d allocated twice", runNo)
		seen[runNo] = true
	}
	for i := 1; i <= workers; i++ {
		assert.True(t, seen[i], "run number %d was never allocated", i)
	}
}

func TestRunDir_CreatesLayout(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())

	dir, err := store.RunDir(3, DataDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "runs", "3", "data"), dir)
	assert.DirExists(t, dir)
}

func TestPathNaming(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())
	const id = "0f3a2b60de1c9f7a4e5b6c7d8e9f0a1b"

	testCases := []struct {
		name string
		path func() (string, error)
		want string
	}{
		{
			name: "artifact",
			path: func() (string, error) { return store.ArtifactPath(2, id) },
			want: filepath.Join("runs", "2", "data", fmt.Sprintf("m_2-%s.csv", id)),
		},
		{
			name: "trace",
			path: func() (string, error) { return store.TracePath(2, id) },
			want: filepath.Join("runs", "2", "notebooks", fmt.Sprintf("m_2-%s.json", id)),
		},
		{
			name: "snapshot",
			path: func() (string, error) { return store.SnapshotPath(2) },
			want: filepath.Join("runs", "2", "data", "agg_2_run_outputs.csv.gz"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.path()
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(store.Root(), tc.want), got)
			assert.DirExists(t, filepath.Dir(got))
		})
	}
}

func TestGridPath(t *testing.T) {
	t.Parallel()
	store := New(t.TempDir())

	assert.Equal(t, filepath.Join(store.Root(), "multiverse_grid.json"), store.GridPath("json"))
	assert.Equal(t, filepath.Join(store.Root(), "multiverse_grid.csv"), store.GridPath("csv"))
}
