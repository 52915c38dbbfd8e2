package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDimension(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewDimension("", []any{"a"})
		require.Error(t, err)
	})

	t.Run("rejects empty option list", func(t *testing.T) {
		_, err := NewDimension("x", nil)
		require.ErrorContains(t, err, "no options")
	})

	t.Run("rejects duplicates after normalization", func(t *testing.T) {
		_, err := NewDimension("n", []any{1, 1.0})
		var dup *DuplicateOptionError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "n", dup.Dimension)
	})

	t.Run("rejects duplicate sequences", func(t *testing.T) {
		_, err := NewDimension("layers", []any{[]string{"a", "b"}, []any{"a", "b"}})
		var dup *DuplicateOptionError
		require.ErrorAs(t, err, &dup)
	})

	t.Run("distinguishes string from number", func(t *testing.T) {
		d, err := NewDimension("n", []any{1, "1"})
		require.NoError(t, err)
		assert.Equal(t, []any{1.0, "1"}, d.Options())
	})

	t.Run("normalizes options in declaration order", func(t *testing.T) {
		d, err := NewDimension("k", []any{10, 5, 1})
		require.NoError(t, err)
		assert.Equal(t, "k", d.Name())
		assert.Equal(t, []any{10.0, 5.0, 1.0}, d.Options())
	})
}

func TestNewUniverse(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty parameters", func(t *testing.T) {
		_, err := NewUniverse(nil)
		require.Error(t, err)
	})

	t.Run("normalizes values", func(t *testing.T) {
		u, err := NewUniverse(map[string]any{"n": 5, "tags": []string{"a"}})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": 5.0, "tags": []any{"a"}}, u.Params())
	})

	t.Run("rejects unsupported values", func(t *testing.T) {
		_, err := NewUniverse(map[string]any{"bad": map[string]int{"k": 1}})
		require.ErrorContains(t, err, `parameter "bad"`)
	})
}

func TestUniverse_Immutable(t *testing.T) {
	t.Parallel()

	u, err := NewUniverse(map[string]any{"layers": []string{"conv", "dense"}, "opt": "adam"})
	require.NoError(t, err)
	originalID := u.ID()

	// Mutating the returned copies must not leak back into the universe.
	params := u.Params()
	params["layers"].([]any)[0] = "mutated"
	params["extra"] = true

	fresh := u.Params()
	assert.Equal(t, []any{"conv", "dense"}, fresh["layers"])
	assert.NotContains(t, fresh, "extra")
	assert.Equal(t, originalID, u.ID())

	v, ok := u.Value("layers")
	require.True(t, ok)
	v.([]any)[1] = "mutated"
	fresh = u.Params()
	assert.Equal(t, []any{"conv", "dense"}, fresh["layers"])

	_, ok = u.Value("missing")
	assert.False(t, ok)
}
