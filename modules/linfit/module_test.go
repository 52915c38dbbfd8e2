package linfit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/multiversego/internal/executor"
)

func TestOnVisitLinfit_RecoversGroundTruth(t *testing.T) {
	t.Parallel()
	payload := &executor.Payload{
		UniverseID: "abc123",
		Dimensions: map[string]any{
			"slope":     2.0,
			"intercept": 1.0,
			"noise":     0.01,
			"samples":   float64(200),
		},
		Seed: 80539,
	}

	columns, err := OnVisitLinfit(context.Background(), payload)

	require.NoError(t, err)
	assert.InDelta(t, 2.0, columns["est_slope"], 0.05)
	assert.InDelta(t, 1.0, columns["est_intercept"], 0.05)
	assert.Less(t, columns["rmse"].(float64), 0.05)
	assert.Equal(t, 200, columns["samples"])
}

func TestOnVisitLinfit_DeterministicForSameSeed(t *testing.T) {
	t.Parallel()
	payload := &executor.Payload{
		Dimensions: map[string]any{"slope": 0.5, "noise": 0.2},
		Seed:       42,
	}

	first, err := OnVisitLinfit(context.Background(), payload)
	require.NoError(t, err)
	second, err := OnVisitLinfit(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestOnVisitLinfit_TooFewSamples(t *testing.T) {
	t.Parallel()
	payload := &executor.Payload{
		Dimensions: map[string]any{"samples": float64(1)},
	}

	_, err := OnVisitLinfit(context.Background(), payload)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 samples")
}

func TestModule_Register(t *testing.T) {
	t.Parallel()
	registry := executor.NewRegistry()

	(&Module{}).Register(registry)

	_, ok := registry.Runner("linfit")
	assert.True(t, ok)
}
