// Package linfit provides a deterministic demo analysis: it synthesizes a
// noisy linear dataset from the universe's dimensions and the run seed,
// fits it with closed-form least squares, and reports the estimates. Two
// visits with the same dimensions and seed produce identical columns.
package linfit

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/executor"
)

// Module implements the executor.Module interface for this package.
type Module struct{}

// Recognized dimensions and their defaults when a universe does not declare
// them.
const (
	defaultSlope     = 1.0
	defaultIntercept = 0.0
	defaultNoise     = 0.1
	defaultSamples   = 100
)

// OnVisitLinfit is the handler for the 'linfit' runner.
func OnVisitLinfit(ctx context.Context, payload *executor.Payload) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)

	slope := numberDim(payload.Dimensions, "slope", defaultSlope)
	intercept := numberDim(payload.Dimensions, "intercept", defaultIntercept)
	noise := numberDim(payload.Dimensions, "noise", defaultNoise)
	samples := int(numberDim(payload.Dimensions, "samples", defaultSamples))
	if samples < 2 {
		return nil, fmt.Errorf("linfit needs at least 2 samples, got %d", samples)
	}

	logger.Debug("Fitting synthetic dataset.", "universe_id", payload.UniverseID,
		"slope", slope, "intercept", intercept, "noise", noise, "samples", samples)

	rng := rand.New(rand.NewSource(payload.Seed))
	xs := make([]float64, samples)
	ys := make([]float64, samples)
	for i := range xs {
		x := float64(i) / float64(samples-1)
		xs[i] = x
		ys[i] = slope*x + intercept + noise*rng.NormFloat64()
	}

	estSlope, estIntercept := leastSquares(xs, ys)

	var sumSq float64
	for i := range xs {
		residual := ys[i] - (estSlope*xs[i] + estIntercept)
		sumSq += residual * residual
	}
	rmse := math.Sqrt(sumSq / float64(samples))

	return map[string]any{
		"est_slope":     estSlope,
		"est_intercept": estIntercept,
		"rmse":          rmse,
		"samples":       samples,
	}, nil
}

// numberDim reads a numeric dimension value, falling back when the universe
// does not declare it.
func numberDim(dims map[string]any, name string, fallback float64) float64 {
	value, ok := dims[name]
	if !ok {
		return fallback
	}
	f, ok := value.(float64)
	if !ok {
		return fallback
	}
	return f
}

// leastSquares fits y = a*x + b in closed form.
func leastSquares(xs, ys []float64) (a, b float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	a = (n*sumXY - sumX*sumY) / denom
	b = (sumY - a*sumX) / n
	return a, b
}

// Register registers the handler with the engine.
func (m *Module) Register(r *executor.Registry) {
	r.RegisterRunner("linfit", OnVisitLinfit)
}
