package configload

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/vk/multiversego/internal/config"
	"github.com/vk/multiversego/internal/ctxlog"
)

// tomlConfig mirrors the raw TOML document layout.
type tomlConfig struct {
	Seed        *int64                      `toml:"seed"`
	Dimensions  map[string][]any            `toml:"dimensions"`
	Constraints map[string][]tomlConstraint `toml:"constraints"`
	Executor    *tomlExecutor               `toml:"executor"`
}

type tomlConstraint struct {
	Value       any            `toml:"value"`
	AllowedIf   map[string]any `toml:"allowed_if"`
	ForbiddenIf map[string]any `toml:"forbidden_if"`
}

type tomlExecutor struct {
	Type    string            `toml:"type"`
	Command []string          `toml:"command"`
	Runner  string            `toml:"runner"`
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers"`
}

// TOMLLoader is the TOML implementation of the config.Loader interface.
type TOMLLoader struct{}

// NewTOMLLoader creates a new TOML configuration loader.
func NewTOMLLoader() *TOMLLoader {
	return &TOMLLoader{}
}

// Load parses a TOML configuration file. The decoded dimensions table is an
// unordered map, so declaration order is recovered from the decoder's key
// metadata, which lists keys in order of appearance.
func (l *TOMLLoader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("TOML config loader started.", "path", path)

	var raw tomlConfig
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML file %s: %w", path, err)
	}

	model := &config.Model{Seed: raw.Seed}

	seen := make(map[string]struct{}, len(raw.Dimensions))
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "dimensions" {
			continue
		}
		name := key[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		model.Dimensions = append(model.Dimensions, config.Dimension{
			Name:    name,
			Options: raw.Dimensions[name],
		})
	}

	for dim, cs := range raw.Constraints {
		if model.Constraints == nil {
			model.Constraints = make(map[string][]config.Constraint)
		}
		for _, rc := range cs {
			model.Constraints[dim] = append(model.Constraints[dim], config.Constraint{
				Value:       rc.Value,
				AllowedIf:   rc.AllowedIf,
				ForbiddenIf: rc.ForbiddenIf,
			})
		}
	}

	if raw.Executor != nil {
		model.Executor = &config.Executor{
			Type:    raw.Executor.Type,
			Command: raw.Executor.Command,
			Runner:  raw.Executor.Runner,
			URL:     raw.Executor.URL,
			Headers: raw.Executor.Headers,
		}
	}

	logger.Debug("TOML loading complete.",
		"dimensions", len(model.Dimensions),
		"constrained_dimensions", len(model.Constraints),
		"has_executor", model.Executor != nil,
	)
	return model, nil
}
