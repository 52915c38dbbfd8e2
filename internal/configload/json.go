package configload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vk/multiversego/internal/config"
	"github.com/vk/multiversego/internal/ctxlog"
)

// jsonConfig mirrors the raw JSON document layout. Dimensions stay raw so
// their object key order can be recovered with a token walk.
type jsonConfig struct {
	Seed        *int64                      `json:"seed"`
	Dimensions  json.RawMessage             `json:"dimensions"`
	Constraints map[string][]jsonConstraint `json:"constraints"`
	Executor    *jsonExecutor               `json:"executor"`
}

type jsonConstraint struct {
	Value       any            `json:"value"`
	AllowedIf   map[string]any `json:"allowed_if"`
	ForbiddenIf map[string]any `json:"forbidden_if"`
}

type jsonExecutor struct {
	Type    string            `json:"type"`
	Command []string          `json:"command"`
	Runner  string            `json:"runner"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// JSONLoader is the JSON implementation of the config.Loader interface.
type JSONLoader struct{}

// NewJSONLoader creates a new JSON configuration loader.
func NewJSONLoader() *JSONLoader {
	return &JSONLoader{}
}

// Load parses a JSON configuration file. encoding/json decodes objects into
// unordered maps, so the dimensions object is re-walked token by token to
// keep its declaration order.
func (l *JSONLoader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("JSON config loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file %s: %w", path, err)
	}

	var raw jsonConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON file %s: %w", path, err)
	}

	model := &config.Model{Seed: raw.Seed}

	model.Dimensions, err = parseOrderedDimensions(raw.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("in JSON file %s: %w", path, err)
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

	logger.Debug("JSON loading complete.",
		"dimensions", len(model.Dimensions),
		"constrained_dimensions", len(model.Constraints),
		"has_executor", model.Executor != nil,
	)
	return model, nil
}

// parseOrderedDimensions walks the dimensions object token by token,
// collecting one config.Dimension per key in document order.
func parseOrderedDimensions(raw json.RawMessage) ([]config.Dimension, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("dimensions: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("dimensions must be a JSON object")
	}

	var dims []config.Dimension
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("dimensions: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("dimensions: unexpected key token %v", keyTok)
		}

		var options []any
		if err := dec.Decode(&options); err != nil {
			return nil, fmt.Errorf("dimension %q: options must be a JSON array: %w", name, err)
		}
		dims = append(dims, config.Dimension{Name: name, Options: options})
	}

	return dims, nil
}
