package configload

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/multiversego/internal/config"
	"github.com/vk/multiversego/internal/ctxlog"
)

type yamlConstraint struct {
	Value       any            `yaml:"value"`
	AllowedIf   map[string]any `yaml:"allowed_if"`
	ForbiddenIf map[string]any `yaml:"forbidden_if"`
}

type yamlExecutor struct {
	Type    string            `yaml:"type"`
	Command []string          `yaml:"command"`
	Runner  string            `yaml:"runner"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// YAMLLoader is the YAML implementation of the config.Loader interface.
type YAMLLoader struct{}

// NewYAMLLoader creates a new YAML configuration loader.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{}
}

// Load parses a YAML configuration file. The document is decoded through
// yaml.Node instead of a plain map because node content preserves the
// mapping order of the dimensions block.
func (l *YAMLLoader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML config loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("YAML file %s holds no document", path)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML file %s: top level must be a mapping", path)
	}

	model := &config.Model{}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		switch keyNode.Value {
		case "seed":
			var seed int64
			if err := valNode.Decode(&seed); err != nil {
				return nil, fmt.Errorf("invalid seed: %w", err)
			}
			model.Seed = &seed

		case "dimensions":
			if valNode.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("dimensions must be a mapping")
			}
			for j := 0; j+1 < len(valNode.Content); j += 2 {
				name := valNode.Content[j].Value
				var options []any
				if err := valNode.Content[j+1].Decode(&options); err != nil {
					return nil, fmt.Errorf("dimension %q: options must be a sequence: %w", name, err)
				}
				model.Dimensions = append(model.Dimensions, config.Dimension{
					Name:    name,
					Options: options,
				})
			}

		case "constraints":
			var raw map[string][]yamlConstraint
			if err := valNode.Decode(&raw); err != nil {
				return nil, fmt.Errorf("invalid constraints: %w", err)
			}
			for dim, cs := range raw {
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

		case "executor":
			var ex yamlExecutor
			if err := valNode.Decode(&ex); err != nil {
				return nil, fmt.Errorf("invalid executor: %w", err)
			}
			model.Executor = &config.Executor{
				Type:    ex.Type,
				Command: ex.Command,
				Runner:  ex.Runner,
				URL:     ex.URL,
				Headers: ex.Headers,
			}
		}
	}

	logger.Debug("YAML loading complete.",
		"dimensions", len(model.Dimensions),
		"constrained_dimensions", len(model.Constraints),
		"has_executor", model.Executor != nil,
	)
	return model, nil
}
