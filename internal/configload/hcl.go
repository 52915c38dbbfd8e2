package configload

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/multiversego/internal/config"
	"github.com/vk/multiversego/internal/ctxlog"
	"github.com/vk/multiversego/internal/schema"
)

// HCLLoader is the HCL implementation of the config.Loader interface.
type HCLLoader struct{}

// NewHCLLoader creates a new HCL configuration loader.
func NewHCLLoader() *HCLLoader {
	return &HCLLoader{}
}

// Load parses an HCL configuration file and translates it into the
// format-agnostic model. Dimension blocks keep their source order.
func (l *HCLLoader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL config loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root schema.Config
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	model := &config.Model{Seed: root.Seed}

	for _, block := range root.Dimensions {
		dim, err := l.translateDimension(block)
		if err != nil {
			return nil, err
		}
		model.Dimensions = append(model.Dimensions, dim)
	}

	for _, block := range root.Constraints {
		c, err := l.translateConstraint(block)
		if err != nil {
			return nil, err
		}
		if model.Constraints == nil {
			model.Constraints = make(map[string][]config.Constraint)
		}
		model.Constraints[block.Dimension] = append(model.Constraints[block.Dimension], c)
	}

	if root.Executor != nil {
		model.Executor = &config.Executor{
			Type:    root.Executor.Type,
			Command: root.Executor.Command,
			Runner:  root.Executor.Runner,
			URL:     root.Executor.URL,
			Headers: root.Executor.Headers,
		}
	}

	logger.Debug("HCL loading complete.",
		"dimensions", len(model.Dimensions),
		"constrained_dimensions", len(model.Constraints),
		"has_executor", model.Executor != nil,
	)
	return model, nil
}

// translateDimension evaluates a dimension block's options expression into
// native values.
func (l *HCLLoader) translateDimension(block *schema.Dimension) (config.Dimension, error) {
	val, diags := block.Options.Value(nil)
	if diags.HasErrors() {
		return config.Dimension{}, fmt.Errorf("dimension %q: invalid options: %w", block.Name, diags)
	}
	native, err := ctyToNative(val)
	if err != nil {
		return config.Dimension{}, fmt.Errorf("dimension %q: %w", block.Name, err)
	}
	options, ok := native.([]any)
	if !ok {
		return config.Dimension{}, fmt.Errorf("dimension %q: options must be a list", block.Name)
	}
	return config.Dimension{Name: block.Name, Options: options}, nil
}

// translateConstraint evaluates a constraint block's expressions. Absent
// optional attributes stay nil so the grid builder can check the
// exactly-one-of rule.
func (l *HCLLoader) translateConstraint(block *schema.Constraint) (config.Constraint, error) {
	value, err := exprToNative(block.Value)
	if err != nil {
		return config.Constraint{}, fmt.Errorf("constraint on %q: invalid value: %w", block.Dimension, err)
	}

	c := config.Constraint{Value: value}

	if isExprDefined(block.AllowedIf) {
		conds, err := exprToConditionMap(block.AllowedIf)
		if err != nil {
			return config.Constraint{}, fmt.Errorf("constraint on %q: invalid allowed_if: %w", block.Dimension, err)
		}
		c.AllowedIf = conds
	}
	if isExprDefined(block.ForbiddenIf) {
		conds, err := exprToConditionMap(block.ForbiddenIf)
		if err != nil {
			return config.Constraint{}, fmt.Errorf("constraint on %q: invalid forbidden_if: %w", block.Dimension, err)
		}
		c.ForbiddenIf = conds
	}

	return c, nil
}

func exprToNative(expr hcl.Expression) (any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToNative(val)
}

func exprToConditionMap(expr hcl.Expression) (map[string]any, error) {
	native, err := exprToNative(expr)
	if err != nil {
		return nil, err
	}
	conds, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object of dimension = value pairs, got %T", native)
	}
	return conds, nil
}

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder populates optional fields with non-nil, zero-width
// expression objects, so a simple nil check is insufficient: a real
// attribute occupies bytes in the file, while a placeholder for an omitted
// attribute has a range whose start and end byte are the same.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	exprRange := expr.Range()
	return exprRange.End.Byte > exprRange.Start.Byte
}
