package grid

import (
	"fmt"

	"github.com/vk/multiversego/internal/config"
)

// BuildFromConfig translates the raw configuration model into validated
// dimensions and constraints, then generates the grid. It is the single
// entry point from any configuration format, so every loader shares the
// same validation and error paths.
func BuildFromConfig(model *config.Model) ([]Universe, error) {
	dims := make([]Dimension, 0, len(model.Dimensions))
	for _, d := range model.Dimensions {
		dim, err := NewDimension(d.Name, d.Options)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}

	var constraints map[string][]Constraint
	for dimName, cs := range model.Constraints {
		for _, rc := range cs {
			c, err := NewConstraint(rc.Value, rc.AllowedIf, rc.ForbiddenIf)
			if err != nil {
				return nil, fmt.Errorf("constraint on dimension %q: %w", dimName, err)
			}
			if constraints == nil {
				constraints = make(map[string][]Constraint)
			}
			constraints[dimName] = append(constraints[dimName], c)
		}
	}

	return Generate(dims, constraints)
}
