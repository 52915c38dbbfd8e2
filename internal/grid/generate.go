package grid

import (
	"errors"
	"fmt"
)

// ErrNoDimensions is returned by Generate when no dimensions are declared.
var ErrNoDimensions = errors.New("no dimensions declared")

// Generate builds the multiverse grid: the full cartesian product of the
// dimensions' options in declaration order, filtered by the given
// constraints. The first dimension varies slowest, so the enumeration order
// is deterministic and the same input always yields the same ordered list.
func Generate(dims []Dimension, constraints map[string][]Constraint) ([]Universe, error) {
	if len(dims) == 0 {
		return nil, ErrNoDimensions
	}

	declared := make(map[string]struct{}, len(dims))
	for _, d := range dims {
		if len(d.options) == 0 {
			return nil, fmt.Errorf("dimension %q declares no options", d.name)
		}
		if _, dup := declared[d.name]; dup {
			return nil, fmt.Errorf("duplicate dimension %q", d.name)
		}
		declared[d.name] = struct{}{}
	}

	if err := validateConstraints(declared, constraints); err != nil {
		return nil, err
	}

	total := 1
	for _, d := range dims {
		total *= len(d.options)
	}

	universes := make([]Universe, 0, total)
	indices := make([]int, len(dims))
	for {
		params := make(map[string]any, len(dims))
		for i, d := range dims {
			params[d.name] = d.options[indices[i]]
		}
		if satisfies(params, constraints) {
			universes = append(universes, newUniverse(params))
		}

		// Advance the odometer; the last dimension ticks fastest.
		i := len(dims) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(dims[i].options) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			return universes, nil
		}
	}
}

// validateConstraints checks that every constraint is bound to a declared
// dimension and that its conditions reference only other declared dimensions.
func validateConstraints(declared map[string]struct{}, constraints map[string][]Constraint) error {
	for dim, cs := range constraints {
		if _, ok := declared[dim]; !ok {
			return &ConstraintError{Dimension: dim, Reason: "unknown dimension"}
		}
		for _, c := range cs {
			for condDim := range c.conds {
				if condDim == dim {
					return &ConstraintError{Dimension: dim, Reason: "condition references its own dimension"}
				}
				if _, ok := declared[condDim]; !ok {
					return &ConstraintError{Dimension: dim, Reason: fmt.Sprintf("condition references unknown dimension %q", condDim)}
				}
			}
		}
	}
	return nil
}

// satisfies evaluates every constraint applicable to a combination. A
// constraint applies when its governed value equals the combination's choice
// on the constrained dimension; one failing applicable constraint drops the
// combination, with no partial credit.
func satisfies(params map[string]any, constraints map[string][]Constraint) bool {
	for dim, cs := range constraints {
		chosen, ok := params[dim]
		if !ok {
			continue
		}
		for _, c := range cs {
			if !valueEqual(chosen, c.value) {
				continue
			}
			if !c.permits(params) {
				return false
			}
		}
	}
	return true
}
