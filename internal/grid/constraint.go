package grid

import "fmt"

// constraintKind discriminates the two constraint forms.
type constraintKind int

const (
	kindRequireAll constraintKind = iota + 1
	kindForbidAny
)

// Constraint is a conditional rule attached to one specific option value of
// a dimension. The RequireAll form permits the value only while every listed
// condition matches the universe; the ForbidAny form rejects the value as
// soon as any listed condition matches.
type Constraint struct {
	value any
	kind  constraintKind
	conds map[string]any
}

// ConstraintError reports a malformed constraint declaration.
type ConstraintError struct {
	Dimension string
	Reason    string
}

func (e *ConstraintError) Error() string {
	if e.Dimension == "" {
		return "invalid constraint: " + e.Reason
	}
	return fmt.Sprintf("invalid constraint on dimension %q: %s", e.Dimension, e.Reason)
}

// RequireAll builds the allowed_if constraint form: value is permitted only
// when every dimension→value pair in conds matches the universe.
func RequireAll(value any, conds map[string]any) (Constraint, error) {
	return newConstraint(value, kindRequireAll, conds)
}

// ForbidAny builds the forbidden_if constraint form: value is rejected when
// any dimension→value pair in conds matches the universe.
func ForbidAny(value any, conds map[string]any) (Constraint, error) {
	return newConstraint(value, kindForbidAny, conds)
}

// NewConstraint builds a constraint from its raw decoded form. Exactly one
// of allowedIf and forbiddenIf must be present; anything else is rejected
// rather than silently defaulted.
func NewConstraint(value any, allowedIf, forbiddenIf map[string]any) (Constraint, error) {
	switch {
	case allowedIf != nil && forbiddenIf != nil:
		return Constraint{}, &ConstraintError{Reason: "both allowed_if and forbidden_if are present"}
	case allowedIf != nil:
		return RequireAll(value, allowedIf)
	case forbiddenIf != nil:
		return ForbidAny(value, forbiddenIf)
	default:
		return Constraint{}, &ConstraintError{Reason: "neither allowed_if nor forbidden_if is present"}
	}
}

func newConstraint(value any, kind constraintKind, conds map[string]any) (Constraint, error) {
	if len(conds) == 0 {
		return Constraint{}, &ConstraintError{Reason: "constraint has no conditions"}
	}
	normValue, err := normalizeValue(value)
	if err != nil {
		return Constraint{}, &ConstraintError{Reason: fmt.Sprintf("constrained value: %v", err)}
	}
	normConds := make(map[string]any, len(conds))
	for dim, want := range conds {
		norm, err := normalizeValue(want)
		if err != nil {
			return Constraint{}, &ConstraintError{Reason: fmt.Sprintf("condition on %q: %v", dim, err)}
		}
		normConds[dim] = norm
	}
	return Constraint{value: normValue, kind: kind, conds: normConds}, nil
}

// Value returns the normalized option value this constraint governs.
func (c Constraint) Value() any { return copyValue(c.value) }

// permits reports whether a universe passes this constraint. The caller has
// already established that the universe's choice matches c.value.
func (c Constraint) permits(params map[string]any) bool {
	switch c.kind {
	case kindRequireAll:
		for dim, want := range c.conds {
			got, ok := params[dim]
			if !ok || !valueEqual(got, want) {
				return false
			}
		}
		return true
	case kindForbidAny:
		for dim, want := range c.conds {
			if got, ok := params[dim]; ok && valueEqual(got, want) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
