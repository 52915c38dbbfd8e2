package grid

import (
	"errors"
	"fmt"
	"reflect"
)

// Dimension is a single analytical decision: a name plus the closed, ordered
// list of option values it may take.
type Dimension struct {
	name    string
	options []any
}

// DuplicateOptionError reports an option value declared more than once within
// a single dimension, compared after value normalization.
type DuplicateOptionError struct {
	Dimension string
	Value     any
}

func (e *DuplicateOptionError) Error() string {
	return fmt.Sprintf("dimension %q declares duplicate option %v", e.Dimension, e.Value)
}

// NewDimension validates a dimension declaration and normalizes its option
// values to their canonical shape. Duplicate options after normalization are
// rejected, so e.g. 1 and 1.0 count as the same option.
func NewDimension(name string, options []any) (Dimension, error) {
	if name == "" {
		return Dimension{}, errors.New("dimension name must not be empty")
	}
	if len(options) == 0 {
		return Dimension{}, fmt.Errorf("dimension %q declares no options", name)
	}

	normalized := make([]any, len(options))
	seen := make(map[string]struct{}, len(options))
	for i, opt := range options {
		norm, err := normalizeValue(opt)
		if err != nil {
			return Dimension{}, fmt.Errorf("dimension %q, option %d: %w", name, i, err)
		}
		key := canonicalJSON(norm)
		if _, dup := seen[key]; dup {
			return Dimension{}, &DuplicateOptionError{Dimension: name, Value: norm}
		}
		seen[key] = struct{}{}
		normalized[i] = norm
	}

	return Dimension{name: name, options: normalized}, nil
}

// Name returns the dimension's name.
func (d Dimension) Name() string { return d.name }

// Options returns a copy of the normalized option values in declaration order.
func (d Dimension) Options() []any {
	out := make([]any, len(d.options))
	for i, opt := range d.options {
		out[i] = copyValue(opt)
	}
	return out
}

// Universe is one full assignment of an option value to every dimension. It
// is immutable once constructed; its identity is computed eagerly.
type Universe struct {
	params map[string]any
	id     string
}

// NewUniverse builds a universe from a raw parameter mapping, normalizing
// every value. It is the entry point for universes reconstructed from
// external data; Generate produces already-normalized universes itself.
func NewUniverse(params map[string]any) (Universe, error) {
	if len(params) == 0 {
		return Universe{}, errors.New("universe parameters must not be empty")
	}
	normalized := make(map[string]any, len(params))
	for name, value := range params {
		norm, err := normalizeValue(value)
		if err != nil {
			return Universe{}, fmt.Errorf("parameter %q: %w", name, err)
		}
		normalized[name] = norm
	}
	return newUniverse(normalized), nil
}

// newUniverse wraps an already-normalized parameter mapping without copying.
func newUniverse(params map[string]any) Universe {
	return Universe{params: params, id: universeID(params)}
}

// ID returns the universe's content-addressed identity: a 32-character hex
// fingerprint of the parameter mapping.
func (u Universe) ID() string { return u.id }

// Params returns a deep copy of the parameter mapping.
func (u Universe) Params() map[string]any {
	out := make(map[string]any, len(u.params))
	for name, value := range u.params {
		out[name] = copyValue(value)
	}
	return out
}

// Value returns the universe's choice on the named dimension.
func (u Universe) Value(dimension string) (any, bool) {
	v, ok := u.params[dimension]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// Equal reports whether two universes carry the same parameter mapping.
func (u Universe) Equal(other Universe) bool {
	return u.id == other.id && reflect.DeepEqual(u.params, other.params)
}
