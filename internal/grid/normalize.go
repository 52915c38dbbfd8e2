package grid

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// normalizeValue converts a raw option value into the single canonical shape
// used for identity hashing and equality checks: strings and bools pass
// through, every numeric type becomes float64, sequences become []any with
// normalized elements. Maps, nil, and non-finite numbers are rejected so that
// every accepted value has exactly one serialized form.
func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, errors.New("null values are not supported")
	case string:
		return val, nil
	case bool:
		return val, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite number %v is not supported", f)
		}
		return f, nil
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			norm, err := normalizeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = norm
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported option value of type %T", v)
	}
}

// valueEqual compares two normalized values.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// copyValue deep-copies a normalized value so callers cannot mutate shared
// sequences.
func copyValue(v any) any {
	seq, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(seq))
	for i, elem := range seq {
		out[i] = copyValue(elem)
	}
	return out
}
