package grid

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// UniverseID returns the content-addressed fingerprint of a parameter
// mapping: the md5 hex digest of its canonical JSON form. Identical mappings
// yield identical IDs regardless of key insertion order or of how the values
// were originally represented (int vs float, slice vs array).
func UniverseID(params map[string]any) (string, error) {
	normalized := make(map[string]any, len(params))
	for name, value := range params {
		norm, err := normalizeValue(value)
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", name, err)
		}
		normalized[name] = norm
	}
	return universeID(normalized), nil
}

// universeID hashes an already-normalized mapping.
func universeID(params map[string]any) string {
	sum := md5.Sum([]byte(canonicalJSON(params)))
	return hex.EncodeToString(sum[:])
}

// canonicalJSON serializes a normalized value as compact JSON. encoding/json
// sorts map keys, which makes the byte form canonical.
func canonicalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Normalized values always marshal; reaching this is a programmer error.
		panic(fmt.Sprintf("grid: marshal normalized value: %v", err))
	}
	return string(b)
}
