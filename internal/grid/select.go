package grid

import (
	"fmt"
	"strings"
)

// IDs returns the universe IDs in grid order.
func IDs(universes []Universe) []string {
	out := make([]string, len(universes))
	for i, u := range universes {
		out[i] = u.id
	}
	return out
}

// FindByIDPrefix selects the single universe whose ID starts with prefix.
// Zero matches and more than one match are both errors, so a truncated ID
// can only ever select the universe it unambiguously names.
func FindByIDPrefix(universes []Universe, prefix string) (Universe, error) {
	var (
		found Universe
		count int
	)
	for _, u := range universes {
		if strings.HasPrefix(u.id, prefix) {
			found = u
			count++
		}
	}
	switch count {
	case 1:
		return found, nil
	case 0:
		return Universe{}, fmt.Errorf("no universe matches ID prefix %q", prefix)
	default:
		return Universe{}, fmt.Errorf("ID prefix %q is ambiguous: %d universes match", prefix, count)
	}
}
