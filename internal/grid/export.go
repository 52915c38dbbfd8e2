package grid

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// WriteJSON writes the grid as an indented JSON array of parameter mappings,
// one object per universe, in grid order.
func WriteJSON(w io.Writer, universes []Universe) error {
	out := make([]map[string]any, len(universes))
	for i, u := range universes {
		out[i] = u.params
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ParseJSON reads a grid previously written by WriteJSON and reconstructs an
// equal list of universes, identities included.
func ParseJSON(r io.Reader) ([]Universe, error) {
	var raw []map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse grid JSON: %w", err)
	}
	universes := make([]Universe, len(raw))
	for i, params := range raw {
		u, err := NewUniverse(params)
		if err != nil {
			return nil, fmt.Errorf("universe %d: %w", i, err)
		}
		universes[i] = u
	}
	return universes, nil
}

// WriteCSV writes the grid as CSV: the universe ID column followed by one
// column per dimension, sorted by dimension name.
func WriteCSV(w io.Writer, universes []Universe) error {
	if len(universes) == 0 {
		return nil
	}

	names := make([]string, 0, len(universes[0].params))
	for name := range universes[0].params {
		names = append(names, name)
	}
	sort.Strings(names)

	cw := csv.NewWriter(w)
	header := append([]string{"mv_universe_id"}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, u := range universes {
		row := make([]string, 0, len(header))
		row = append(row, u.id)
		for _, name := range names {
			row = append(row, FormatValue(u.params[name]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a value as a CSV cell. Scalars use their natural text
// form; sequences and other composite values fall back to compact JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
