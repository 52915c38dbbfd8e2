package config

// Model is the unified, format-agnostic representation of a multiverse
// configuration, regardless of which file format supplied it. Values are
// raw: normalization and validation happen when the grid is built from the
// model, not here.
type Model struct {
	Dimensions  []Dimension
	Constraints map[string][]Constraint
	Executor    *Executor
	Seed        *int64
}

// Dimension is one declared analytical decision: a name plus its raw option
// values in document order. That order fixes the grid's enumeration order,
// so loaders must preserve it even for formats whose natural decoded form
// is an unordered map.
type Dimension struct {
	Name    string
	Options []any
}

// Constraint is the raw form of a constraint declaration attached to one
// dimension value. Exactly one of AllowedIf and ForbiddenIf must be present;
// that rule is enforced during grid construction so every loader shares one
// error path.
type Constraint struct {
	Value       any
	AllowedIf   map[string]any
	ForbiddenIf map[string]any
}

// Executor selects and parameterizes the external analysis procedure that
// visits each universe.
type Executor struct {
	Type    string            // "command", "runner", or "http"
	Command []string          // argv for the command type
	Runner  string            // registered handler name for the runner type
	URL     string            // endpoint for the http type
	Headers map[string]string // extra request headers for the http type
}
