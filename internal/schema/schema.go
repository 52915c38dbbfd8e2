// Package schema defines the HCL wire structures for multiverse
// configuration files. These structs mirror the raw block layout; the
// configload package translates them into the format-agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Dimension represents a `dimension` block: one analytical decision with its
// ordered option list.
type Dimension struct {
	Name    string         `hcl:"name,label"`
	Options hcl.Expression `hcl:"options"`
}

// Constraint represents a `constraint` block attached to one dimension. The
// value attribute names the governed option; exactly one of allowed_if and
// forbidden_if carries the condition mapping.
type Constraint struct {
	Dimension   string         `hcl:"dimension,label"`
	Value       hcl.Expression `hcl:"value"`
	AllowedIf   hcl.Expression `hcl:"allowed_if,optional"`
	ForbiddenIf hcl.Expression `hcl:"forbidden_if,optional"`
}

// Executor represents the `executor` block selecting the external analysis
// procedure that visits each universe.
type Executor struct {
	Type    string            `hcl:"type"`
	Command []string          `hcl:"command,optional"`
	Runner  string            `hcl:"runner,optional"`
	URL     string            `hcl:"url,optional"`
	Headers map[string]string `hcl:"headers,optional"`
}

// Config represents the top-level structure of a multiverse configuration
// file.
type Config struct {
	Seed        *int64        `hcl:"seed,optional"`
	Dimensions  []*Dimension  `hcl:"dimension,block"`
	Constraints []*Constraint `hcl:"constraint,block"`
	Executor    *Executor     `hcl:"executor,block"`
	Body        hcl.Body      `hcl:",remain"`
}
