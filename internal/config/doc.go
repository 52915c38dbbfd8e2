// Package config defines the format-agnostic configuration model for a
// multiverse analysis, along with the Loader interface for reading it from
// various sources.
//
// The `config.Model` is the single source of truth for grid construction and
// executor selection. Concrete loaders for HCL, TOML, JSON, and YAML are
// provided in the configload package; none of their format details leak past
// the model.
package config
