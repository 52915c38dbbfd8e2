// Package configload provides the format-specific loaders behind the
// config.Loader interface: HCL, TOML, JSON, and YAML, selected by file
// extension, plus default-file discovery.
//
// All four loaders preserve the document order of dimension declarations.
// The grid's enumeration order is defined by that declaration order, so a
// loader that handed back an unordered map would silently reshuffle every
// run's universe numbering.
package configload
