// Package seed loads sandbox objects from JSON, YAML and TOML documents and
// writes sandboxes back out in the same formats.
//
// The top level of a document must be a mapping. Each key becomes a
// writable, enumerable, configurable property of the returned Map and
// nested mappings become nested Maps.
package seed
