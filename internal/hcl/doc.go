// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It parses configuration documents containing source, sink, and
// pipeline blocks and translates them into the format-agnostic model,
// evaluating kwarg attributes into cty values.
package hcl
