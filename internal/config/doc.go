// Package config defines the format-agnostic configuration model for the
// engine: named source, sink, and pipeline descriptors plus the Loader
// interface for format-specific parsers.
//
// The config.Model is the single source of truth for the source, sink, and
// line packages. The concrete HCL implementation of Loader lives in the hcl
// package.
package config
