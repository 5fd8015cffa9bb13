// Package table implements the in-memory, column-oriented table that flows
// through a pipeline. Cells are cty values so a table can mix strings,
// numbers, bools, and nulls while stage kwargs -- also cty values -- compare
// and convert against them without ad-hoc type switches.
//
// Tables are loaded and written whole; there is no streaming. A table is
// exclusively owned by the run that loaded it.
package table
