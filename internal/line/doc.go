// Package line compiles a pipeline's stage descriptor list into an ordered
// sequence of callable stages and drives it across every file a connected
// source resolves, writing results through the connected sink.
//
// All name resolution (user transforms and checks, built-in primitives and
// assertions) happens at construction time; a pipeline that cannot be fully
// resolved never partially runs. At run time each file's table is threaded
// through the stages in descriptor order, with the per-stage staging policy
// deciding whether a failure aborts that file or is recorded and skipped.
package line
