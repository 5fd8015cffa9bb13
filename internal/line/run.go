package line

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/pipewrench/internal/ctxlog"
	"github.com/vk/pipewrench/internal/table"
)

// FileResult is the outcome of running the stage sequence against one input
// file. Completed counts the stages that finished; a file aborted by stage k
// has Completed == k and a non-nil Err, and is absent from the written set.
type FileResult struct {
	InputPath  string
	OutputPath string // empty until the output is persisted
	Input      *table.Table
	Output     *table.Table // nil when the run aborted
	Completed  int
	Err        error
	// Warnings collects stage failures that were swallowed because their
	// staging policy has exraise disabled.
	Warnings []error
}

// Written reports whether the file's output reached the sink.
func (r *FileResult) Written() bool { return r.Err == nil && r.OutputPath != "" }

// RunResult aggregates per-file outcomes of one fan-out run.
type RunResult struct {
	RunID uuid.UUID
	Files []*FileResult
}

// Inputs returns every successfully loaded input table, in file order.
func (r *RunResult) Inputs() []*table.Table {
	var out []*table.Table
	for _, f := range r.Files {
		if f.Input != nil {
			out = append(out, f.Input)
		}
	}
	return out
}

// Outputs returns the output tables of every file that completed all stages,
// in file order.
func (r *RunResult) Outputs() []*table.Table {
	var out []*table.Table
	for _, f := range r.Files {
		if f.Output != nil {
			out = append(out, f.Output)
		}
	}
	return out
}

// Failed returns the results of files that aborted.
func (r *RunResult) Failed() []*FileResult {
	var out []*FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Run fans the full stage sequence out across every file the connected source
// resolves, in the source's stable match order, writing each completed table
// through the connected sink. One file's abort never affects sibling files;
// per-file failures are recorded in the result, not returned. The returned
// error covers structural problems only (unconnected line, sink mismatch).
func (l *Line) Run(ctx context.Context) (*RunResult, error) {
	if !l.Connected() {
		return nil, &NotConnectedError{Line: l.name}
	}
	logger := ctxlog.FromContext(ctx)
	res := &RunResult{RunID: uuid.New()}
	logger.Info("Starting pipeline run.",
		"pipeline", l.name,
		"run_id", res.RunID,
		"files", len(l.src.Files()),
		"stages", len(l.stages))

	drains := l.snk.Drains()
	patterned := l.snk.Patterned()
	var completed []*table.Table

	for i, path := range l.src.Files() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fr := l.runFile(ctx, i, path, len(l.stages))
		res.Files = append(res.Files, fr)
		if fr.Err != nil {
			logger.Warn("File aborted.", "run_id", res.RunID, "file", path, "completed_stages", fr.Completed, "error", fr.Err)
			continue
		}
		if patterned {
			if err := l.snk.DrainOne(ctx, fr.Output, i); err != nil {
				fr.Err = err
				fr.Output = nil
				logger.Warn("File write failed.", "run_id", res.RunID, "file", path, "error", err)
				continue
			}
			fr.OutputPath = drains[i]
		} else {
			completed = append(completed, fr.Output)
		}
		logger.Debug("File finished.", "run_id", res.RunID, "file", path)
	}

	// A plain sink drains once, concatenating every completed table.
	if !patterned && len(completed) > 0 {
		if err := l.snk.Drain(ctx, completed); err != nil {
			return res, err
		}
		for _, fr := range res.Files {
			if fr.Err == nil {
				fr.OutputPath = drains[0]
			}
		}
	}

	logger.Info("Pipeline run finished.",
		"run_id", res.RunID,
		"written", len(res.Files)-len(res.Failed()),
		"failed", len(res.Failed()))
	return res, nil
}

// Test runs the first upTo stages against the fileIndex-th resolved input
// file and returns the resulting table without touching the sink. upTo is
// clamped to [1, len(stages)]; zero or negative means the full sequence.
func (l *Line) Test(ctx context.Context, fileIndex, upTo int) (*table.Table, error) {
	if !l.Connected() {
		return nil, &NotConnectedError{Line: l.name}
	}
	if upTo <= 0 || upTo > len(l.stages) {
		upTo = len(l.stages)
	}
	files := l.src.Files()
	if fileIndex < 0 || fileIndex >= len(files) {
		return nil, fmt.Errorf("pipeline %q: file index %d out of range [0, %d)", l.name, fileIndex, len(files))
	}
	fr := l.runFile(ctx, fileIndex, files[fileIndex], upTo)
	if fr.Err != nil {
		return nil, fr.Err
	}
	return fr.Output, nil
}

// runFile loads one input and threads it through the first upTo stages.
func (l *Line) runFile(ctx context.Context, fileIndex int, path string, upTo int) *FileResult {
	fr := &FileResult{InputPath: path}
	logger := ctxlog.FromContext(ctx)

	in, err := l.src.DrawOne(ctx, fileIndex)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.Input = in

	cur := in
	for i, st := range l.stages[:upTo] {
		next, err := st.apply(ctx, cur)
		if err != nil {
			// The staging policy is evaluated exactly once, here, before
			// the next stage is entered.
			if st.staging.Exraise {
				fr.Err = newStageError(i, st, err)
				return fr
			}
			logger.Warn("Stage failed; continuing per staging policy.",
				"pipeline", l.name, "stage", i, "description", st.Description(), "error", err)
			fr.Warnings = append(fr.Warnings, newStageError(i, st, err))
			fr.Completed = i + 1
			continue
		}
		cur = next
		fr.Completed = i + 1
	}
	fr.Output = cur
	return fr
}

// newStageError wraps a stage failure with its position and description,
// substituting the configured exmsg for the original message when present.
func newStageError(index int, st *Stage, cause error) error {
	msg := st.staging.Exmsg
	return &StageError{Index: index, Description: st.Description(), Msg: msg, Err: cause}
}

// StageError wraps a failure of one stage during execution. When Msg is set
// it replaces the underlying message; the original failure stays reachable
// through Unwrap.
type StageError struct {
	Index       int
	Description string
	Msg         string
	Err         error
}

func (e *StageError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("stage [%d] %s: %s", e.Index, e.Description, e.Msg)
	}
	return fmt.Sprintf("stage [%d] %s: %v", e.Index, e.Description, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NotConnectedError reports a run or test attempt on an unconnected line.
type NotConnectedError struct {
	Line string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("pipeline %q is not connected to a source and sink", e.Line)
}
