// Package sink turns a sink descriptor's output pattern into concrete drain
// paths and writes result tables through them.
//
// A patterned sink (one '*' in the file pattern) writes one output per input
// file, substituting the input file's stem for the wildcard. A plain sink
// concatenates every result table into its single file.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/ctxlog"
	"github.com/vk/pipewrench/internal/source"
	"github.com/vk/pipewrench/internal/table"
)

// Sink is a resolved sink. Drain paths are established by Build and stay
// fixed until the sink is rebuilt against another source.
type Sink struct {
	desc      *config.SinkDescriptor
	file      string // pattern resolved against the working root
	patterned bool
	drains    []string
}

// Resolve binds a sink descriptor to the working root.
func Resolve(root string, desc *config.SinkDescriptor) (*Sink, error) {
	if strings.Count(desc.File, "*") > 1 {
		return nil, fmt.Errorf("sink %q: pattern %q has more than one wildcard", desc.Name, desc.File)
	}
	file := desc.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}
	return &Sink{
		desc:      desc,
		file:      file,
		patterned: strings.Contains(desc.File, "*"),
	}, nil
}

// Name returns the descriptor name.
func (s *Sink) Name() string { return s.desc.Name }

// Patterned reports whether the sink writes one file per input.
func (s *Sink) Patterned() bool { return s.patterned }

// Build derives the concrete drain paths. A patterned sink substitutes each
// of the source's input file stems for the wildcard and requires the
// substitution to produce pairwise-distinct paths. A plain sink has exactly
// one drain regardless of source. Rebuilding replaces prior drains.
func (s *Sink) Build(src *source.Source) error {
	if !s.patterned {
		s.drains = []string{s.file}
		return nil
	}
	if src == nil {
		return &PatternedSinkMissingSourceError{Sink: s.desc.Name, Pattern: s.desc.File}
	}

	dir, pattern := filepath.Split(s.file)
	seen := make(map[string]string, len(src.Files()))
	drains := make([]string, 0, len(src.Files()))
	for _, in := range src.Files() {
		stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		drain := filepath.Join(dir, strings.Replace(pattern, "*", stem, 1))
		if prev, dup := seen[drain]; dup {
			return &DuplicateDrainError{Sink: s.desc.Name, Path: drain, Inputs: []string{prev, in}}
		}
		seen[drain] = in
		drains = append(drains, drain)
	}
	s.drains = drains
	return nil
}

// Drains returns the concrete output paths established by Build.
func (s *Sink) Drains() []string {
	out := make([]string, len(s.drains))
	copy(out, s.drains)
	return out
}

// Drain writes the result tables out. For a patterned sink the table count
// must equal the drain count, table i going to drain i. For a plain sink all
// tables are concatenated into the single drain. The output directory is
// created on demand.
func (s *Sink) Drain(ctx context.Context, tables []*table.Table) error {
	if s.drains == nil {
		return &NotBuiltError{Sink: s.desc.Name}
	}
	logger := ctxlog.FromContext(ctx)

	if s.patterned {
		if len(tables) != len(s.drains) {
			return &DrainPipeMismatchError{Sink: s.desc.Name, Drains: len(s.drains), Tables: len(tables)}
		}
		for i, t := range tables {
			if err := s.drainOne(ctx, t, s.drains[i]); err != nil {
				return err
			}
		}
		return nil
	}

	if len(tables) == 0 {
		return &DrainPipeMismatchError{Sink: s.desc.Name, Drains: 1, Tables: 0}
	}
	combined, err := tables[0].Concat(tables[1:]...)
	if err != nil {
		return fmt.Errorf("sink %q: %w", s.desc.Name, err)
	}
	logger.Debug("Concatenating outputs into single drain.", "sink", s.desc.Name, "tables", len(tables))
	return s.drainOne(ctx, combined, s.drains[0])
}

// DrainOne writes a single table to the i-th drain path. The fan-out runner
// uses this to persist each file's result as soon as its run succeeds.
func (s *Sink) DrainOne(ctx context.Context, t *table.Table, i int) error {
	if s.drains == nil {
		return &NotBuiltError{Sink: s.desc.Name}
	}
	if i < 0 || i >= len(s.drains) {
		return fmt.Errorf("sink %q: drain index %d out of range [0, %d)", s.desc.Name, i, len(s.drains))
	}
	return s.drainOne(ctx, t, s.drains[i])
}

func (s *Sink) drainOne(ctx context.Context, t *table.Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sink %q: %w", s.desc.Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Writing output file.", "sink", s.desc.Name, "file", path, "shape", t.String())
	return t.WriteCSV(path)
}

// PatternedSinkMissingSourceError reports a wildcard sink built without a
// source to pattern against.
type PatternedSinkMissingSourceError struct {
	Sink    string
	Pattern string
}

func (e *PatternedSinkMissingSourceError) Error() string {
	return fmt.Sprintf("sink %q with pattern %q requires a connected source", e.Sink, e.Pattern)
}

// DuplicateDrainError reports two input files collapsing to one output path.
type DuplicateDrainError struct {
	Sink   string
	Path   string
	Inputs []string
}

func (e *DuplicateDrainError) Error() string {
	return fmt.Sprintf("sink %q: inputs %v collapse to the same output path %q", e.Sink, e.Inputs, e.Path)
}

// DrainPipeMismatchError reports a drain/table count mismatch.
type DrainPipeMismatchError struct {
	Sink   string
	Drains int
	Tables int
}

func (e *DrainPipeMismatchError) Error() string {
	return fmt.Sprintf("sink %q has %d drains but got %d tables", e.Sink, e.Drains, e.Tables)
}

// NotBuiltError reports a drain attempt before Build.
type NotBuiltError struct {
	Sink string
}

func (e *NotBuiltError) Error() string {
	return fmt.Sprintf("sink %q is not built", e.Sink)
}
