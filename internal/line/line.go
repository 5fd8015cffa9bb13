package line

import (
	"fmt"
	"strings"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/registry"
	"github.com/vk/pipewrench/internal/sink"
	"github.com/vk/pipewrench/internal/source"
)

// Line is a named, ordered stage sequence. Once connected it is bound to
// exactly one source/sink pair; reconnecting replaces the prior binding.
type Line struct {
	name   string
	stages []*Stage
	src    *source.Source
	snk    *sink.Sink
}

// New compiles the descriptor list into a line. Every stage must resolve;
// construction-time errors (unknown kinds, unregistered names, bad kwargs)
// propagate immediately so a partially resolved line never runs.
func New(name string, descs []*config.StageDescriptor, reg *registry.Registry) (*Line, error) {
	stages := make([]*Stage, 0, len(descs))
	for i, sd := range descs {
		st, err := NewStage(sd, reg)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q, stage %d: %w", name, i, err)
		}
		stages = append(stages, st)
	}
	return &Line{name: name, stages: stages}, nil
}

// Name returns the pipeline name.
func (l *Line) Name() string { return l.name }

// Len returns the number of stages.
func (l *Line) Len() int { return len(l.stages) }

// Stages returns the ordered stage sequence. The slice is a copy; the order
// is fixed at construction and never changes.
func (l *Line) Stages() []*Stage {
	out := make([]*Stage, len(l.stages))
	copy(out, l.stages)
	return out
}

// Connect binds the line to one source and one sink, building the sink's
// drain paths from the source's matched files. A second call replaces the
// prior binding.
func (l *Line) Connect(src *source.Source, snk *sink.Sink) error {
	if err := snk.Build(src); err != nil {
		return err
	}
	l.src = src
	l.snk = snk
	return nil
}

// Connected reports whether the line is bound to a source and sink.
func (l *Line) Connected() bool { return l.src != nil && l.snk != nil }

// String renders the pipeline header followed by one `[index]  description`
// row per stage, in stage order.
func (l *Line) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "A pipewrench line: %s\n", l.name)
	for i, st := range l.stages {
		fmt.Fprintf(&b, "[%d]  %s\n", i, st.Description())
	}
	return b.String()
}
