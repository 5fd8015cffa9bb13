package config

import "context"

// StageKind enumerates the supported stage descriptor kinds.
type StageKind string

const (
	// KindTransform applies a caller-registered transform function.
	KindTransform StageKind = "transform"
	// KindPdpipe instantiates a built-in transformation primitive.
	KindPdpipe StageKind = "pdpipe"
	// KindVerifyAll requires every row to satisfy a registered check.
	KindVerifyAll StageKind = "verify_all"
	// KindVerifyAny requires at least one row to satisfy a registered check.
	KindVerifyAny StageKind = "verify_any"
	// KindEngarde runs a built-in whole-table assertion check.
	KindEngarde StageKind = "engarde"
)

// Kinds lists every valid stage kind, in a stable order for error messages.
var Kinds = []StageKind{KindTransform, KindPdpipe, KindVerifyAll, KindVerifyAny, KindEngarde}

// Valid reports whether k is a known stage kind.
func (k StageKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// SourceDescriptor names a glob-matched set of input files plus load options.
// It is immutable once loaded from configuration.
type SourceDescriptor struct {
	Name     string
	File     string // glob pattern, resolved against the working root
	Kwargs   Kwargs // load options forwarded to the table reader
	IndexCol string
}

// SinkDescriptor names an output file pattern. A pattern containing a single
// '*' wildcard produces one output file per input file; a pattern without a
// wildcard concatenates all outputs into one file.
type SinkDescriptor struct {
	Name   string
	File   string
	Kwargs Kwargs
}

// Staging is the per-stage policy: display description, custom failure
// message, and whether a stage failure aborts the file's run.
type Staging struct {
	Desc    string
	Exmsg   string
	Exraise bool
}

// StageDescriptor is the format-agnostic representation of one stage entry in
// a pipeline's ordered stage list.
type StageDescriptor struct {
	Kind     StageKind
	Function string // transform / pdpipe primitive name
	Check    string // verify_* / engarde check name
	Kwargs   Kwargs
	Staging  Staging
}

// Identifier returns the name the descriptor dispatches on, regardless of kind.
func (sd *StageDescriptor) Identifier() string {
	switch sd.Kind {
	case KindVerifyAll, KindVerifyAny, KindEngarde:
		return sd.Check
	default:
		return sd.Function
	}
}

// Model is the unified, format-agnostic representation of the whole
// configuration document: every named source, sink, and pipeline.
type Model struct {
	Sources   map[string]*SourceDescriptor
	Sinks     map[string]*SinkDescriptor
	Pipelines map[string][]*StageDescriptor
}

// NewModel returns an empty model with all maps initialized.
func NewModel() *Model {
	return &Model{
		Sources:   make(map[string]*SourceDescriptor),
		Sinks:     make(map[string]*SinkDescriptor),
		Pipelines: make(map[string][]*StageDescriptor),
	}
}

// Source looks up a source descriptor by name.
func (m *Model) Source(name string) (*SourceDescriptor, error) {
	desc, ok := m.Sources[name]
	if !ok {
		return nil, &NotFoundError{Section: "source", Name: name}
	}
	return desc, nil
}

// Sink looks up a sink descriptor by name.
func (m *Model) Sink(name string) (*SinkDescriptor, error) {
	desc, ok := m.Sinks[name]
	if !ok {
		return nil, &NotFoundError{Section: "sink", Name: name}
	}
	return desc, nil
}

// Pipeline looks up a pipeline's ordered stage descriptor list by name.
func (m *Model) Pipeline(name string) ([]*StageDescriptor, error) {
	stages, ok := m.Pipelines[name]
	if !ok {
		return nil, &NotFoundError{Section: "pipeline", Name: name}
	}
	return stages, nil
}

// Loader is the interface for a format-specific configuration loader. Load
// reads the document(s) at path and translates them into the agnostic model,
// performing structural validation only.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}
