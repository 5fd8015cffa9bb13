package config

import "fmt"

// NotFoundError reports that a named source, sink, or pipeline is absent from
// the configuration document.
type NotFoundError struct {
	Section string // "source", "sink", or "pipeline"
	Name    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s named %q in configuration", e.Section, e.Name)
}

// AttrError reports a kwarg attribute that is missing or has an unusable type.
type AttrError struct {
	Name   string
	Reason string
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("kwarg %q: %s", e.Name, e.Reason)
}
