// Package registry is the collaborator namespace for user-supplied stage
// functions. Configuration stages refer to transforms and checks by string
// name; the registry maps those names to compiled Go functions. Resolution
// happens once, at pipeline construction time, so a misspelled name fails
// before any file is processed.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/table"
)

// TransformFunc is a user transform: it receives the current table and the
// stage's kwargs and returns a replacement table.
type TransformFunc func(ctx context.Context, t *table.Table, kwargs config.Kwargs) (*table.Table, error)

// CheckFunc is a user predicate: it returns one bool per row of the table.
type CheckFunc func(ctx context.Context, t *table.Table, kwargs config.Kwargs) ([]bool, error)

// Module is implemented by packages that contribute functions to a registry.
type Module interface {
	Register(r *Registry)
}

// Registry holds the named transforms and checks for one application instance.
type Registry struct {
	transforms map[string]TransformFunc
	checks     map[string]CheckFunc
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		transforms: make(map[string]TransformFunc),
		checks:     make(map[string]CheckFunc),
	}
}

// RegisterTransform registers a transform under name. Registering a duplicate
// name is a programmer error and panics.
func (r *Registry) RegisterTransform(name string, fn TransformFunc) {
	if _, exists := r.transforms[name]; exists {
		panic(fmt.Sprintf("transform %q already registered", name))
	}
	slog.Debug("Registering transform.", "name", name)
	r.transforms[name] = fn
}

// RegisterCheck registers a row predicate under name. Registering a duplicate
// name is a programmer error and panics.
func (r *Registry) RegisterCheck(name string, fn CheckFunc) {
	if _, exists := r.checks[name]; exists {
		panic(fmt.Sprintf("check %q already registered", name))
	}
	slog.Debug("Registering check.", "name", name)
	r.checks[name] = fn
}

// Transform resolves a transform by name.
func (r *Registry) Transform(name string) (TransformFunc, error) {
	fn, ok := r.transforms[name]
	if !ok {
		return nil, &FunctionNotFoundError{Kind: "transform", Name: name}
	}
	return fn, nil
}

// Check resolves a row predicate by name.
func (r *Registry) Check(name string) (CheckFunc, error) {
	fn, ok := r.checks[name]
	if !ok {
		return nil, &FunctionNotFoundError{Kind: "check", Name: name}
	}
	return fn, nil
}

// FunctionNotFoundError reports a stage identifier that is absent from the
// registry. It is always a construction-time failure.
type FunctionNotFoundError struct {
	Kind string // "transform" or "check"
	Name string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("no %s named %q registered", e.Kind, e.Name)
}
