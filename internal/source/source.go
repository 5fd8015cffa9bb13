// Package source resolves a source descriptor's glob pattern into a stable,
// ordered list of input files and loads them into tables on demand.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/ctxlog"
	"github.com/vk/pipewrench/internal/table"
)

// Source is a resolved source: the descriptor plus the concrete files its
// glob matched at resolution time. The file list is fixed once resolved.
type Source struct {
	desc  *config.SourceDescriptor
	files []string
}

// Resolve expands the descriptor's glob pattern relative to root. The match
// list is sorted for a stable processing order. Zero matches fail with
// NoFilesMatchedError.
func Resolve(root string, desc *config.SourceDescriptor) (*Source, error) {
	pattern := desc.File
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(root, pattern)
	}
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("source %q: bad glob pattern %q: %w", desc.Name, desc.File, err)
	}
	if len(files) == 0 {
		return nil, &NoFilesMatchedError{Source: desc.Name, Pattern: pattern}
	}
	sort.Strings(files)
	return &Source{desc: desc, files: files}, nil
}

// Name returns the descriptor name.
func (s *Source) Name() string { return s.desc.Name }

// Files returns the matched input paths in stable order.
func (s *Source) Files() []string {
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Draw loads every matched file into a table, in match order. Loader errors
// propagate unchanged; there is no retry.
func (s *Source) Draw(ctx context.Context) ([]*table.Table, error) {
	tables := make([]*table.Table, 0, len(s.files))
	for i := range s.files {
		t, err := s.DrawOne(ctx, i)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// DrawOne loads the i-th matched file (by position in the stable match list).
func (s *Source) DrawOne(ctx context.Context, i int) (*table.Table, error) {
	if i < 0 || i >= len(s.files) {
		return nil, fmt.Errorf("source %q: file index %d out of range [0, %d)", s.desc.Name, i, len(s.files))
	}
	opts, err := s.readOptions()
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading input file.", "source", s.desc.Name, "file", s.files[i])
	return table.ReadCSV(s.files[i], opts)
}

// readOptions maps the descriptor's load kwargs onto the table reader.
func (s *Source) readOptions() (table.ReadOptions, error) {
	opts := table.ReadOptions{IndexCol: s.desc.IndexCol}
	useCols, err := s.desc.Kwargs.StringsDefault("usecols", nil)
	if err != nil {
		return opts, fmt.Errorf("source %q: %w", s.desc.Name, err)
	}
	opts.UseCols = useCols
	sep, err := s.desc.Kwargs.StringDefault("sep", "")
	if err != nil {
		return opts, fmt.Errorf("source %q: %w", s.desc.Name, err)
	}
	if sep != "" {
		runes := []rune(sep)
		if len(runes) != 1 {
			return opts, fmt.Errorf("source %q: sep must be a single character, got %q", s.desc.Name, sep)
		}
		opts.Comma = runes[0]
	}
	return opts, nil
}

// NoFilesMatchedError reports a source glob that matched nothing.
type NoFilesMatchedError struct {
	Source  string
	Pattern string
}

func (e *NoFilesMatchedError) Error() string {
	return fmt.Sprintf("source %q: no files matched pattern %q", e.Source, e.Pattern)
}
