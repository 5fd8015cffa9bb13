package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/ctxlog"
	"github.com/vk/pipewrench/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the document at path, which may be a single .hcl file or a
// directory searched recursively for .hcl files, and merges every recognized
// block into one model. Duplicate names across files are rejected.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := l.findFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl configuration files found at %s", path)
	}
	logger.Debug("Discovered configuration files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", file, diags)
		}

		for _, src := range root.Sources {
			if _, exists := model.Sources[src.Name]; exists {
				return nil, fmt.Errorf("duplicate source %q in %s", src.Name, file)
			}
			desc, err := l.translateSource(src)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Sources[src.Name] = desc
		}
		for _, snk := range root.Sinks {
			if _, exists := model.Sinks[snk.Name]; exists {
				return nil, fmt.Errorf("duplicate sink %q in %s", snk.Name, file)
			}
			desc, err := l.translateSink(snk)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Sinks[snk.Name] = desc
		}
		for _, pl := range root.Pipelines {
			if _, exists := model.Pipelines[pl.Name]; exists {
				return nil, fmt.Errorf("duplicate pipeline %q in %s", pl.Name, file)
			}
			stages, err := l.translatePipeline(pl)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Pipelines[pl.Name] = stages
		}
	}

	logger.Debug("Configuration loaded into unified model.",
		"sources", len(model.Sources),
		"sinks", len(model.Sinks),
		"pipelines", len(model.Pipelines))
	return model, nil
}

// findFiles resolves a path argument into the list of .hcl files to parse.
func (l *Loader) findFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing configuration path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return fsutil.FindFilesByExtension(path, ".hcl")
}
