package app

import (
	"context"
	"fmt"

	"github.com/vk/pipewrench/internal/ctxlog"
	"github.com/vk/pipewrench/internal/line"
	"github.com/vk/pipewrench/internal/sink"
	"github.com/vk/pipewrench/internal/source"
)

// Run resolves and connects the configured pipeline, then either fans it out
// across every matched input file or, in test mode, applies a stage prefix to
// one file and prints the result.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	ln, err := a.connect(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.outW, ln.String())

	if a.appCfg.Test {
		return a.test(ctx, ln)
	}

	res, err := ln.Run(ctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	for _, fr := range res.Files {
		if fr.Err != nil {
			a.logger.Error("File failed.", "input", fr.InputPath, "completed_stages", fr.Completed, "error", fr.Err)
		} else {
			a.logger.Info("File written.", "input", fr.InputPath, "output", fr.OutputPath)
		}
	}
	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(failed), len(res.Files))
	}
	return nil
}

// test runs the configured stage prefix against one input file and writes the
// resulting table to the output writer. The sink is never touched.
func (a *App) test(ctx context.Context, ln *line.Line) error {
	out, err := ln.Test(ctx, a.appCfg.FileIndex, a.appCfg.UpTo)
	if err != nil {
		return fmt.Errorf("test failed: %w", err)
	}
	a.logger.Info("Test finished.", "result", out.String())
	return out.WriteCSVTo(a.outW)
}

// connect builds the line from the configured pipeline and binds it to the
// configured source and sink.
func (a *App) connect(ctx context.Context) (*line.Line, error) {
	stages, err := a.model.Pipeline(a.appCfg.Pipeline)
	if err != nil {
		return nil, err
	}
	ln, err := line.New(a.appCfg.Pipeline, stages, a.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	srcDesc, err := a.model.Source(a.appCfg.Source)
	if err != nil {
		return nil, err
	}
	src, err := source.Resolve(a.root, srcDesc)
	if err != nil {
		return nil, err
	}

	snkDesc, err := a.model.Sink(a.appCfg.Sink)
	if err != nil {
		return nil, err
	}
	snk, err := sink.Resolve(a.root, snkDesc)
	if err != nil {
		return nil, err
	}

	if err := ln.Connect(src, snk); err != nil {
		return nil, err
	}
	a.logger.Debug("Pipeline connected.",
		"pipeline", ln.Name(),
		"source", src.Name(),
		"sink", snk.Name(),
		"files", len(src.Files()))
	return ln, nil
}
