// Package testutil provides a shared harness for tests that need a working
// root populated with configuration and CSV fixtures.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/ctxlog"
	"github.com/vk/pipewrench/internal/hcl"
	"github.com/vk/pipewrench/internal/line"
	"github.com/vk/pipewrench/internal/registry"
	"github.com/vk/pipewrench/internal/sink"
	"github.com/vk/pipewrench/internal/source"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements io.Writer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements fmt.Stringer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness is a temporary working root with a parsed configuration model, a
// registry for test functions, and a context carrying a debug logger.
type Harness struct {
	Root     string
	Model    *config.Model
	Registry *registry.Registry
	Ctx      context.Context
	LogBuf   *SafeBuffer
}

// NewHarness writes the given files (relative path -> content) into a fresh
// temporary root and parses "config.hcl" into the model. Subdirectories in
// file names are created as needed.
func NewHarness(t *testing.T, files map[string]string) *Harness {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	logBuf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	model, err := hcl.NewLoader().Load(ctx, filepath.Join(root, "config.hcl"))
	require.NoError(t, err, "harness config must parse")

	return &Harness{
		Root:     root,
		Model:    model,
		Registry: registry.New(),
		Ctx:      ctx,
		LogBuf:   logBuf,
	}
}

// Connect builds the named pipeline and binds it to the named source and sink.
func (h *Harness) Connect(t *testing.T, pipeline, srcName, snkName string) *line.Line {
	t.Helper()

	stages, err := h.Model.Pipeline(pipeline)
	require.NoError(t, err)
	ln, err := line.New(pipeline, stages, h.Registry)
	require.NoError(t, err)

	srcDesc, err := h.Model.Source(srcName)
	require.NoError(t, err)
	src, err := source.Resolve(h.Root, srcDesc)
	require.NoError(t, err)

	snkDesc, err := h.Model.Sink(snkName)
	require.NoError(t, err)
	snk, err := sink.Resolve(h.Root, snkDesc)
	require.NoError(t, err)

	require.NoError(t, ln.Connect(src, snk))
	return ln
}

// Path joins a relative fixture name onto the harness root.
func (h *Harness) Path(name string) string {
	return filepath.Join(h.Root, name)
}
