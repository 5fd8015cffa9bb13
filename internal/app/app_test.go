package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipewrench/internal/app"
	"github.com/vk/pipewrench/internal/hcl"
	"github.com/vk/pipewrench/internal/registry"
)

// writeFixtures lays out a working root with a configuration and input files.
func writeFixtures(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const cleanupConfig = `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_clean.csv"
}

pipeline "cleanup" {
  stage "pdpipe" {
    function = "col_drop"

    kwargs {
      columns = "note"
    }
  }

  stage "pdpipe" {
    function = "row_drop_na"
  }
}
`

func baseConfig(root string) *app.Config {
	return &app.Config{
		ConfigPath: filepath.Join(root, "config.hcl"),
		Pipeline:   "cleanup",
		Source:     "raw",
		Sink:       "done",
		LogFormat:  "text",
		LogLevel:   "error",
	}
}

func TestApp_RunWritesOutputs(t *testing.T) {
	root := writeFixtures(t, map[string]string{
		"config.hcl": cleanupConfig,
		"data/a.csv": "x,note\n1,keep\n,drop\n2,\n",
	})
	t.Setenv(app.RootEnvKey, root)

	var out bytes.Buffer
	a, err := app.New(&out, baseConfig(root), hcl.NewLoader())
	require.NoError(t, err)
	assert.Equal(t, root, a.Root())

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "A pipewrench line: cleanup")
	assert.Contains(t, out.String(), "[0]  Drop columns note")

	written, err := os.ReadFile(filepath.Join(root, "out", "a_clean.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n2\n", string(written))
}

func TestApp_TestModePrintsWithoutWriting(t *testing.T) {
	root := writeFixtures(t, map[string]string{
		"config.hcl": cleanupConfig,
		"data/a.csv": "x,note\n1,keep\n,drop\n",
	})
	t.Setenv(app.RootEnvKey, root)

	cfg := baseConfig(root)
	cfg.Test = true
	cfg.UpTo = 1

	var out bytes.Buffer
	a, err := app.New(&out, cfg, hcl.NewLoader())
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))

	// Only the first stage ran, so the empty row survives.
	assert.Contains(t, out.String(), "x\n1\n\n")
	_, statErr := os.Stat(filepath.Join(root, "out"))
	assert.True(t, os.IsNotExist(statErr), "test mode must not touch the sink")
}

func TestApp_RunReportsFailedFiles(t *testing.T) {
	root := writeFixtures(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_clean.csv"
}

pipeline "cleanup" {
  stage "engarde" {
    check = "none_missing"
  }
}
`,
		"data/a.csv": "x\n1\n\n",
	})
	t.Setenv(app.RootEnvKey, root)

	var out bytes.Buffer
	a, err := app.New(&out, baseConfig(root), hcl.NewLoader())
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.EqualError(t, err, "1 of 1 files failed")
}

func TestApp_UnknownPipeline(t *testing.T) {
	root := writeFixtures(t, map[string]string{
		"config.hcl": cleanupConfig,
		"data/a.csv": "x,note\n1,keep\n",
	})
	t.Setenv(app.RootEnvKey, root)

	cfg := baseConfig(root)
	cfg.Pipeline = "nope"

	var out bytes.Buffer
	a, err := app.New(&out, cfg, hcl.NewLoader())
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

type fixtureModule struct{ registered bool }

func (m *fixtureModule) Register(r *registry.Registry) { m.registered = true }

func TestApp_RegistersModules(t *testing.T) {
	root := writeFixtures(t, map[string]string{
		"config.hcl": cleanupConfig,
	})
	t.Setenv(app.RootEnvKey, root)

	mod := &fixtureModule{}
	var out bytes.Buffer
	_, err := app.New(&out, baseConfig(root), hcl.NewLoader(), mod)
	require.NoError(t, err)
	assert.True(t, mod.registered)
}

func TestNewConfig_RequiredFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  app.Config
	}{
		{"missing config path", app.Config{Pipeline: "p", Source: "s", Sink: "k"}},
		{"missing pipeline", app.Config{ConfigPath: "c.hcl", Source: "s", Sink: "k"}},
		{"missing source", app.Config{ConfigPath: "c.hcl", Pipeline: "p", Sink: "k"}},
		{"missing sink", app.Config{ConfigPath: "c.hcl", Pipeline: "p", Source: "s"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := app.NewConfig(tc.cfg)
			require.Error(t, err)
		})
	}

	cfg, err := app.NewConfig(app.Config{ConfigPath: "c.hcl", Pipeline: "p", Source: "s", Sink: "k"})
	require.NoError(t, err)
	assert.Equal(t, "c.hcl", cfg.ConfigPath)
}
