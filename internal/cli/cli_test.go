package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{
		"-config", "pipelines.hcl",
		"-pipeline", "clean",
		"-source", "raw",
		"-sink", "done",
		"-test",
		"-file-index", "2",
		"-stages", "3",
		"-log-format", "json",
		"-log-level", "debug",
	}, &out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	require.NotNil(t, cfg)
	assert.Equal(t, "pipelines.hcl", cfg.ConfigPath)
	assert.Equal(t, "clean", cfg.Pipeline)
	assert.Equal(t, "raw", cfg.Source)
	assert.Equal(t, "done", cfg.Sink)
	assert.True(t, cfg.Test)
	assert.Equal(t, 2, cfg.FileIndex)
	assert.Equal(t, 3, cfg.UpTo)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_PositionalConfigPath(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{
		"-pipeline", "clean", "-source", "raw", "-sink", "done", "pipelines.hcl",
	}, &out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "pipelines.hcl", cfg.ConfigPath)
}

func TestParse_ShorthandConfigFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, _, err := Parse([]string{
		"-c", "conf/", "-pipeline", "clean", "-source", "raw", "-sink", "done",
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "conf/", cfg.ConfigPath)
}

func TestParse_NoConfigPathPrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse(nil, &out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_HelpFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"-h"}, &out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
}

func TestParse_UnknownFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-bogus"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParse_InvalidLogFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-log-format", "xml", "pipelines.hcl"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "log-format")
}

func TestParse_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"-log-level", "verbose", "pipelines.hcl"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "log-level")
}

func TestParse_MissingSelectionFlags(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, _, err := Parse([]string{"pipelines.hcl"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
