package line_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/line"
	"github.com/vk/pipewrench/internal/registry"
	"github.com/vk/pipewrench/internal/table"
	"github.com/vk/pipewrench/internal/testutil"
)

// registerFixtures populates the harness registry with the functions the
// run tests refer to from configuration.
func registerFixtures(h *testutil.Harness) {
	h.Registry.RegisterTransform("add_one", func(_ context.Context, tbl *table.Table, kwargs config.Kwargs) (*table.Table, error) {
		col, err := kwargs.String("col")
		if err != nil {
			return nil, err
		}
		cells, err := tbl.Column(col)
		if err != nil {
			return nil, err
		}
		out := tbl.Clone()
		bumped := make([]cty.Value, len(cells))
		for i, v := range cells {
			bumped[i] = cty.NumberIntVal(mustInt(v) + 1)
		}
		if err := out.SetColumn(col, bumped); err != nil {
			return nil, err
		}
		return out, nil
	})
	h.Registry.RegisterTransform("explode", func(_ context.Context, _ *table.Table, _ config.Kwargs) (*table.Table, error) {
		return nil, errors.New("boom")
	})
	h.Registry.RegisterCheck("never", func(_ context.Context, tbl *table.Table, _ config.Kwargs) ([]bool, error) {
		return make([]bool, tbl.NumRows()), nil
	})
	h.Registry.RegisterCheck("x_below_10", func(_ context.Context, tbl *table.Table, _ config.Kwargs) ([]bool, error) {
		cells, err := tbl.Column("x")
		if err != nil {
			return nil, err
		}
		mask := make([]bool, len(cells))
		for i, v := range cells {
			mask[i] = mustInt(v) < 10
		}
		return mask, nil
	})
}

func mustInt(v cty.Value) int64 {
	f, _ := v.AsBigFloat().Int64()
	return f
}

func column(t *testing.T, tbl *table.Table, name string) []int64 {
	t.Helper()
	cells, err := tbl.Column(name)
	require.NoError(t, err)
	out := make([]int64, len(cells))
	for i, v := range cells {
		out[i] = mustInt(v)
	}
	return out
}

const fanOutConfig = `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "bump" {
  stage "transform" {
    function = "add_one"

    kwargs {
      col = "x"
    }
  }
}
`

func TestRun_FanOutScenario(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": fanOutConfig,
		"data/A.csv": "x\n1\n2\n",
		"data/B.csv": "x\n3\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "bump", "raw", "done")

	res, err := ln.Run(h.Ctx)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.NotEqual(t, res.RunID.String(), "00000000-0000-0000-0000-000000000000")

	for _, fr := range res.Files {
		assert.True(t, fr.Written(), "file %s should be written", fr.InputPath)
	}

	gotA, err := table.ReadCSV(h.Path("out/A_done.csv"), table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, column(t, gotA, "x"))

	gotB, err := table.ReadCSV(h.Path("out/B_done.csv"), table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, column(t, gotB, "x"))
}

func TestRun_AbortIsolatedPerFile(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "gate" {
  stage "verify_all" {
    check = "x_below_10"
  }
}
`,
		"data/A.csv": "x\n1\n",
		"data/B.csv": "x\n42\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "gate", "raw", "done")

	res, err := ln.Run(h.Ctx)
	require.NoError(t, err, "per-file aborts are recorded, not returned")
	require.Len(t, res.Files, 2)

	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].InputPath, "B.csv")
	assert.False(t, failed[0].Written())

	var verr *line.VerificationError
	require.ErrorAs(t, failed[0].Err, &verr)
	assert.Equal(t, "x_below_10", verr.Check)
	assert.Equal(t, []string{"0"}, verr.Rows, "failing rows are named by index value")

	_, statErr := os.Stat(h.Path("out/A_done.csv"))
	require.NoError(t, statErr, "the healthy file is still written")
	_, statErr = os.Stat(h.Path("out/B_done.csv"))
	require.True(t, os.IsNotExist(statErr), "the aborted file writes nothing")
}

func TestRun_AbortRecordsCompletedStages(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "p" {
  stage "transform" {
    function = "add_one"

    kwargs {
      col = "x"
    }
  }

  stage "verify_all" {
    check = "never"
  }
}
`,
		"data/A.csv": "x\n1\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "p", "raw", "done")

	res, err := ln.Run(h.Ctx)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)

	fr := res.Files[0]
	require.Error(t, fr.Err)
	assert.Equal(t, 1, fr.Completed, "only the first stage completed")
	assert.Nil(t, fr.Output)
	assert.NotNil(t, fr.Input)
	assert.Empty(t, res.Outputs())
}

func TestRun_ExraiseFalsePassesTableThrough(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "lenient" {
  stage "verify_all" {
    check = "never"

    staging {
      exraise = false
    }
  }
}
`,
		"data/A.csv": "x\n7\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "lenient", "raw", "done")

	res, err := ln.Run(h.Ctx)
	require.NoError(t, err)

	fr := res.Files[0]
	require.NoError(t, fr.Err)
	assert.True(t, fr.Written())
	require.Len(t, fr.Warnings, 1, "the swallowed failure is still recorded")
	assert.True(t, fr.Input.Equal(fr.Output), "the original table passes through unchanged")
}

func TestRun_VerifyAnySemantics(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "any" {
  stage "verify_any" {
    check = "x_below_10"
  }
}
`,
		"data/A.csv": "x\n1\n42\n",
		"data/B.csv": "x\n42\n43\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "any", "raw", "done")

	res, err := ln.Run(h.Ctx)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	assert.True(t, res.Files[0].Written(), "one satisfying row is enough")
	require.Error(t, res.Files[1].Err, "zero satisfying rows fail")
	var verr *line.VerificationError
	require.ErrorAs(t, res.Files[1].Err, &verr)
	assert.Equal(t, config.KindVerifyAny, verr.Kind)
}

func TestRun_IdentityPipeline(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "identity" {}
`,
		"data/A.csv": "id,x\na,1\nb,2\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "identity", "raw", "done")

	res, err := ln.Run(h.Ctx)
	require.NoError(t, err)

	got, err := table.ReadCSV(h.Path("out/A_done.csv"), table.ReadOptions{})
	require.NoError(t, err)
	assert.True(t, res.Files[0].Input.Equal(got), "a zero-stage run writes the input unchanged")
}

func TestRun_ExmsgReplacesMessageKeepsCause(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "p" {
  stage "transform" {
    function = "explode"

    staging {
      exmsg = "the cleanup step is misconfigured"
    }
  }
}
`,
		"data/A.csv": "x\n1\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "p", "raw", "done")

	res, err := ln.Run(h.Ctx)
	require.NoError(t, err)

	frErr := res.Files[0].Err
	require.Error(t, frErr)
	assert.Contains(t, frErr.Error(), "the cleanup step is misconfigured")
	assert.NotContains(t, frErr.Error(), "boom", "the original message is replaced")

	var stageErr *line.StageError
	require.ErrorAs(t, frErr, &stageErr)
	assert.EqualError(t, stageErr.Unwrap(), "boom", "the original failure remains the cause")
}

func TestTest_AppliesPrefixWithoutWriting(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, map[string]string{
		"config.hcl": `
source "raw" {
  file = "data/*.csv"
}

sink "done" {
  file = "out/*_done.csv"
}

pipeline "double_bump" {
  stage "transform" {
    function = "add_one"

    kwargs {
      col = "x"
    }
  }

  stage "transform" {
    function = "add_one"

    kwargs {
      col = "x"
    }
  }
}
`,
		"data/A.csv": "x\n1\n",
		"data/B.csv": "x\n10\n",
	})
	registerFixtures(h)
	ln := h.Connect(t, "double_bump", "raw", "done")

	out, err := ln.Test(h.Ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, column(t, out, "x"), "exactly one stage applied")

	out, err = ln.Test(h.Ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, column(t, out, "x"), "zero means the full sequence, second file by position")

	entries, statErr := os.ReadDir(h.Path("out"))
	if statErr == nil {
		assert.Empty(t, entries, "test mode never touches the sink")
	} else {
		assert.True(t, os.IsNotExist(statErr))
	}

	_, err = ln.Test(h.Ctx, 5, 1)
	require.Error(t, err, "file index out of range")
}

func TestRun_RequiresConnection(t *testing.T) {
	t.Parallel()

	ln, err := line.New("p", nil, registry.New())
	require.NoError(t, err)

	var notConnected *line.NotConnectedError
	_, err = ln.Run(context.Background())
	require.ErrorAs(t, err, &notConnected)
	_, err = ln.Test(context.Background(), 0, 1)
	require.ErrorAs(t, err, &notConnected)
}
