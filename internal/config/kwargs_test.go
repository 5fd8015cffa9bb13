package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestKwargs_Lookups(t *testing.T) {
	t.Parallel()

	kw := Kwargs{
		"name":  cty.StringVal("x"),
		"count": cty.NumberIntVal(3),
		"ratio": cty.MustParseNumberVal("0.5"),
		"on":    cty.True,
		"cols":  cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
	}

	s, err := kw.String("name")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	n, err := kw.Int("count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := kw.Number("ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	on, err := kw.BoolDefault("on", false)
	require.NoError(t, err)
	assert.True(t, on)

	off, err := kw.BoolDefault("off", false)
	require.NoError(t, err)
	assert.False(t, off)

	cols, err := kw.Strings("cols")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)
}

func TestKwargs_SingleStringAsList(t *testing.T) {
	t.Parallel()

	kw := Kwargs{"cols": cty.StringVal("only")}
	cols, err := kw.Strings("cols")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, cols)
}

func TestKwargs_StringMap(t *testing.T) {
	t.Parallel()

	kw := Kwargs{"columns": cty.ObjectVal(map[string]cty.Value{
		"old": cty.StringVal("new"),
	})}
	m, err := kw.StringMap("columns")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"old": "new"}, m)
}

func TestKwargs_MissingAndWrongType(t *testing.T) {
	t.Parallel()

	kw := Kwargs{"n": cty.NumberIntVal(1), "l": cty.ListVal([]cty.Value{cty.True})}

	var attrErr *AttrError
	_, err := kw.String("absent")
	require.ErrorAs(t, err, &attrErr)
	assert.Equal(t, "absent", attrErr.Name)

	_, err = kw.Number("l")
	require.Error(t, err)

	// Numbers convert to strings; that is cty semantics, not an error.
	s, err := kw.String("n")
	require.NoError(t, err)
	assert.Equal(t, "1", s)
}

func TestKwargs_Defaults(t *testing.T) {
	t.Parallel()

	kw := Kwargs{}
	s, err := kw.StringDefault("sep", ",")
	require.NoError(t, err)
	assert.Equal(t, ",", s)

	cols, err := kw.StringsDefault("cols", nil)
	require.NoError(t, err)
	assert.Nil(t, cols)
}

func TestModel_NotFound(t *testing.T) {
	t.Parallel()

	m := NewModel()
	m.Sources["raw"] = &SourceDescriptor{Name: "raw"}

	_, err := m.Source("raw")
	require.NoError(t, err)

	var notFound *NotFoundError
	_, err = m.Sink("gone")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "sink", notFound.Section)
	assert.Equal(t, "gone", notFound.Name)

	_, err = m.Pipeline("gone")
	require.ErrorAs(t, err, &notFound)
}

func TestStageKind_Valid(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		assert.True(t, k.Valid())
	}
	assert.False(t, StageKind("bogus").Valid())
}

func TestStageDescriptor_Identifier(t *testing.T) {
	t.Parallel()

	sd := &StageDescriptor{Kind: KindTransform, Function: "f", Check: "c"}
	assert.Equal(t, "f", sd.Identifier())
	sd.Kind = KindVerifyAll
	assert.Equal(t, "c", sd.Identifier())
}
