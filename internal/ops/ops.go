// Package ops is the built-in library of named transformation primitives.
// A pdpipe-kind stage names one of these instead of a user function; the
// primitive is instantiated from the stage kwargs at construction time and
// carries its own auto-generated description.
package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/table"
)

// Op is one instantiated primitive: an apply function plus the default
// description shown when the stage's staging block does not override it.
type Op struct {
	Desc  string
	Apply func(ctx context.Context, t *table.Table) (*table.Table, error)
}

// builder instantiates a primitive from kwargs. Kwarg errors surface here,
// before any table is loaded.
type builder func(kwargs config.Kwargs) (*Op, error)

var builders = map[string]builder{
	"col_drop":        buildColDrop,
	"col_keep":        buildColKeep,
	"col_rename":      buildColRename,
	"row_drop_na":     buildRowDropNA,
	"drop_duplicates": buildDropDuplicates,
	"fill_na":         buildFillNA,
	"map_values":      buildMapValues,
}

// Names returns the available primitive names, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named primitive with the given kwargs.
func Build(name string, kwargs config.Kwargs) (*Op, error) {
	b, ok := builders[name]
	if !ok {
		return nil, &PrimitiveNotFoundError{Name: name}
	}
	op, err := b(kwargs)
	if err != nil {
		return nil, fmt.Errorf("primitive %q: %w", name, err)
	}
	return op, nil
}

// PrimitiveNotFoundError reports an unknown primitive name.
type PrimitiveNotFoundError struct {
	Name string
}

func (e *PrimitiveNotFoundError) Error() string {
	return fmt.Sprintf("no built-in primitive named %q (choices: %s)", e.Name, strings.Join(Names(), ", "))
}

func buildColDrop(kwargs config.Kwargs) (*Op, error) {
	cols, err := kwargs.Strings("columns")
	if err != nil {
		return nil, err
	}
	return &Op{
		Desc: fmt.Sprintf("Drop columns %s", strings.Join(cols, ", ")),
		Apply: func(_ context.Context, t *table.Table) (*table.Table, error) {
			out := t.Clone()
			if err := out.DropColumns(cols...); err != nil {
				return nil, err
			}
			return out, nil
		},
	}, nil
}

func buildColKeep(kwargs config.Kwargs) (*Op, error) {
	cols, err := kwargs.Strings("columns")
	if err != nil {
		return nil, err
	}
	return &Op{
		Desc: fmt.Sprintf("Keep only columns %s", strings.Join(cols, ", ")),
		Apply: func(_ context.Context, t *table.Table) (*table.Table, error) {
			out := t.Clone()
			if err := out.KeepColumns(cols...); err != nil {
				return nil, err
			}
			return out, nil
		},
	}, nil
}

func buildColRename(kwargs config.Kwargs) (*Op, error) {
	mapping, err := kwargs.StringMap("columns")
	if err != nil {
		return nil, err
	}
	froms := make([]string, 0, len(mapping))
	for from := range mapping {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	pairs := make([]string, len(froms))
	for i, from := range froms {
		pairs[i] = fmt.Sprintf("%s to %s", from, mapping[from])
	}
	return &Op{
		Desc: fmt.Sprintf("Rename columns %s", strings.Join(pairs, ", ")),
		Apply: func(_ context.Context, t *table.Table) (*table.Table, error) {
			out := t.Clone()
			for _, from := range froms {
				if err := out.RenameColumn(from, mapping[from]); err != nil {
					return nil, err
				}
			}
			return out, nil
		},
	}, nil
}

func buildRowDropNA(kwargs config.Kwargs) (*Op, error) {
	cols, err := kwargs.StringsDefault("columns", nil)
	if err != nil {
		return nil, err
	}
	desc := "Drop rows with missing values"
	if cols != nil {
		desc = fmt.Sprintf("Drop rows with missing values in %s", strings.Join(cols, ", "))
	}
	return &Op{
		Desc: desc,
		Apply: func(_ context.Context, t *table.Table) (*table.Table, error) {
			scan := cols
			if scan == nil {
				scan = t.Columns()
			}
			mask := make([]bool, t.NumRows())
			for i := range mask {
				mask[i] = true
			}
			for _, col := range scan {
				cells, err := t.Column(col)
				if err != nil {
					return nil, err
				}
				for i, v := range cells {
					if v.IsNull() {
						mask[i] = false
					}
				}
			}
			return t.Select(mask)
		},
	}, nil
}

func buildDropDuplicates(kwargs config.Kwargs) (*Op, error) {
	cols, err := kwargs.StringsDefault("columns", nil)
	if err != nil {
		return nil, err
	}
	return &Op{
		Desc: "Drop duplicate rows",
		Apply: func(_ context.Context, t *table.Table) (*table.Table, error) {
			scan := cols
			if scan == nil {
				scan = t.Columns()
			}
			seen := make(map[string]struct{}, t.NumRows())
			mask := make([]bool, t.NumRows())
			for i := 0; i < t.NumRows(); i++ {
				var key strings.Builder
				for _, col := range scan {
					v, err := t.Cell(col, i)
					if err != nil {
						return nil, err
					}
					key.WriteString(table.FormatCell(v))
					key.WriteByte('\x1f')
				}
				if _, dup := seen[key.String()]; !dup {
					seen[key.String()] = struct{}{}
					mask[i] = true
				}
			}
			return t.Select(mask)
		},
	}, nil
}

func buildFillNA(kwargs config.Kwargs) (*Op, error) {
	fill, err := kwargs.Value("value")
	if err != nil {
		return nil, err
	}
	cols, err := kwargs.StringsDefault("columns", nil)
	if err != nil {
		return nil, err
	}
	return &Op{
		Desc: fmt.Sprintf("Fill missing values with %s", table.FormatCell(fill)),
		Apply: func(_ context.Context, t *table.Table) (*table.Table, error) {
			out := t.Clone()
			scan := cols
			if scan == nil {
				scan = out.Columns()
			}
			for _, col := range scan {
				cells, err := out.Column(col)
				if err != nil {
					return nil, err
				}
				filled := make([]cty.Value, len(cells))
				for i, v := range cells {
					if v.IsNull() {
						filled[i] = fill
					} else {
						filled[i] = v
					}
				}
				if err := out.SetColumn(col, filled); err != nil {
					return nil, err
				}
			}
			return out, nil
		},
	}, nil
}

func buildMapValues(kwargs config.Kwargs) (*Op, error) {
	col, err := kwargs.String("column")
	if err != nil {
		return nil, err
	}
	mapping, err := kwargs.StringMap("mapping")
	if err != nil {
		return nil, err
	}
	return &Op{
		Desc: fmt.Sprintf("Map values in column %s", col),
		Apply: func(_ context.Context, t *table.Table) (*table.Table, error) {
			out := t.Clone()
			cells, err := out.Column(col)
			if err != nil {
				return nil, err
			}
			mapped := make([]cty.Value, len(cells))
			for i, v := range cells {
				if repl, ok := mapping[table.FormatCell(v)]; ok {
					mapped[i] = cty.StringVal(repl)
				} else {
					mapped[i] = v
				}
			}
			if err := out.SetColumn(col, mapped); err != nil {
				return nil, err
			}
			return out, nil
		},
	}, nil
}
