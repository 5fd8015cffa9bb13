// Package checks is the built-in library of whole-table assertions used by
// engarde-kind stages. A check inspects the table and fails with a
// descriptive error; it never modifies the table.
package checks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/pipewrench/internal/config"
	"github.com/vk/pipewrench/internal/table"
)

// Check is one instantiated assertion with its default description.
type Check struct {
	Desc  string
	Apply func(ctx context.Context, t *table.Table) error
}

type builder func(kwargs config.Kwargs) (*Check, error)

var builders = map[string]builder{
	"none_missing":  buildNoneMissing,
	"unique_index":  buildUniqueIndex,
	"has_columns":   buildHasColumns,
	"within_range":  buildWithinRange,
	"none_negative": buildNoneNegative,
}

// Names returns the available check names, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named check with the given kwargs.
func Build(name string, kwargs config.Kwargs) (*Check, error) {
	b, ok := builders[name]
	if !ok {
		return nil, &CheckNotFoundError{Name: name}
	}
	chk, err := b(kwargs)
	if err != nil {
		return nil, fmt.Errorf("check %q: %w", name, err)
	}
	return chk, nil
}

// CheckNotFoundError reports an unknown built-in check name.
type CheckNotFoundError struct {
	Name string
}

func (e *CheckNotFoundError) Error() string {
	return fmt.Sprintf("no built-in check named %q (choices: %s)", e.Name, strings.Join(Names(), ", "))
}

// AssertionError reports rows or columns that violated a check.
type AssertionError struct {
	Check  string
	Detail string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("check %q failed: %s", e.Check, e.Detail)
}

func buildNoneMissing(kwargs config.Kwargs) (*Check, error) {
	cols, err := kwargs.StringsDefault("columns", nil)
	if err != nil {
		return nil, err
	}
	return &Check{
		Desc: "Check that no values are missing",
		Apply: func(_ context.Context, t *table.Table) error {
			scan := cols
			if scan == nil {
				scan = t.Columns()
			}
			index := t.IndexValues()
			for _, col := range scan {
				cells, err := t.Column(col)
				if err != nil {
					return err
				}
				var missing []string
				for i, v := range cells {
					if v.IsNull() {
						missing = append(missing, table.FormatCell(index[i]))
					}
				}
				if missing != nil {
					return &AssertionError{
						Check:  "none_missing",
						Detail: fmt.Sprintf("column %q has missing values at rows [%s]", col, strings.Join(missing, " ")),
					}
				}
			}
			return nil
		},
	}, nil
}

func buildUniqueIndex(config.Kwargs) (*Check, error) {
	return &Check{
		Desc: "Check that the index is unique",
		Apply: func(_ context.Context, t *table.Table) error {
			seen := make(map[string]struct{}, t.NumRows())
			var dups []string
			for _, v := range t.IndexValues() {
				key := table.FormatCell(v)
				if _, dup := seen[key]; dup {
					dups = append(dups, key)
				}
				seen[key] = struct{}{}
			}
			if dups != nil {
				return &AssertionError{
					Check:  "unique_index",
					Detail: fmt.Sprintf("duplicate index values [%s]", strings.Join(dups, " ")),
				}
			}
			return nil
		},
	}, nil
}

func buildHasColumns(kwargs config.Kwargs) (*Check, error) {
	cols, err := kwargs.Strings("columns")
	if err != nil {
		return nil, err
	}
	return &Check{
		Desc: fmt.Sprintf("Check that columns %s exist", strings.Join(cols, ", ")),
		Apply: func(_ context.Context, t *table.Table) error {
			var absent []string
			for _, col := range cols {
				if !t.HasColumn(col) {
					absent = append(absent, col)
				}
			}
			if absent != nil {
				return &AssertionError{
					Check:  "has_columns",
					Detail: fmt.Sprintf("missing columns [%s]", strings.Join(absent, " ")),
				}
			}
			return nil
		},
	}, nil
}

func buildWithinRange(kwargs config.Kwargs) (*Check, error) {
	col, err := kwargs.String("column")
	if err != nil {
		return nil, err
	}
	lo, err := kwargs.Number("min")
	if err != nil {
		return nil, err
	}
	hi, err := kwargs.Number("max")
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, fmt.Errorf("min %v is greater than max %v", lo, hi)
	}
	return &Check{
		Desc: fmt.Sprintf("Check that %s is within [%v, %v]", col, lo, hi),
		Apply: func(_ context.Context, t *table.Table) error {
			cells, err := t.Column(col)
			if err != nil {
				return err
			}
			index := t.IndexValues()
			var out []string
			for i, v := range cells {
				f, err := cellNumber(v)
				if err != nil {
					return fmt.Errorf("column %q, row %s: %w", col, table.FormatCell(index[i]), err)
				}
				if f < lo || f > hi {
					out = append(out, table.FormatCell(index[i]))
				}
			}
			if out != nil {
				return &AssertionError{
					Check:  "within_range",
					Detail: fmt.Sprintf("column %q out of [%v, %v] at rows [%s]", col, lo, hi, strings.Join(out, " ")),
				}
			}
			return nil
		},
	}, nil
}

func buildNoneNegative(kwargs config.Kwargs) (*Check, error) {
	cols, err := kwargs.Strings("columns")
	if err != nil {
		return nil, err
	}
	return &Check{
		Desc: fmt.Sprintf("Check that %s are not negative", strings.Join(cols, ", ")),
		Apply: func(_ context.Context, t *table.Table) error {
			index := t.IndexValues()
			for _, col := range cols {
				cells, err := t.Column(col)
				if err != nil {
					return err
				}
				var neg []string
				for i, v := range cells {
					f, err := cellNumber(v)
					if err != nil {
						return fmt.Errorf("column %q, row %s: %w", col, table.FormatCell(index[i]), err)
					}
					if f < 0 {
						neg = append(neg, table.FormatCell(index[i]))
					}
				}
				if neg != nil {
					return &AssertionError{
						Check:  "none_negative",
						Detail: fmt.Sprintf("column %q negative at rows [%s]", col, strings.Join(neg, " ")),
					}
				}
			}
			return nil
		},
	}, nil
}

// cellNumber converts a non-null cell to float64. Null cells are an error;
// use none_missing or fill_na upstream when nulls are expected.
func cellNumber(v cty.Value) (float64, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("value is missing")
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("value %s is not numeric", table.FormatCell(v))
	}
	f, _ := conv.AsBigFloat().Float64()
	return f, nil
}
