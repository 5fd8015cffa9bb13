package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ReadOptions control how a CSV file is loaded into a table.
type ReadOptions struct {
	// UseCols restricts the load to the named columns, in the given order.
	// Nil keeps every column in file order.
	UseCols []string
	// IndexCol marks the named column as the row index after loading.
	IndexCol string
	// Comma overrides the field delimiter. Zero means ','.
	Comma rune
}

// ReadCSV loads a CSV file with a header row into a table. Cell values are
// inferred per cell: empty becomes null, then number, then bool, then string.
// I/O and parse errors propagate unchanged apart from path annotation.
func ReadCSV(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if opts.Comma != 0 {
		r.Comma = opts.Comma
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading %s: file has no header row", path)
	}

	header := records[0]
	rows := records[1:]

	t := New()
	for i, col := range header {
		cells := make([]cty.Value, len(rows))
		for j, row := range rows {
			cells[j] = inferCell(row[i])
		}
		if err := t.AddColumn(col, cells); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if opts.UseCols != nil {
		if err := t.KeepColumns(opts.UseCols...); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if opts.IndexCol != "" {
		if err := t.SetIndex(opts.IndexCol); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return t, nil
}

// WriteCSV writes the table to path with a header row. The caller is
// responsible for the parent directory existing.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := t.WriteCSVTo(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteCSVTo writes the table as CSV, header row first, to w.
func (t *Table) WriteCSVTo(out io.Writer) error {
	w := csv.NewWriter(out)
	if err := w.Write(t.cols); err != nil {
		return err
	}
	record := make([]string, len(t.cols))
	for row := 0; row < t.NumRows(); row++ {
		for i, col := range t.cols {
			record[i] = FormatCell(t.data[col][row])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// inferCell converts one raw CSV field into a typed cell value.
func inferCell(raw string) cty.Value {
	if raw == "" {
		return cty.NullVal(cty.String)
	}
	if num, err := cty.ParseNumberVal(raw); err == nil {
		return num
	}
	switch strings.ToLower(raw) {
	case "true":
		return cty.True
	case "false":
		return cty.False
	}
	return cty.StringVal(raw)
}

// FormatCell renders a cell value back into its CSV field form.
func FormatCell(v cty.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return v.GoString()
}
