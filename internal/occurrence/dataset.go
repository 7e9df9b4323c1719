// Package occurrence holds the tabular occurrence dataset the resolution
// engine annotates. Cells are strings; an empty cell stands for null.
package occurrence

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

func New(columns []string) *Dataset {
	ds := &Dataset{index: map[string]int{}}
	for _, col := range columns {
		ds.addColumn(col)
	}
	return ds
}

func (d *Dataset) addColumn(name string) {
	if _, ok := d.index[name]; ok {
		return
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, name)
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

func (d *Dataset) NumRows() int {
	return len(d.rows)
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// EnsureColumn adds an empty column if it does not exist. Existing values
// are untouched; new cells start empty.
func (d *Dataset) EnsureColumn(name string) {
	if d.HasColumn(name) {
		return
	}
	d.addColumn(name)
	for i := range d.rows {
		d.rows[i] = append(d.rows[i], "")
	}
}

// AppendRow adds a row; it must have one value per current column.
func (d *Dataset) AppendRow(values []string) error {
	if len(values) != len(d.columns) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(values), len(d.columns))
	}
	row := make([]string, len(values))
	copy(row, values)
	d.rows = append(d.rows, row)
	return nil
}

func (d *Dataset) Get(row int, col string) string {
	idx, ok := d.index[col]
	if !ok {
		return ""
	}
	return d.rows[row][idx]
}

func (d *Dataset) Set(row int, col string, value string) {
	idx, ok := d.index[col]
	if !ok {
		return
	}
	d.rows[row][idx] = value
}

// RequireColumns reports a precondition violation naming every missing
// column, so a caller can refuse the dataset before any remote work.
func (d *Dataset) RequireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if !d.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("dataset missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadCSV loads a dataset from CSV, first record as header.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	ds := New(header)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", ds.NumRows()+1, err)
		}
		// Tolerate ragged rows: pad or truncate to the header width.
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		} else if len(record) > len(header) {
			record = record[:len(header)]
		}
		if err := ds.AppendRow(record); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WriteCSV writes the dataset with its columns in order.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.columns); err != nil {
		return err
	}
	for _, row := range d.rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
