package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Table is a header-addressed set of string rows.
type Table struct {
	Header []string
	Rows   [][]string
	cols   map[string]int
}

func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, eris.New("dataset: table has no header row")
	}
	t := &Table{Header: records[0], Rows: records[1:], cols: make(map[string]int)}
	for i, h := range t.Header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := t.cols[h]; !dup {
			t.cols[h] = i
		}
	}
	return t, nil
}

// Has reports whether the table has the named column (case-insensitive).
func (t *Table) Has(column string) bool {
	_, ok := t.cols[strings.ToLower(column)]
	return ok
}

// Get returns the named column of row i, or "" when the column or cell is
// missing.
func (t *Table) Get(i int, column string) string {
	c, ok := t.cols[strings.ToLower(column)]
	if !ok || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

// Require fails unless every named column exists.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return eris.Errorf("dataset: missing column %q (have %v)", c, t.Header)
		}
	}
	return nil
}

// ReadTable reads a CSV or XLSX table from location. The format follows the
// file extension; anything other than .xlsx is read as CSV.
func (s *Source) ReadTable(ctx context.Context, location string) (*Table, error) {
	rc, err := s.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	if strings.EqualFold(extension(location), ".xlsx") {
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", location)
		}
		return ParseXLSX(data)
	}
	return ParseCSV(rc)
}

func extension(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return path.Ext(u.Path)
	}
	return path.Ext(location)
}

// ParseCSV reads a CSV table whose first row is the header. Quoted cells
// may span lines.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: csv")
	}
	return newTable(records)
}

// ParseXLSX reads the first sheet of an XLSX workbook; its first row is the
// header.
func ParseXLSX(data []byte) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: xlsx: open")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: xlsx: workbook has no sheets")
	}
	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return newTable(records)
}
