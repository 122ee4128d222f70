// Package tabular reads and writes header-keyed tables as CSV or XLSX.
package tabular

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat maps a query value onto a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// FormatFromFilename guesses the format from a file extension, defaulting to CSV.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return XLSX
	}
	return CSV
}

func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string { return "." + string(f) }

// Table is an export: a header row followed by data rows of the same width.
// Cells are text unless their column is marked numeric.
type Table struct {
	Header  []string
	Rows    [][]string
	numeric map[int]bool
}

func NewTable(header ...string) Table {
	return Table{Header: header}
}

// Numeric marks columns whose XLSX cells are written as numbers. Names not in
// the header are ignored.
func (t *Table) Numeric(columns ...string) {
	if t.numeric == nil {
		t.numeric = map[int]bool{}
	}
	for _, c := range columns {
		for i, h := range t.Header {
			if h == c {
				t.numeric[i] = true
			}
		}
	}
}

// IsNumeric reports whether column i was marked numeric.
func (t Table) IsNumeric(i int) bool {
	return t.numeric[i]
}

func (t *Table) Append(values ...string) {
	t.Rows = append(t.Rows, values)
}

// Write encodes t in format f.
func Write(w io.Writer, f Format, t Table) error {
	if f == XLSX {
		return writeXLSX(w, t)
	}
	return writeCSV(w, t)
}

// Read decodes all data rows, keyed by normalized header name. Blank rows are
// dropped.
func Read(r io.Reader, f Format) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	if f == XLSX {
		records, err = readXLSX(r)
	} else {
		records, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = normalizeKey(h)
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := Row{}
		blank := true
		for i, v := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			row[header[i]] = v
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func normalizeKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// Row is one imported record keyed by normalized header name.
type Row map[string]string

// Get returns the first non-empty value among keys.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether any of keys is present with a non-empty value.
func (r Row) Has(keys ...string) bool {
	return r.Get(keys...) != ""
}

// Float parses the first non-empty value among keys. ok is false when none is set.
func (r Row) Float(keys ...string) (v float64, ok bool, err error) {
	s := r.Get(keys...)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid number %q", s)
	}
	return v, true, nil
}

// Int parses the first non-empty value among keys. Whole-valued decimals such
// as "12.0" (spreadsheets like those) are accepted.
func (r Row) Int(keys ...string) (v int64, ok bool, err error) {
	s := r.Get(keys...)
	if s == "" {
		return 0, false, nil
	}
	if v, err = strconv.ParseInt(s, 10, 64); err == nil {
		return v, true, nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f != float64(int64(f)) {
		return 0, true, fmt.Errorf("invalid integer %q", s)
	}
	return int64(f), true, nil
}

// FormatFloat renders money and quantities without trailing zeros.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func FormatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// FormatOptionalInt renders nil as an empty cell.
func FormatOptionalInt(i *int64) string {
	if i == nil {
		return ""
	}
	return FormatInt(*i)
}

func FormatOptional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
