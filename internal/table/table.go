// Package table parses CSV data into an ordered, loosely typed record set.
//
// No schema is owned here: the column set comes entirely from the file's
// header row, and each column's JSON type is inferred from its cells.
// Two layouts are understood: a plain CSV with one header row, and the
// AEMO MMS report layout in which C rows are comments, I rows carry the
// header and D rows carry data.
package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed is returned when the input cannot be read as CSV or does not
// fit the detected layout.
var ErrMalformed = errors.New("malformed csv")

// Layout selects how rows are interpreted.
type Layout string

const (
	LayoutAuto  Layout = "auto"
	LayoutPlain Layout = "plain"
	LayoutMMS   Layout = "mms"
)

// ParseLayout converts a config string to a Layout, defaulting to auto.
func ParseLayout(s string) Layout {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutPlain:
		return LayoutPlain
	case LayoutMMS:
		return LayoutMMS
	default:
		return LayoutAuto
	}
}

// Table is a parsed CSV file.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Record is one row: an ordered mapping from column name to value.
// Values are nil, int64, float64, bool or string.
type Record struct {
	columns []string
	values  []any
}

// Get returns the value for column and whether the column exists.
func (r Record) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// MarshalJSON encodes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(r.values[i]); err != nil {
			return nil, fmt.Errorf("column %q: %w", c, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if b := buf.Bytes(); len(b) > 0 && b[len(b)-1] == '\n' {
		buf.Truncate(len(b) - 1)
	}
}

type options struct {
	layout Layout
}

// Option configures Parse.
type Option func(*options)

// WithLayout forces a layout instead of detecting it.
func WithLayout(l Layout) Option {
	return func(o *options) { o.layout = l }
}

// Parse reads CSV data from r.
func Parse(r io.Reader, opts ...Option) (*Table, error) {
	o := options{layout: LayoutAuto}
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(cleanReader(r))
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	layout := o.layout
	if layout == LayoutAuto {
		layout = detectLayout(first)
	}

	var header []string
	var raw [][]string
	switch layout {
	case LayoutMMS:
		header, raw, err = readMMS(cr, first)
	default:
		header, raw, err = readPlain(cr, first)
	}
	if err != nil {
		return nil, err
	}

	return build(header, raw), nil
}

// detectLayout reports MMS when the first record is an MMS comment row.
func detectLayout(first []string) Layout {
	if len(first) > 0 && strings.TrimSpace(first[0]) == "C" {
		return LayoutMMS
	}
	return LayoutPlain
}

func readPlain(cr *csv.Reader, header []string) ([]string, [][]string, error) {
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return header, rows, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d",
				ErrMalformed, line, len(header), len(rec))
		}
		rows = append(rows, rec)
	}
}

// readMMS keeps the first report of an MMS file: its I row is the header and
// the D rows that follow are the data. Later reports are skipped.
func readMMS(cr *csv.Reader, first []string) ([]string, [][]string, error) {
	var header []string
	var rows [][]string

	rec := first
	for {
		switch tag := strings.TrimSpace(rec[0]); {
		case tag == "I" && header == nil:
			header = rec
		case tag == "I":
			return header, rows, nil
		case tag == "D" && header == nil:
			line, _ := cr.FieldPos(0)
			return nil, nil, fmt.Errorf("%w: line %d: data row before header", ErrMalformed, line)
		case tag == "D":
			if len(rec) > len(header) {
				line, _ := cr.FieldPos(0)
				return nil, nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d",
					ErrMalformed, line, len(header), len(rec))
			}
			rows = append(rows, rec)
		}

		var err error
		rec, err = cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if header == nil {
		return nil, nil, fmt.Errorf("%w: no I row found", ErrMalformed)
	}
	return header, rows, nil
}

// build names the columns, infers a kind per column and converts the cells.
func build(header []string, raw [][]string) *Table {
	columns := columnNames(header)
	kinds := make([]kind, len(columns))
	for i := range columns {
		kinds[i] = inferKind(raw, i)
	}

	t := &Table{Columns: columns, Rows: make([]Record, len(raw))}
	for r, row := range raw {
		values := make([]any, len(columns))
		for c := range columns {
			if c < len(row) {
				values[c] = convert(row[c], kinds[c])
			}
		}
		t.Rows[r] = Record{columns: columns, values: values}
	}
	return t
}

// columnNames fills blank names with "Unnamed: <i>" and suffixes duplicates
// with ".1", ".2", ...
func columnNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	dups := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for used[name] {
			dups[base]++
			name = base + "." + strconv.Itoa(dups[base])
		}
		used[name] = true
		names[i] = name
	}
	return names
}
