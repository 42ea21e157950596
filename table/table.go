// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package table reads and writes delimited text tables with a header row.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("table: unsupported file format")
	ErrNoColumn          = errors.New("table: no such column")
)

// Table is an in-memory table. Every row has the same number
// of cells as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Delimiter returns the field delimiter implied by the extension of
// path: tab for .tsv and .txt, comma for .csv.
func Delimiter(path string) (rune, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return '\t', nil
	case ".csv":
		return ',', nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// ReadFile reads the table at path, choosing the delimiter from the
// file extension. Unsupported extensions are rejected before the file
// is opened.
func ReadFile(path string) (*Table, error) {
	comma, err := Delimiter(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(f, comma)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return t, nil
}

// Read reads a table from r using the given field delimiter. Rows
// shorter than the header are padded with empty cells.
func Read(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("table: no header")
	}
	if err != nil {
		return nil, err
	}
	t := &Table{Header: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case len(rec) > len(header):
			return nil, fmt.Errorf("table: line %d: %d fields for %d columns", line, len(rec), len(header))
		case len(rec) < len(header):
			rec = append(rec, make([]string, len(header)-len(rec))...)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Column returns the index of the first column with the given name.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNoColumn, name)
}

// AddColumn returns the index of the named column, appending an empty
// column to the table if none exists.
func (t *Table) AddColumn(name string) int {
	if i, err := t.Column(name); err == nil {
		return i
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Header) - 1
}

// Write writes the table to w as tab-separated text.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	err := cw.Write(t.Header)
	if err != nil {
		return err
	}
	err = cw.WriteAll(t.Rows)
	if err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes the table to the file at path as tab-separated text.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = t.Write(f)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// nulls is the set of cell values treated as missing. It matches the
// default missing value markers of common data frame readers so that
// tables produced by those tools are read as they intended.
var nulls = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNull returns whether the cell value represents a missing value.
func IsNull(cell string) bool {
	return nulls[strings.TrimSpace(cell)]
}
