// Package csvimport reads header-keyed CSV uploads. Column names match
// case-insensitively; failures are validation errors naming the row.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"timesheet/internal/domain/errs"
)

const MaxRows = 5000

type Row struct {
	line   int
	values map[string]string
}

// Line is the 1-based data row, not counting the header.
func (r Row) Line() int { return r.line }

func (r Row) Get(col string) string {
	return strings.TrimSpace(r.values[strings.ToLower(col)])
}

func (r Row) invalid(col, reason string) error {
	return errs.AtRow(r.line, errs.Invalid(col, reason))
}

// Date parses an optional YYYY-MM-DD column.
func (r Row) Date(col string) (*time.Time, error) {
	raw := r.Get(col)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, r.invalid(col, "must be YYYY-MM-DD")
	}
	return &t, nil
}

// Float parses an optional number column.
func (r Row) Float(col string) (*float64, error) {
	raw := r.Get(col)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, r.invalid(col, "must be a number")
	}
	return &f, nil
}

// Bool parses an optional true/false column. Empty is false.
func (r Row) Bool(col string) (bool, error) {
	raw := r.Get(col)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return false, r.invalid(col, "must be true or false")
	}
	return b, nil
}

// Require fails when any of cols is blank on this row.
func (r Row) Require(cols ...string) error {
	for _, col := range cols {
		if r.Get(col) == "" {
			return r.invalid(col, "is required")
		}
	}
	return nil
}

// Read returns the data rows of a CSV whose header names every column in
// required.
func Read(src io.Reader, required ...string) ([]Row, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.Invalid("file", "is empty")
	}
	if err != nil {
		return nil, errs.Invalid("file", fmt.Sprintf("is not valid csv: %v", err))
	}
	cols := make([]string, len(header))
	present := map[string]bool{}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[i] = name
		present[name] = true
	}
	for _, col := range required {
		if !present[strings.ToLower(col)] {
			return nil, errs.Invalid("file", "missing column "+col)
		}
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Invalid("file", fmt.Sprintf("is not valid csv: %v", err))
		}
		if blank(record) {
			continue
		}
		if len(rows) == MaxRows {
			return nil, errs.Invalid("file", fmt.Sprintf("has more than %d rows", MaxRows))
		}
		row := Row{line: len(rows) + 1, values: make(map[string]string, len(cols))}
		for i, value := range record {
			if i < len(cols) {
				row.values[cols[i]] = value
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
