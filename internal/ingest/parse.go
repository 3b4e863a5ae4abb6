package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/endorser/internal/rules"
)

const utf8BOM = "\ufeff"

// ParseError reports malformed bulk input.
type ParseError struct {
	FileName string
	Line     int // 0 when the error is not tied to a line
	Err      error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s line %d: %v", e.FileName, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a CSV file of rules of one kind.
//
// The first record is a header naming the columns; every header must be a
// column of kind and every matchable column must be present. Missing
// attribute and flag columns read as empty. Flag cells follow
// rules.ParseFlag: only the exact text "True" is true.
//
// An empty file yields no rules.
func Parse(kind rules.Kind, fileName string, r io.Reader) ([]rules.Rule, error) {
	if !kind.Valid() {
		return nil, &ParseError{FileName: fileName, Err: fmt.Errorf("unknown rule kind %q", kind)}
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []rules.Rule{}, nil
	}
	if err != nil {
		return nil, csvError(fileName, err)
	}
	if err := checkHeader(kind, header); err != nil {
		return nil, &ParseError{FileName: fileName, Line: 1, Err: err}
	}

	parsed := []rules.Rule{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(fileName, err)
		}
		values := make(map[string]string, len(header))
		for i, col := range header {
			values[col] = record[i]
		}
		rule, err := rules.Build(kind, values)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{FileName: fileName, Line: line, Err: err}
		}
		parsed = append(parsed, rule)
	}
	return parsed, nil
}

// checkHeader normalizes header names in place and validates them.
func checkHeader(kind rules.Kind, header []string) error {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		header[i] = col
		if !kind.HasColumn(col) {
			return fmt.Errorf("unknown column %q for %s", col, kind)
		}
		if seen[col] {
			return fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = true
	}
	for _, col := range kind.MatchColumns() {
		if !seen[col] {
			return fmt.Errorf("missing column %q for %s", col, kind)
		}
	}
	return nil
}

func csvError(fileName string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &ParseError{FileName: fileName, Line: perr.Line, Err: perr.Err}
	}
	return &ParseError{FileName: fileName, Err: err}
}
