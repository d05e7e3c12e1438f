package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source reads the raw header and rows of a tabular file.
type Source interface {
	CanRead(path string) bool
	Read(path string, opt Options) (header []string, rows [][]string, err error)
}

var registry []Source

// Register adds a source implementation. Later registrations are tried first.
func Register(s Source) {
	registry = append([]Source{s}, registry...)
}

func sourceFor(path string) Source {
	for _, s := range registry {
		if s.CanRead(path) {
			return s
		}
	}
	return delimitedSource{}
}

func init() {
	Register(delimitedSource{})
	Register(xlsxSource{})
}

type delimitedSource struct{}

func (delimitedSource) CanRead(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".tab")
}

func (delimitedSource) Read(path string, opt Options) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %w", ErrSourceUnavailable, path, err)
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: %s has no header row", ErrSchemaMismatch, path)
		}
		return nil, nil, fmt.Errorf("%w: read header: %w", ErrSourceUnavailable, err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: read row %d: %w", ErrSourceUnavailable, len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".tab") {
		return '\t'
	}
	return ','
}

type xlsxSource struct{}

func (xlsxSource) CanRead(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xlsx")
}

func (xlsxSource) Read(path string, opt Options) ([]string, [][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %w", ErrSourceUnavailable, path, err)
	}
	wb, err := openWorkbook(b)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	sheet, err := wb.sheetPath(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	rr := newSheetRowReader(wb.file(sheet), wb.shared)
	header, ok := rr.Next()
	if !ok || len(header) == 0 {
		return nil, nil, fmt.Errorf("%w: sheet %s has no header row", ErrSchemaMismatch, sheet)
	}
	var rows [][]string
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
