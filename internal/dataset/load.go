package dataset

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Options controls how a source file is read.
type Options struct {
	// Delimiter for delimited text. If 0, chosen by extension (tab for .tsv/.tab, else comma).
	Delimiter rune
	// DecimalSeparator for numbers. If 0, auto-detect per value.
	DecimalSeparator rune
	// SheetName selects an XLSX sheet by name; SheetIndex (1-based) is used when empty.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns options that auto-detect the delimiter and decimal separator.
func DefaultOptions() Options {
	return Options{SheetIndex: 1}
}

// Load reads the full record set from path and derives the age group for every record.
func Load(path string, opt Options) (*Table, error) {
	header, rows, err := sourceFor(path).Read(path, opt)
	if err != nil {
		return nil, err
	}

	idx, units, dropped, err := resolveHeader(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	recs := make([]Record, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		rec, err := buildRecord(row, idx, opt)
		if err != nil {
			// +2: 1-based and the header line
			return nil, fmt.Errorf("%s: row %d: %w", filepath.Base(path), i+2, err)
		}
		recs = append(recs, rec)
	}

	t := NewTable(filepath.Base(path), recs)
	t.Units = units
	t.Dropped = dropped
	return t, nil
}

// resolveHeader maps required columns to their positions in header.
func resolveHeader(header []string) (map[string]int, map[string]string, []string, error) {
	idx := map[string]int{}
	units := map[string]string{}
	var dropped []string
	for i, h := range header {
		raw := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		clean, unit := splitUnits(raw)
		name, ok := ColumnName(clean)
		if !ok || name == ColAgeGroup {
			if raw == "" {
				raw = fmt.Sprintf("(unnamed column %d)", i+1)
			}
			dropped = append(dropped, raw)
			continue
		}
		if _, dup := idx[name]; dup {
			dropped = append(dropped, raw)
			continue
		}
		idx[name] = i
		if unit != "" {
			units[name] = unit
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, nil, fmt.Errorf("%w: missing required column(s) %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return idx, units, dropped, nil
}

func buildRecord(row []string, idx map[string]int, opt Options) (Record, error) {
	cell := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	var rec Record
	nums := []struct {
		col string
		dst *float64
	}{
		{ColAge, &rec.Age},
		{ColHeight, &rec.Height},
		{ColWeight, &rec.Weight},
		{ColBMI, &rec.BMI},
	}
	for _, n := range nums {
		v := cell(n.col)
		x, ok := parseNumeric(v, opt.DecimalSeparator)
		if !ok {
			return Record{}, fmt.Errorf("%w: column %s: invalid number %q", ErrSchemaMismatch, n.col, v)
		}
		*n.dst = x
	}
	rec.Gender = cell(ColGender)
	rec.Label = cell(ColLabel)
	return rec, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseNumeric parses a number, accepting either '.' or ',' as the decimal separator.
// When dec is 0 the separator is detected from the value. Non-finite values
// (inf, nan) are rejected.
func parseNumeric(s string, dec rune) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if raw == "" {
		return 0, false
	}
	var thou rune
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou != 0 {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	raw = strings.ReplaceAll(raw, " ", "")
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)\s*$`),  // Height (cm)
	regexp.MustCompile(`^(.*?)\s*\[([^\]]+)\]\s*$`), // Weight [kg]
}

// splitUnits separates a trailing unit annotation from a header name.
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) == 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
