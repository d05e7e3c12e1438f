package dataset

import (
	"errors"
	"strings"
)

var (
	// ErrSourceUnavailable indicates the dataset file could not be opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSchemaMismatch indicates the dataset does not have the expected shape.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Column names as exposed by Table accessors.
const (
	ColAge      = "Age"
	ColHeight   = "Height"
	ColWeight   = "Weight"
	ColBMI      = "BMI"
	ColGender   = "Gender"
	ColLabel    = "Label"
	ColAgeGroup = "AgeGroup"
)

// NumericColumns lists the numeric attributes in dataset order.
var NumericColumns = []string{ColAge, ColHeight, ColWeight, ColBMI}

// CategoricalColumns lists the categorical attributes, including the derived age group.
var CategoricalColumns = []string{ColGender, ColLabel, ColAgeGroup}

// RequiredColumns must be present in every source header.
var RequiredColumns = []string{ColAge, ColHeight, ColWeight, ColBMI, ColGender, ColLabel}

// Record is one individual's health profile.
type Record struct {
	Age      float64
	Height   float64
	Weight   float64
	BMI      float64
	Gender   string
	Label    string
	AgeGroup AgeGroup
}

// Table is the prepared, read-only record set produced by Load.
type Table struct {
	Source  string
	Records []Record
	// Units maps canonical column names to units parsed from the header, e.g. Height -> cm.
	Units map[string]string
	// Dropped lists source columns that were not carried into the table.
	Dropped []string
}

// NewTable builds a table from records, deriving the age group and normalizing gender.
// The input slice is copied.
func NewTable(source string, recs []Record) *Table {
	out := make([]Record, len(recs))
	for i, r := range recs {
		r.Gender = NormalizeGender(r.Gender)
		r.Label = strings.TrimSpace(r.Label)
		r.AgeGroup = AgeGroupFor(r.Age)
		out[i] = r
	}
	return &Table{Source: source, Records: out, Units: map[string]string{}}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Filter returns a new table holding the records that satisfy keep.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := &Table{}
	if t == nil {
		return out
	}
	out.Source = t.Source
	out.Units = t.Units
	out.Dropped = t.Dropped
	for _, r := range t.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// ColumnName resolves a case-insensitive column name to its canonical spelling.
func ColumnName(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "age":
		return ColAge, true
	case "height":
		return ColHeight, true
	case "weight":
		return ColWeight, true
	case "bmi":
		return ColBMI, true
	case "gender", "sex":
		return ColGender, true
	case "label", "class":
		return ColLabel, true
	case "agegroup", "age_group", "age group":
		return ColAgeGroup, true
	}
	return "", false
}

// IsNumeric reports whether name refers to a numeric column.
func IsNumeric(name string) bool {
	c, ok := ColumnName(name)
	if !ok {
		return false
	}
	for _, n := range NumericColumns {
		if n == c {
			return true
		}
	}
	return false
}

// Numeric returns the values of a numeric column in record order.
func (t *Table) Numeric(name string) ([]float64, bool) {
	c, ok := ColumnName(name)
	if !ok || !IsNumeric(c) {
		return nil, false
	}
	out := make([]float64, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.Records[i]
		switch c {
		case ColAge:
			out[i] = r.Age
		case ColHeight:
			out[i] = r.Height
		case ColWeight:
			out[i] = r.Weight
		case ColBMI:
			out[i] = r.BMI
		}
	}
	return out, true
}

// Categorical returns the values of a categorical column in record order.
// Unassigned age groups are returned as the empty string.
func (t *Table) Categorical(name string) ([]string, bool) {
	c, ok := ColumnName(name)
	if !ok || IsNumeric(c) {
		return nil, false
	}
	out := make([]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.Records[i]
		switch c {
		case ColGender:
			out[i] = r.Gender
		case ColLabel:
			out[i] = r.Label
		case ColAgeGroup:
			out[i] = r.AgeGroup.Label()
		}
	}
	return out, true
}

// NormalizeGender maps any casing of male/female to "Male"/"Female".
// Other values are trimmed and kept as given.
func NormalizeGender(s string) string {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "male":
		return "Male"
	case "female":
		return "Female"
	}
	return v
}

// GenderIs compares a gender value case-insensitively.
func GenderIs(value, want string) bool {
	return strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(want))
}
