package pipeline

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the render hint attached to a figure.
type Kind string

const (
	KindTable       Kind = "table"
	KindHistogram   Kind = "histogram"
	KindBox         Kind = "box"
	KindBar         Kind = "bar"
	KindGroupedBar  Kind = "grouped-bar"
	KindLineByGroup Kind = "line-by-group"
	KindHeatmap     Kind = "heatmap"
)

// Figure is one computed table with the axes the display layer should use.
// Err carries a localized failure; the other figures of the run are unaffected.
type Figure struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Frame *Frame `json:"frame,omitempty"`
	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`
	Group string `json:"group,omitempty"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the figure could not be computed.
func (f *Figure) Failed() bool { return f.Err != nil }

func failedFigure(id string, kind Kind, title string, err error) Figure {
	return Figure{ID: id, Kind: kind, Title: title, Err: err, Error: err.Error()}
}

// Column is one named column of a Frame. Exactly one of Strings or Floats is set.
type Column struct {
	Name    string
	Strings []string
	Floats  []float64
}

// Numeric reports whether the column holds numbers.
func (c *Column) Numeric() bool { return c.Strings == nil }

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Numeric() {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// Format renders cell i for display. NaN renders as "n/a".
func (c *Column) Format(i int) string {
	if !c.Numeric() {
		return c.Strings[i]
	}
	v := c.Floats[i]
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MarshalJSON encodes NaN cells as null.
func (c Column) MarshalJSON() ([]byte, error) {
	type out struct {
		Name   string `json:"name"`
		Values any    `json:"values"`
	}
	if !c.Numeric() {
		return json.Marshal(out{Name: c.Name, Values: c.Strings})
	}
	vals := make([]*float64, len(c.Floats))
	for i := range c.Floats {
		if !math.IsNaN(c.Floats[i]) && !math.IsInf(c.Floats[i], 0) {
			vals[i] = &c.Floats[i]
		}
	}
	return json.Marshal(out{Name: c.Name, Values: vals})
}

// Frame is a tidy, column-major table.
type Frame struct {
	Columns []Column `json:"columns"`
}

// AddStrings appends a categorical column. A nil slice is stored as empty.
func (f *Frame) AddStrings(name string, vals []string) *Frame {
	if vals == nil {
		vals = []string{}
	}
	f.Columns = append(f.Columns, Column{Name: name, Strings: vals})
	return f
}

// AddFloats appends a numeric column.
func (f *Frame) AddFloats(name string, vals []float64) *Frame {
	if vals == nil {
		vals = []float64{}
	}
	f.Columns = append(f.Columns, Column{Name: name, Floats: vals})
	return f
}

// Col returns the column called name.
func (f *Frame) Col(name string) (*Column, bool) {
	for i := range f.Columns {
		if f.Columns[i].Name == name {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

// Rows returns the number of rows, taken from the first column.
func (f *Frame) Rows() int {
	if f == nil || len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

// Row renders row i as display strings.
func (f *Frame) Row(i int) []string {
	out := make([]string, len(f.Columns))
	for j := range f.Columns {
		out[j] = f.Columns[j].Format(i)
	}
	return out
}
