package dataset

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `ID,Age,Gender,Height,Weight,BMI,Label
1,25,Male,175,80,25.3,Normal Weight
2,30,Female,160,60,23.4,Normal Weight
3,35,Male,180,90,27.8,Overweight
4,40,Female,150,50,22.2,Underweight
5,9,Male,130,30,17.8,Underweight
6,120,female,155,95,39.5,Obese
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadCSV(t *testing.T) {
	p := writeFile(t, "obesity.csv", sampleCSV)
	tbl, err := Load(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 6 {
		t.Fatalf("len = %d, want 6", tbl.Len())
	}
	if tbl.Source != "obesity.csv" {
		t.Fatalf("source = %q", tbl.Source)
	}
	if len(tbl.Dropped) != 1 || tbl.Dropped[0] != "ID" {
		t.Fatalf("dropped = %#v, want [ID]", tbl.Dropped)
	}
	first := tbl.Records[0]
	if first.Age != 25 || first.Height != 175 || first.Weight != 80 || first.BMI != 25.3 {
		t.Fatalf("first record = %#v", first)
	}
	if first.AgeGroup.Label() != "20-29" {
		t.Fatalf("age group = %q, want 20-29", first.AgeGroup.Label())
	}
	// ages outside [10,120) are kept but unassigned
	if tbl.Records[4].AgeGroup.Assigned() || tbl.Records[5].AgeGroup.Assigned() {
		t.Fatalf("expected unassigned groups for ages 9 and 120")
	}
	if tbl.Records[5].Gender != "Female" {
		t.Fatalf("gender = %q, want Female", tbl.Records[5].Gender)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	p := writeFile(t, "nobmi.csv", "Age,Gender,Height,Weight,Label\n25,Male,175,80,Normal Weight\n")
	_, err := Load(p, DefaultOptions())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
	if !strings.Contains(err.Error(), "BMI") {
		t.Fatalf("error should name the missing column: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"), DefaultOptions())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("underlying error lost: %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	p := writeFile(t, "empty.csv", "")
	if _, err := Load(p, DefaultOptions()); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestLoadInvalidNumber(t *testing.T) {
	tests := []struct {
		name string
		row  string
		row2 string
		col  string
	}{
		{"word", "25,Male,tall,80,25,Normal Weight", "", "Height"},
		{"inf age", "inf,Male,175,80,25,Normal Weight", "", "Age"},
		{"signed inf", "25,Male,+Inf,80,25,Normal Weight", "", "Height"},
		{"infinity", "25,Male,175,80,Infinity,Obese", "", "BMI"},
		{"nan weight", "25,Male,175,80,25,Normal Weight", "30,Female,160,nan,22,Normal Weight", "Weight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "Age,Gender,Height,Weight,BMI,Label\n" + tt.row + "\n"
			wantRow := "row 2"
			if tt.row2 != "" {
				content += tt.row2 + "\n"
				wantRow = "row 3"
			}
			p := writeFile(t, "bad.csv", content)
			_, err := Load(p, DefaultOptions())
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Fatalf("err = %v, want ErrSchemaMismatch", err)
			}
			if !strings.Contains(err.Error(), wantRow) || !strings.Contains(err.Error(), tt.col) {
				t.Fatalf("error lacks position detail (%s, %s): %v", wantRow, tt.col, err)
			}
		})
	}
}

func TestLoadUnitsSemicolonAndComma(t *testing.T) {
	content := "age;GENDER;Height (cm);Weight [kg];bmi;label\n" +
		"41;male;172,5;81,2;27,3;Overweight\n\n"
	p := writeFile(t, "eu.csv", content)
	opt := DefaultOptions()
	opt.Delimiter = ';'
	tbl, err := Load(p, opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("len = %d, want 1 (blank rows skipped)", tbl.Len())
	}
	r := tbl.Records[0]
	if r.Height != 172.5 || r.Weight != 81.2 || r.BMI != 27.3 {
		t.Fatalf("record = %#v", r)
	}
	if tbl.Units[ColHeight] != "cm" || tbl.Units[ColWeight] != "kg" {
		t.Fatalf("units = %#v", tbl.Units)
	}
	if r.Gender != "Male" {
		t.Fatalf("gender = %q", r.Gender)
	}
}

func TestLoadTSVByExtension(t *testing.T) {
	p := writeFile(t, "data.tsv", "Age\tGender\tHeight\tWeight\tBMI\tLabel\n56\tFemale\t165\t70\t25.7\tOverweight\n")
	tbl, err := Load(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 1 || tbl.Records[0].AgeGroup.Label() != "50-59" {
		t.Fatalf("records = %#v", tbl.Records)
	}
}

func TestLoadXLSX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.xlsx")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0"?><workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets><sheet name="Data" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="worksheet" Target="/xl/worksheets/sheet1.xml"/></Relationships>`,
		"xl/sharedStrings.xml":       `<?xml version="1.0"?><sst><si><t>Gender</t></si><si><t>Female</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?><worksheet><sheetData>` +
			`<row r="1"><c r="A1" t="inlineStr"><is><t>Age</t></is></c><c r="B1" t="s"><v>0</v></c><c r="C1" t="inlineStr"><is><t>Height</t></is></c><c r="D1" t="inlineStr"><is><t>Weight</t></is></c><c r="E1" t="inlineStr"><is><t>BMI</t></is></c><c r="F1" t="inlineStr"><is><t>Label</t></is></c></row>` +
			`<row r="2"><c r="A2"><v>33</v></c><c r="B2" t="s"><v>1</v></c><c r="C2"><v>158</v></c><c r="D2"><v>49</v></c><c r="E2"><v>19.6</v></c><c r="F2" t="inlineStr"><is><t>Normal Weight</t></is></c></row>` +
			`</sheetData></worksheet>`,
	}
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	f.Close()

	opt := DefaultOptions()
	opt.SheetName = "data"
	tbl, err := Load(p, opt)
	if err != nil {
		t.Fatalf("Load xlsx: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("len = %d", tbl.Len())
	}
	r := tbl.Records[0]
	if r.Age != 33 || r.Gender != "Female" || r.Label != "Normal Weight" || r.AgeGroup.Label() != "30-39" {
		t.Fatalf("record = %#v", r)
	}

	opt.SheetName = "Missing"
	if _, err := Load(p, opt); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch for unknown sheet", err)
	}
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.input); got != tt.expected {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTableAccessors(t *testing.T) {
	tbl := NewTable("mem", []Record{
		{Age: 25, BMI: 22, Gender: " FEMALE ", Label: "Normal Weight"},
		{Age: 5, BMI: 18, Gender: "male", Label: "Underweight"},
	})
	bmi, ok := tbl.Numeric("bmi")
	if !ok || len(bmi) != 2 || bmi[1] != 18 {
		t.Fatalf("Numeric(bmi) = %v, %v", bmi, ok)
	}
	groups, ok := tbl.Categorical("agegroup")
	if !ok || groups[0] != "20-29" || groups[1] != "" {
		t.Fatalf("Categorical(agegroup) = %#v", groups)
	}
	if _, ok := tbl.Numeric("Gender"); ok {
		t.Fatalf("Gender must not be numeric")
	}
	if _, ok := tbl.Categorical("Shoe"); ok {
		t.Fatalf("unknown column must not resolve")
	}
	females := tbl.Filter(func(r Record) bool { return GenderIs(r.Gender, "female") })
	if females.Len() != 1 || females.Records[0].Gender != "Female" {
		t.Fatalf("filter = %#v", females.Records)
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		dec  rune
		want float64
		ok   bool
	}{
		{"25.3", 0, 25.3, true},
		{"25,3", 0, 25.3, true},
		{"1.234,5", 0, 1234.5, true},
		{"1,234.5", 0, 1234.5, true},
		{"1 234", 0, 1234, true},
		{"12,5", '.', 0, false},
		{"", 0, 0, false},
		{"abc", 0, 0, false},
		{"inf", 0, 0, false},
		{"+Inf", 0, 0, false},
		{"-Infinity", 0, 0, false},
		{"nan", 0, 0, false},
		{"NaN", '.', 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumeric(tt.in, tt.dec)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseNumeric(%q, %q) = %v, %v; want %v, %v", tt.in, tt.dec, got, ok, tt.want, tt.ok)
		}
	}
}
