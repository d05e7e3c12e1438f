package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// workbook holds the parts of an .xlsx archive needed to stream one sheet.
type workbook struct {
	zr     *zip.Reader
	sheets []wbSheet
	rels   map[string]string
	shared []string
}

type wbSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"`
}

func openWorkbook(b []byte) (*workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	wb := &workbook{zr: zr, rels: map[string]string{}}

	var book struct {
		Sheets []wbSheet `xml:"sheets>sheet"`
	}
	if data := wb.file("xl/workbook.xml"); len(data) > 0 {
		if err := xml.Unmarshal(data, &book); err != nil {
			return nil, fmt.Errorf("parse workbook: %w", err)
		}
	}
	wb.sheets = book.Sheets

	var rels struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if data := wb.file("xl/_rels/workbook.xml.rels"); len(data) > 0 {
		if err := xml.Unmarshal(data, &rels); err != nil {
			return nil, fmt.Errorf("parse relationships: %w", err)
		}
	}
	for _, r := range rels.Items {
		if r.ID != "" && r.Target != "" {
			wb.rels[r.ID] = r.Target
		}
	}

	var sst struct {
		Items []struct {
			T    string `xml:"t"`
			Runs []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if data := wb.file("xl/sharedStrings.xml"); len(data) > 0 {
		if err := xml.Unmarshal(data, &sst); err != nil {
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}
	}
	for _, si := range sst.Items {
		if len(si.Runs) == 0 {
			wb.shared = append(wb.shared, si.T)
			continue
		}
		var sb strings.Builder
		for _, r := range si.Runs {
			sb.WriteString(r.T)
		}
		wb.shared = append(wb.shared, sb.String())
	}
	return wb, nil
}

func (wb *workbook) file(name string) []byte {
	for _, f := range wb.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

// sheetPath resolves the archive path of a sheet by name, else by 1-based index.
func (wb *workbook) sheetPath(name string, index int) (string, error) {
	if name != "" {
		for _, s := range wb.sheets {
			if strings.EqualFold(s.Name, name) {
				if rel, ok := wb.rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
			}
		}
		names := make([]string, len(wb.sheets))
		for i, s := range wb.sheets {
			names[i] = s.Name
		}
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range wb.sheets {
		if s.SheetID == index {
			if rel, ok := wb.rels[s.RID]; ok {
				return normalizeRelPath(rel), nil
			}
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", index), nil
}

// normalizeRelPath turns a relationship target into a ZIP entry name.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

// sheetRowReader streams rows out of a worksheet XML document.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

type xlsxCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline string `xml:"is>t"`
}

// Next returns the next row, padded to its rightmost populated cell.
func (r *sheetRowReader) Next() ([]string, bool) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row struct {
			Cells []xlsxCell `xml:"c"`
		}
		if err := r.dec.DecodeElement(&row, &se); err != nil {
			return nil, false
		}
		var out []string
		for i, c := range row.Cells {
			idx := i
			if c.Ref != "" {
				idx = colIndexFromRef(c.Ref)
			}
			if idx < 0 {
				continue
			}
			for len(out) <= idx {
				out = append(out, "")
			}
			out[idx] = r.cellValue(c)
		}
		return out, true
	}
}

func (r *sheetRowReader) cellValue(c xlsxCell) string {
	switch c.Type {
	case "s":
		idx := atoiSafe(c.Value)
		if idx >= 0 && idx < len(r.shared) {
			return r.shared[idx]
		}
		return ""
	case "inlineStr":
		return c.Inline
	}
	return c.Value
}

// colIndexFromRef converts a cell reference like "C12" to a 0-based column index.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
