package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/healthlens-cli/internal/logging"
	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/KaramelBytes/healthlens-cli/internal/utils"
	"github.com/google/uuid"
)

const manifestFileName = "manifest.json"

// Manifest describes one exported report directory.
type Manifest struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Records   int             `json:"records"`
	Params    pipeline.Params `json:"params"`
	CreatedAt time.Time       `json:"created_at"`
	Files     []ExportedFile  `json:"files"`
}

// ExportedFile is one artifact written by Export.
type ExportedFile struct {
	ID       string        `json:"id"`
	FigureID string        `json:"figure_id,omitempty"`
	Kind     pipeline.Kind `json:"kind,omitempty"`
	Title    string        `json:"title,omitempty"`
	Path     string        `json:"path"`
	Error    string        `json:"error,omitempty"`
}

// Export writes charts, figure tables, report.html, report.md and manifest.json into dir.
// Paths in the manifest are relative to dir.
func Export(dir string, res *pipeline.Result, opt HTMLOptions) (*Manifest, error) {
	for _, sub := range []string{dir, filepath.Join(dir, "charts"), filepath.Join(dir, "tables")} {
		if err := utils.EnsureDir(sub); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	m := &Manifest{
		ID:        uuid.NewString(),
		Source:    res.Source,
		Records:   res.Records,
		Params:    res.Params,
		CreatedAt: time.Now().UTC(),
	}
	add := func(fig *pipeline.Figure, rel string, data []byte) error {
		if err := utils.SafeWriteFile(filepath.Join(dir, rel), data); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
		f := ExportedFile{ID: uuid.NewString(), Path: filepath.ToSlash(rel)}
		if fig != nil {
			f.FigureID, f.Kind, f.Title = fig.ID, fig.Kind, fig.Title
		}
		m.Files = append(m.Files, f)
		return nil
	}

	for i := range res.Figures {
		fig := &res.Figures[i]
		if fig.Failed() {
			m.Files = append(m.Files, ExportedFile{ID: uuid.NewString(), FigureID: fig.ID, Kind: fig.Kind, Title: fig.Title, Error: fig.Error})
			continue
		}
		data, err := frameCSV(fig.Frame)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fig.ID, err)
		}
		if err := add(fig, filepath.Join("tables", fig.ID+".csv"), data); err != nil {
			return nil, err
		}
		if !Chartable(fig) {
			continue
		}
		var buf bytes.Buffer
		if err := RenderChart(&buf, fig, opt.Chart); err != nil {
			return nil, err
		}
		if err := add(fig, filepath.Join("charts", fig.ID+"."+opt.Chart.Ext()), buf.Bytes()); err != nil {
			return nil, err
		}
	}

	var page bytes.Buffer
	if err := HTML(&page, res, opt); err != nil {
		return nil, err
	}
	if err := add(nil, "report.html", page.Bytes()); err != nil {
		return nil, err
	}
	if err := add(nil, "report.md", []byte(Markdown(res))); err != nil {
		return nil, err
	}

	data, err := utils.PrettyJSON(m)
	if err != nil {
		return nil, err
	}
	if err := utils.SafeWriteFile(filepath.Join(dir, manifestFileName), data); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	logging.LogEvent("export: dir=%s files=%d manifest=%s", dir, len(m.Files), m.ID)
	return m, nil
}

// LoadManifest reads manifest.json from a previously exported directory.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func frameCSV(f *pipeline.Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(f.Names()); err != nil {
		return nil, err
	}
	for r := 0; r < f.Rows(); r++ {
		row := f.Row(r)
		for i := range row {
			if f.Columns[i].Numeric() && row[i] == "n/a" {
				row[i] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
