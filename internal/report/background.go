package report

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// BackgroundDataURI reads an image file and encodes it as a base64 data URI.
func BackgroundDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read background image: %w", err)
	}
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if i := strings.IndexByte(ctype, ';'); i >= 0 {
		ctype = ctype[:i]
	}
	if !strings.HasPrefix(ctype, "image/") {
		return "", fmt.Errorf("background image %s: unsupported content type %q", filepath.Base(path), ctype)
	}
	return "data:" + ctype + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
