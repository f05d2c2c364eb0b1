// Package output renders discovery results for --list and writes them to
// stdout or a file.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format selects how a Listing is rendered.
type Format string

// Supported formats. FormatNone means no listing: the fetch phase runs.
const (
	FormatNone Format = ""
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
)

// ErrInvalidFormat is returned for unrecognized --list values.
var ErrInvalidFormat = errors.New("invalid format")

// ParseFormat accepts json and txt in any case, and the empty string.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatNone, FormatJSON, FormatTXT:
		return f, nil
	default:
		return FormatNone, fmt.Errorf("%w: %q, expected one of json, txt", ErrInvalidFormat, raw)
	}
}

// Listing is the JSON shape of a discovery result.
type Listing struct {
	URLs     []string `json:"urls"`
	Sitemaps []string `json:"sitemaps"`
}

// Write renders l to w.
func Write(w io.Writer, format Format, l Listing) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, l)
	case FormatTXT:
		return writeTXT(w, l)
	default:
		return fmt.Errorf("%w: %q cannot be written", ErrInvalidFormat, string(format))
	}
}

func writeJSON(w io.Writer, l Listing) error {
	if l.URLs == nil {
		l.URLs = []string{}
	}
	if l.Sitemaps == nil {
		l.Sitemaps = []string{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(l); err != nil {
		return fmt.Errorf("encode json listing: %w", err)
	}
	// The listing is a single JSON document without a trailing newline.
	if _, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))); err != nil {
		return fmt.Errorf("write json listing: %w", err)
	}
	return nil
}

func writeTXT(w io.Writer, l Listing) error {
	var b strings.Builder
	for _, u := range l.URLs {
		b.WriteString(" * ")
		b.WriteString(u)
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write txt listing: %w", err)
	}
	return nil
}

// CreateFile opens path for writing, creating parent directories and
// truncating an existing file.
func CreateFile(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("output path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return file, nil
}

// WriteFile renders l into the file at path.
func WriteFile(path string, format Format, l Listing) (err error) {
	file, err := CreateFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()
	return Write(file, format, l)
}
