package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is an output file format.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "png" or "pdf", with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: png, pdf)", s)
	}
}

// FormatFromPath infers the format from a file extension, defaulting to PNG.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FormatPDF
	}
	return FormatPNG
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// WriteFileAtomic writes through a temporary file in the destination
// directory and renames it into place, so path never holds partial content.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	if err = os.Chmod(name, 0o644); err != nil { //nolint:gosec // G302: output images are meant to be readable
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	if err = os.Rename(name, path); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}
