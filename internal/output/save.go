package output

import (
	"errors"
	"image"
	"io"
	"log/slog"
)

// Save writes img to path in the given format with the density dpi. The
// write is atomic.
func Save(path string, img image.Image, dpi float64, format Format) error {
	if img == nil {
		return errors.New("output: nil image")
	}
	err := WriteFileAtomic(path, func(w io.Writer) error {
		if format == FormatPDF {
			return WritePDF(w, img, dpi)
		}
		return EncodePNG(w, img, dpi)
	})
	if err != nil {
		return err
	}
	slog.Debug("Saved output", "path", path, "format", string(format), "dpi", dpi)
	return nil
}
