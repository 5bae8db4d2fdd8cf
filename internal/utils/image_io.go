package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path        string
	Format      string
	SizeBytes   int64
	Width       int
	Height      int
	AspectRatio float64
}

// ImageConstraints bounds decoded images. Zero fields are not checked.
type ImageConstraints struct {
	MinWidth  int
	MinHeight int
	MaxPixels int
}

// DefaultImageConstraints rejects empty images and anything above 100 MP.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MinWidth:  1,
		MinHeight: 1,
		MaxPixels: 100_000_000,
	}
}

// LoadImage opens and decodes an image file, returning the image and metadata.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		err := &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
		return nil, ImageMetadata{}, err
	}
	if !IsSupportedImage(path) {
		err := &ImageProcessingError{Operation: "load", Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
		return nil, ImageMetadata{}, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}

	img, meta, err := DecodeImage(bytes.NewReader(data), DefaultImageConstraints())
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	meta.Path = path
	meta.SizeBytes = int64(len(data))
	return img, meta, nil
}

// DecodeImage decodes an image from r after checking its header against the
// constraints, so oversized images are rejected before their pixels are
// allocated.
func DecodeImage(r io.ReadSeeker, constraints ImageConstraints) (image.Image, ImageMetadata, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}
	if err := checkConstraints(cfg.Width, cfg.Height, constraints); err != nil {
		return nil, ImageMetadata{}, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}

	b := img.Bounds()
	meta := ImageMetadata{
		Format:      format,
		Width:       b.Dx(),
		Height:      b.Dy(),
		AspectRatio: float64(b.Dx()) / float64(b.Dy()),
	}
	return img, meta, nil
}

func checkConstraints(w, h int, c ImageConstraints) error {
	if w < c.MinWidth || h < c.MinHeight || w <= 0 || h <= 0 {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too small: %dx%d < %dx%d", w, h, c.MinWidth, c.MinHeight),
		}
	}
	if c.MaxPixels > 0 && w*h > c.MaxPixels {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too large: %dx%d exceeds %d pixels", w, h, c.MaxPixels),
		}
	}
	return nil
}
