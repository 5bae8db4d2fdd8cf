package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// DefaultResampleFilter is used when no filter is configured.
const DefaultResampleFilter = "lanczos"

var resampleFilters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"mitchell":   imaging.MitchellNetravali,
	"lanczos":    imaging.Lanczos,
	"hermite":    imaging.Hermite,
	"bspline":    imaging.BSpline,
	"gaussian":   imaging.Gaussian,
	"bartlett":   imaging.Bartlett,
	"hann":       imaging.Hann,
	"hamming":    imaging.Hamming,
	"blackman":   imaging.Blackman,
	"welch":      imaging.Welch,
	"cosine":     imaging.Cosine,
}

// ResampleFilterNames lists the accepted filter names in sorted order.
func ResampleFilterNames() []string {
	names := make([]string, 0, len(resampleFilters))
	for name := range resampleFilters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseResampleFilter resolves a filter name (case-insensitive). An empty
// name selects DefaultResampleFilter.
func ParseResampleFilter(name string) (imaging.ResampleFilter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultResampleFilter
	}
	f, ok := resampleFilters[name]
	if !ok {
		return imaging.ResampleFilter{}, &ImageProcessingError{
			Operation: "resample",
			Err:       fmt.Errorf("unknown filter %q (valid: %s)", name, strings.Join(ResampleFilterNames(), ", ")),
		}
	}
	return f, nil
}

// Resample scales img to exactly width x height with the named filter.
// The result is always an *image.NRGBA anchored at the origin.
func Resample(img image.Image, width, height int, filter string) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resample", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resample",
			Err:       fmt.Errorf("invalid target dimensions: %dx%d", width, height),
		}
	}
	f, err := ParseResampleFilter(filter)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, width, height, f), nil
}

// SameColor reports whether a and b have identical premultiplied RGBA values.
func SameColor(a, b color.Color) bool {
	if a == nil || b == nil {
		return false
	}
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}
