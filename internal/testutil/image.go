package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Checkerboard returns a w x h image of cell-sized squares, starting with a
// in the top-left corner.
func Checkerboard(w, h, cell int, a, b color.Color) *image.NRGBA {
	if cell <= 0 {
		cell = 1
	}
	img := imaging.New(w, h, b)
	for y := range h {
		for x := range w {
			if (x/cell+y/cell)%2 == 0 {
				img.Set(x, y, a)
			}
		}
	}
	return img
}

// Solid returns a w x h image of a single colour.
func Solid(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

// Gradient returns an opaque image whose red channel grows left to right and
// green channel top to bottom.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(255 * x / max(1, w-1)),
				G: uint8(255 * y / max(1, h-1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// Labeled draws text centred on a white w x h image with the basic 7x13
// face, the kind of picture a user typically distorts.
func Labeled(text string, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.Black, Face: face}
	tw := font.MeasureString(face, text).Ceil()
	th := face.Metrics().Height.Ceil()
	d.Dot = fixed.P((w-tw)/2, (h+th)/2)
	d.DrawString(text)
	return img
}

// WithTransparentBorder returns a copy of img padded by border fully
// transparent pixels on each side.
func WithTransparentBorder(img image.Image, border int) *image.NRGBA {
	b := img.Bounds()
	out := imaging.New(b.Dx()+2*border, b.Dy()+2*border, color.Transparent)
	return imaging.Paste(out, img, image.Pt(border, border))
}

// SaveImage encodes img by the extension of path (.png, .jpg, .jpeg, .gif,
// .bmp).
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, EnsureDir(filepath.Dir(path)))

	f, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() { require.NoError(t, f.Close()) }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	case ".gif":
		err = gif.Encode(f, img, nil)
	case ".bmp":
		err = bmp.Encode(f, img)
	default:
		err = png.Encode(f, img)
	}
	require.NoError(t, err, "Failed to encode %s", path)
}

// LoadImage decodes the image at path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()
	img, err := LoadImageFile(path)
	require.NoError(t, err)
	return img
}

// LoadImageFile loads an image from the specified path (non-testing version).
func LoadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path supplied by the test
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// CompareImages reports whether two images of equal bounds differ on
// average by at most tolerance (0..1) of the maximum colour distance.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	b := img1.Bounds()
	if b != img2.Bounds() {
		return false
	}
	if b.Empty() {
		return true
	}
	var total float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)
			total += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
		}
	}
	avg := total / float64(b.Dx()*b.Dy())
	return avg/math.Sqrt(4*65535*65535) <= tolerance
}

// CountPixels counts pixels of img for which keep returns true.
func CountPixels(img image.Image, keep func(color.Color) bool) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if keep(img.At(x, y)) {
				n++
			}
		}
	}
	return n
}

// WriteSampleImages writes a small set of source images in every supported
// format to dir and returns their paths.
func WriteSampleImages(t *testing.T, dir string) []string {
	t.Helper()
	samples := []struct {
		name string
		img  image.Image
	}{
		{"checker.png", Checkerboard(8, 8, 2, color.Black, color.White)},
		{"gradient.jpg", Gradient(12, 6)},
		{"label.gif", Labeled("A", 16, 16)},
		{"solid.bmp", Solid(6, 10, color.NRGBA{R: 200, G: 30, B: 30, A: 255})},
	}
	paths := make([]string, 0, len(samples))
	for _, s := range samples {
		p := filepath.Join(dir, s.name)
		SaveImage(t, s.img, p)
		paths = append(paths, p)
	}
	return paths
}

// Image builds the source image a fixture describes.
func (s SourceSpec) Image() image.Image {
	switch s.Kind {
	case "gradient":
		return Gradient(s.Width, s.Height)
	case "solid":
		return Solid(s.Width, s.Height, color.Black)
	default:
		return Checkerboard(s.Width, s.Height, s.Cell, color.Black, color.White)
	}
}
