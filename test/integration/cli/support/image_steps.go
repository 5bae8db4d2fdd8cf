package support

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

// theSampleImagesAreAvailable writes the scenario's source images:
// checker.png, gradient.jpg, label.gif, nested/solid.bmp, plus a corrupt
// broken.png and a notes.txt that batch discovery must skip.
func (testCtx *TestContext) theSampleImagesAreAvailable() error {
	samples := []struct {
		name string
		img  image.Image
	}{
		{"checker.png", testutil.Checkerboard(8, 8, 2, color.Black, color.White)},
		{"gradient.jpg", testutil.Gradient(12, 6)},
		{"label.gif", testutil.Labeled("A", 16, 16)},
		{"nested/solid.bmp", testutil.Solid(6, 10, color.NRGBA{R: 200, G: 30, B: 30, A: 255})},
	}
	for _, s := range samples {
		path := filepath.Join(testCtx.ImageDir, s.name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := imaging.Save(s.img, path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return testCtx.aCorruptImage()
}

func (testCtx *TestContext) aCorruptImage() error {
	if err := os.MkdirAll(testCtx.ImageDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(testCtx.ImageDir, "broken.png"), []byte("not a png"), 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(testCtx.ImageDir, "notes.txt"), []byte("skip me"), 0o600)
}

// theImagesDirectoryHoldsOnlyValidImages removes the corrupt sample.
func (testCtx *TestContext) theImagesDirectoryHoldsOnlyValidImages() error {
	return os.Remove(filepath.Join(testCtx.ImageDir, "broken.png"))
}

func (testCtx *TestContext) thePNGShouldRecordDPI(name string, dpi float64) error {
	f, err := os.Open(testCtx.Path(testCtx.substituteCommandVariables(name)))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ppm, ok, err := output.ReadPNGDensity(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%s has no pHYs chunk", name)
	}
	if want := output.PixelsPerMetre(dpi); ppm != want {
		return fmt.Errorf("%s records %d px/m, want %d (%g dpi)", name, ppm, want, dpi)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldHaveTransparentPixels(name string) error {
	img, err := imaging.Open(testCtx.Path(testCtx.substituteCommandVariables(name)))
	if err != nil {
		return err
	}
	n := testutil.CountPixels(img, func(c color.Color) bool {
		_, _, _, a := c.RGBA()
		return a == 0
	})
	if n == 0 {
		return fmt.Errorf("%s has no transparent pixels", name)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldBeAPDFWithPages(name string, pages int) error {
	got, err := api.PageCountFile(testCtx.Path(testCtx.substituteCommandVariables(name)))
	if err != nil {
		return fmt.Errorf("%s is not a readable PDF: %w", name, err)
	}
	if got != pages {
		return fmt.Errorf("%s has %d pages, want %d", name, got, pages)
	}
	return nil
}

func (testCtx *TestContext) theDirectoryShouldContainFiles(dir string, count int, ext string) error {
	matches, err := filepath.Glob(filepath.Join(testCtx.Path(dir), "*"+ext))
	if err != nil {
		return err
	}
	if len(matches) != count {
		return fmt.Errorf("%s holds %d %s files, want %d: %v", dir, len(matches), ext, count, matches)
	}
	return nil
}

// RegisterImageSteps registers source image and output file steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the sample images are available$`, testCtx.theSampleImagesAreAvailable)
	sc.Step(`^the images directory holds only valid images$`, testCtx.theImagesDirectoryHoldsOnlyValidImages)
	sc.Step(`^the PNG "([^"]*)" should record (\d+(?:\.\d+)?) dpi$`, testCtx.thePNGShouldRecordDPI)
	sc.Step(`^the image "([^"]*)" should have transparent pixels$`, testCtx.theImageShouldHaveTransparentPixels)
	sc.Step(`^the file "([^"]*)" should be a PDF with (\d+) pages?$`, testCtx.theFileShouldBeAPDFWithPages)
	sc.Step(`^the directory "([^"]*)" should contain (\d+) "([^"]*)" files?$`, testCtx.theDirectoryShouldContainFiles)
}
