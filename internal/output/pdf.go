package output

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// WritePDF writes a single-page PDF whose page is the physical print size of
// img at dpi, with the image filling the page.
func WritePDF(w io.Writer, img image.Image, dpi float64) error {
	b := img.Bounds()
	if b.Empty() {
		return errors.New("output: empty image")
	}
	widthIn := float64(b.Dx()) / dpi
	heightIn := float64(b.Dy()) / dpi

	var encoded bytes.Buffer
	if err := EncodePNG(&encoded, img, dpi); err != nil {
		return err
	}

	imp, err := api.Import(
		fmt.Sprintf("dimensions:%.4f %.4f, position:c, scalefactor:1.0 rel", widthIn, heightIn),
		types.INCHES,
	)
	if err != nil {
		return fmt.Errorf("output: pdf page setup: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ImportImages(nil, w, []io.Reader{&encoded}, imp, conf); err != nil {
		return fmt.Errorf("output: pdf: %w", err)
	}
	return nil
}
