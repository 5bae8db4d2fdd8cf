package output

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

var mirror = geometry.PhysicalParameters{Radius: 2, Height: 3, Distance: 10, ViewHeight: 5.5}

func TestParamsTag(t *testing.T) {
	defaults := pipeline.DefaultOptions()

	lowram := defaults
	lowram.Mode = raster.ModeLowRAM
	lowram.Interpolation = 5
	lowram.DrawCylinderBase = false

	everything := defaults.WithIgnoreWhite().WithTransparentBackground()
	everything.TargetDPI = 150

	noCylinder := defaults
	noCylinder.DrawCylinderBase = false
	noCylinder.IgnoreColor = color.Black

	tests := []struct {
		name string
		opts pipeline.Options
		want string
	}{
		{"defaults", defaults, "600,2,3,10,5.5 HQ DrwCyl"},
		{"low ram interpolated", lowram, "600,2,3,10,5.5 5n LoRAM"},
		{"all flags", everything, "150,2,3,10,5.5 HQ IgnWht DrwCyl PresTrans"},
		{"non-white ignore colour", noCylinder, "600,2,3,10,5.5 HQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParamsTag(mirror, tt.opts))
		})
	}
}

func TestFileName(t *testing.T) {
	opts := pipeline.DefaultOptions()
	assert.Equal(t, "cat 600,2,3,10,5.5 HQ DrwCyl.png", FileName("/photos/cat.jpg", mirror, opts, FormatPNG))
	assert.Equal(t, "600,2,3,10,5.5 HQ DrwCyl.pdf", FileName("", mirror, opts, FormatPDF))
	assert.Equal(t, "a_b 600,2,3,10,5.5 HQ DrwCyl.png", FileName("a:b.png", mirror, opts, FormatPNG))

	// decomposed e + combining acute becomes the composed form
	assert.Equal(t, "caf\u00e9 600,2,3,10,5.5 HQ DrwCyl.png", FileName("cafe\u0301.png", mirror, opts, FormatPNG))
}
