package output

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(2, 1, color.RGBA{B: 255, A: 128})
	return img
}

func TestPixelsPerMetre(t *testing.T) {
	tests := []struct {
		dpi  float64
		want uint32
	}{
		{600, 23622},
		{360, 14173},
		{300, 11811},
		{150, 5906},
		{72, 2835},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PixelsPerMetre(tt.dpi), "dpi %g", tt.dpi)
	}
}

func TestEncodePNG_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, sampleImage(), 300))

	decoded, err := png.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err, "pHYs insertion must keep the stream valid")
	assert.Equal(t, image.Rect(0, 0, 3, 2), decoded.Bounds())

	r, _, _, a := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)

	ppm, ok, err := ReadPNGDensity(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(11811), ppm)
}

func TestEncodePNG_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, EncodePNG(&a, sampleImage(), 600))
	require.NoError(t, EncodePNG(&b, sampleImage(), 600))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestEncodePNG_InvalidDPI(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodePNG(&buf, sampleImage(), 0))
	assert.Zero(t, buf.Len())
}

func TestReadPNGDensity_Absent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sampleImage()))
	_, ok, err := ReadPNGDensity(&buf)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ReadPNGDensity(bytes.NewReader([]byte("GIF89a..")))
	assert.Error(t, err)
}
