package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/compose"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

var referenceMirror = geometry.PhysicalParameters{Radius: 2, Height: 3, Distance: 10, ViewHeight: 5}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.TargetDPI = 30
	opts.Workers = 2
	return opts
}

func checker2x2() image.Image {
	return testutil.Checkerboard(2, 2, 1, color.Black, color.White)
}

func TestTransform_Fixtures(t *testing.T) {
	for _, name := range []string{"checkerboard_2x2", "gradient_100x50"} {
		t.Run(name, func(t *testing.T) {
			f := testutil.LoadFixture(t, name)
			p := geometry.PhysicalParameters{
				Radius:     f.Geometry.Radius,
				Height:     f.Geometry.Height,
				Distance:   f.Geometry.Distance,
				ViewHeight: f.Geometry.ViewHeight,
			}
			mode, err := raster.ParseMode(f.Render.Mode)
			require.NoError(t, err)

			opts := DefaultOptions()
			opts.TargetDPI = f.Render.DPI
			opts.Interpolation = f.Render.Interpolation
			opts.Mode = mode
			opts.DrawCylinderBase = f.Render.DrawCylinder

			res, err := Transform(context.Background(), p, opts, f.Source.Image())
			require.NoError(t, err)

			r := res.Report
			assert.Equal(t, f.Expected.SampledWidth, r.Sampled.Width)
			assert.Equal(t, f.Expected.SampledHeight, r.Sampled.Height)
			assert.InDelta(t, f.Expected.NativeDPI, r.NativeDPI, 1e-9)
			assert.InDelta(t, f.Expected.MinX, r.Offset.MinX, 1e-12)
			assert.InDelta(t, f.Expected.MinY, r.Offset.MinY, 1e-12)
			assert.Equal(t, f.Expected.Polygons, r.Polygons.Emitted)
			assert.Equal(t, f.Expected.Polygons*f.Expected.VertexCount, r.Polygons.Vertices)

			assert.Equal(t, res.Image.Bounds().Dx(), res.Metadata.Width)
			assert.Equal(t, res.Image.Bounds().Dy(), res.Metadata.Height)
			assert.InDelta(t, f.Render.DPI, res.Metadata.DPI, 0)
		})
	}
}

func TestTransform_GoldenCheckerboardCanvas(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetDPI = 150

	res, err := Transform(context.Background(), referenceMirror, opts, checker2x2())
	require.NoError(t, err)

	b := res.Image.Bounds()
	assert.InDelta(t, 3689, b.Dx(), 1)
	assert.InDelta(t, 2475, b.Dy(), 1)
	require.NotNil(t, res.Report.Cylinder)
	assert.InDelta(t, 1875, res.Report.Cylinder.CX, 1e-9)
	assert.InDelta(t, 375, res.Report.Cylinder.CY, 1e-9)
	assert.InDelta(t, 300, res.Report.Cylinder.Radius, 1e-9)
	assert.Equal(t, "height", res.Report.Constraint)
	assert.False(t, res.Report.Resized)
}

func TestTransform_Deterministic(t *testing.T) {
	src := testutil.Gradient(12, 8)
	for _, mode := range []raster.Mode{raster.ModeHQ, raster.ModeLowRAM} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := smallOptions()
			opts.Mode = mode
			opts.Interpolation = 3

			a, err := Transform(context.Background(), referenceMirror, opts, src)
			require.NoError(t, err)
			opts.Workers = 7
			b, err := Transform(context.Background(), referenceMirror, opts, src)
			require.NoError(t, err)

			require.Equal(t, a.Image.Rect, b.Image.Rect)
			assert.True(t, a.Image.Rect.Dx() > 0)
			assert.Equal(t, a.Image.Pix, b.Image.Pix)
		})
	}
}

func TestTransform_DoesNotModifySource(t *testing.T) {
	src := testutil.Gradient(6, 4)
	before := append([]uint8(nil), src.Pix...)

	_, err := Transform(context.Background(), referenceMirror, smallOptions(), src)
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}

func TestTransform_InterpolationAddsVertices(t *testing.T) {
	src := testutil.Gradient(4, 4)
	var prev int
	for _, n := range InterpolationChoices[:4] {
		opts := smallOptions()
		opts.Interpolation = n
		res, err := Transform(context.Background(), referenceMirror, opts, src)
		require.NoError(t, err)

		assert.Equal(t, 16, res.Report.Polygons.Emitted)
		assert.Equal(t, 16*raster.VertexCount(n), res.Report.Polygons.Vertices)
		assert.Greater(t, res.Report.Polygons.Vertices, prev)
		prev = res.Report.Polygons.Vertices
	}
}

func TestTransform_IgnoreWhite(t *testing.T) {
	opts := smallOptions().WithIgnoreWhite()
	opts.DrawCylinderBase = false

	res, err := Transform(context.Background(), referenceMirror, opts, testutil.Solid(5, 5, color.White))
	require.NoError(t, err)
	assert.Zero(t, res.Report.Polygons.Emitted)
	assert.Equal(t, 25, res.Report.Polygons.Skipped)
	assert.True(t, res.Report.IgnoreWhite)

	nonWhite := testutil.CountPixels(res.Image, func(c color.Color) bool {
		return c != color.RGBA{R: 255, G: 255, B: 255, A: 255}
	})
	assert.Zero(t, nonWhite, "canvas must stay background only")
}

func TestTransform_TransparentBackground(t *testing.T) {
	opts := smallOptions().WithTransparentBackground()
	src := testutil.WithTransparentBorder(testutil.Solid(4, 4, color.Black), 1)

	res, err := Transform(context.Background(), referenceMirror, opts, src)
	require.NoError(t, err)
	assert.True(t, res.Report.Transparent)
	assert.Equal(t, 20, res.Report.Polygons.Skipped)
	assert.Equal(t, 16, res.Report.Polygons.Emitted)

	clear := testutil.CountPixels(res.Image, func(c color.Color) bool {
		_, _, _, a := c.RGBA()
		return a == 0
	})
	assert.Positive(t, clear)
}

func TestTransform_CylinderBaseDrawn(t *testing.T) {
	opts := smallOptions()
	opts.IgnoreColor = color.White

	res, err := Transform(context.Background(), referenceMirror, opts, testutil.Solid(3, 3, color.White))
	require.NoError(t, err)
	require.NotNil(t, res.Report.Cylinder)

	c := res.Report.Cylinder
	x := int(c.CX + c.Radius)
	y := int(c.CY)
	r, g, b, _ := res.Image.At(x, y).RGBA()
	assert.Less(t, r+g+b, uint32(3*0xffff), "outline darkens the rightmost point of the circle")

	opts.DrawCylinderBase = false
	res, err = Transform(context.Background(), referenceMirror, opts, testutil.Solid(3, 3, color.White))
	require.NoError(t, err)
	assert.Nil(t, res.Report.Cylinder)
}

// darkPixels counts canvas pixels whose red channel is below half intensity.
func darkPixels(img *image.RGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] < 0x80 {
			n++
		}
	}
	return n
}

func TestTransform_WithoutCylinderBaseKeepsWholeDrawing(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetDPI = 150
	src := testutil.Solid(2, 2, color.Black)

	withBase, err := Transform(context.Background(), referenceMirror, opts, src)
	require.NoError(t, err)
	assert.False(t, withBase.Report.OffsetExtended)

	opts.DrawCylinderBase = false
	res, err := Transform(context.Background(), referenceMirror, opts, src)
	require.NoError(t, err)

	// The top-left corner maps to x = 4.67 but the bottom row reaches 1.85.
	assert.True(t, res.Report.OffsetExtended)
	assert.Equal(t, compose.Offset{MinX: 1, MinY: -10}, res.Report.Offset)
	assert.Equal(t, res.Image.Bounds().Dx(), withBase.Image.Bounds().Dx())

	// Same drawing on both canvases; only the thin outline of the base and
	// anti-aliased edges differ.
	assert.InEpsilon(t, darkPixels(withBase.Image), darkPixels(res.Image), 0.01)
}

func TestTransform_Resamples(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetDPI = 5

	res, err := Transform(context.Background(), referenceMirror, opts, testutil.Gradient(100, 50))
	require.NoError(t, err)
	r := res.Report
	assert.True(t, r.Resized)
	assert.InDelta(t, 3, r.Downscale, 0)
	assert.Equal(t, Dimensions{Width: 60, Height: 30}, r.Sampled)
	assert.InDelta(t, 15, r.NativeDPI, 1e-12)
	assert.Equal(t, 60*30, r.Polygons.Emitted)
}

func TestTransform_Errors(t *testing.T) {
	ctx := context.Background()
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	badMirror := referenceMirror
	badMirror.Distance = 1

	badDPI := smallOptions()
	badDPI.TargetDPI = 0

	tinyCanvas := smallOptions()
	tinyCanvas.MaxCanvasSide = 50

	badFilter := smallOptions()
	badFilter.Resample = "sharpest"

	tests := []struct {
		name   string
		ctx    context.Context
		p      geometry.PhysicalParameters
		opts   Options
		src    image.Image
		target error
	}{
		{"vx not beyond r", ctx, badMirror, smallOptions(), checker2x2(), geometry.ErrInvalidGeometry},
		{"zero dpi", ctx, referenceMirror, badDPI, checker2x2(), geometry.ErrInvalidGeometry},
		{"unknown filter", ctx, referenceMirror, badFilter, checker2x2(), geometry.ErrInvalidGeometry},
		{"canvas ceiling", ctx, referenceMirror, tinyCanvas, checker2x2(), geometry.ErrCapacityExceeded},
		{"empty source", ctx, referenceMirror, smallOptions(), image.NewRGBA(image.Rect(0, 0, 0, 3)), geometry.ErrCapacityExceeded},
		{"cancelled", cancelled, referenceMirror, smallOptions(), checker2x2(), context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Transform(tt.ctx, tt.p, tt.opts, tt.src)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	_, err := Transform(ctx, referenceMirror, smallOptions(), nil)
	require.Error(t, err)
}

type recordingProgress struct {
	mu        sync.Mutex
	total     int
	updates   [][2]int
	completed bool
	errs      []error
}

func (r *recordingProgress) OnStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingProgress) OnProgress(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, [2]int{current, total})
}

func (r *recordingProgress) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
}

func (r *recordingProgress) OnError(_ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func TestTransform_ReportsRowProgress(t *testing.T) {
	rec := &recordingProgress{}
	opts := smallOptions()
	opts.Progress = rec

	_, err := Transform(context.Background(), referenceMirror, opts, testutil.Gradient(5, 7))
	require.NoError(t, err)

	assert.Equal(t, 7, rec.total)
	require.Len(t, rec.updates, 7)
	assert.Equal(t, [2]int{1, 7}, rec.updates[0])
	assert.Equal(t, [2]int{7, 7}, rec.updates[6])
	assert.True(t, rec.completed)
	assert.Empty(t, rec.errs)
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	mutate := []func(*Options){
		func(o *Options) { o.TargetDPI = -1 },
		func(o *Options) { o.Interpolation = -1 },
		func(o *Options) { o.Mode = raster.Mode(9) },
		func(o *Options) { o.Workers = -2 },
		func(o *Options) { o.MaxCanvasSide = -1 },
		func(o *Options) { o.Resample = "nope" },
	}
	for i, m := range mutate {
		o := DefaultOptions()
		m(&o)
		err := o.Validate()
		assert.ErrorIs(t, err, geometry.ErrInvalidGeometry, "case %d", i)
	}
}

func TestOptions_Helpers(t *testing.T) {
	o := DefaultOptions()
	assert.False(t, o.IgnoresWhite())
	assert.False(t, o.Transparent())
	assert.True(t, o.WithIgnoreWhite().IgnoresWhite())
	assert.True(t, o.WithTransparentBackground().Transparent())
	assert.Equal(t, NoOpProgressCallback{}, o.progress())
}
