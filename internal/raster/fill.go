package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

const (
	// strokeHalfWidth is half of the 1 px seam-hiding outline.
	strokeHalfWidth = 0.5

	// aliasThreshold is the coverage above which a low-RAM pixel is painted.
	aliasThreshold = 0x80
)

// filler paints closed rings onto an RGBA canvas. It owns a single vector
// rasterizer and mask buffer that are reused for every polygon; it is not
// safe for concurrent use.
type filler struct {
	canvas *image.RGBA
	vr     vector.Rasterizer
	mask   image.Alpha
	quad   []utils.Point
	src    image.Uniform
}

func newFiller(canvas *image.RGBA) *filler {
	return &filler{canvas: canvas}
}

// clip returns the canvas rectangle touched by a ring, grown by margin.
func (f *filler) clip(pts []utils.Point, margin float64) image.Rectangle {
	return utils.BoundingBox(pts).Expand(margin).ToRect(f.canvas.Bounds())
}

// begin resets the vector rasterizer to cover rect.
func (f *filler) begin(rect image.Rectangle) {
	f.vr.Reset(rect.Dx(), rect.Dy())
}

// addRing adds a closed ring, translated into rect-local coordinates.
func (f *filler) addRing(rect image.Rectangle, pts []utils.Point) {
	if len(pts) < 3 {
		return
	}
	ox, oy := float64(rect.Min.X), float64(rect.Min.Y)
	f.vr.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		f.vr.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	f.vr.ClosePath()
}

// addStroke adds one quad per ring edge. Quads all share the negative
// orientation of utils.EdgeQuad.
func (f *filler) addStroke(rect image.Rectangle, pts []utils.Point, hw float64) {
	prev := pts[len(pts)-1]
	for _, p := range pts {
		f.quad = utils.EdgeQuad(prev, p, hw, f.quad)
		f.addRing(rect, f.quad)
		prev = p
	}
}

// fillHQ paints the ring anti-aliased together with its outline. The fill
// and the stroke are accumulated in one pass so a translucent colour is
// composited only once.
func (f *filler) fillHQ(pts []utils.Point, c color.Color, stroke bool) {
	margin := 0.0
	if stroke {
		margin = strokeHalfWidth + 1
	}
	rect := f.clip(pts, margin)
	if rect.Empty() {
		return
	}
	// Coverage is the magnitude of the accumulated signed area, so the ring
	// must wind the same way as the stroke quads or overlaps would cancel.
	if stroke && utils.SignedArea(pts) > 0 {
		utils.ReversePoints(pts)
	}

	f.begin(rect)
	f.addRing(rect, pts)
	if stroke {
		f.addStroke(rect, pts, strokeHalfWidth)
	}
	f.src.C = c
	f.vr.DrawOp = draw.Over
	f.vr.Draw(f.canvas, rect, &f.src, image.Point{})
}

// fillAliased paints the ring with hard edges: coverage is rasterized into
// an alpha mask and then thresholded.
func (f *filler) fillAliased(pts []utils.Point, c color.Color) {
	rect := f.clip(pts, 0)
	if rect.Empty() {
		return
	}
	w, h := rect.Dx(), rect.Dy()
	if n := w * h; cap(f.mask.Pix) < n {
		f.mask.Pix = make([]uint8, n)
	} else {
		f.mask.Pix = f.mask.Pix[:n]
	}
	f.mask.Stride = w
	f.mask.Rect = image.Rect(0, 0, w, h)

	f.begin(rect)
	f.addRing(rect, pts)
	f.vr.DrawOp = draw.Src
	f.vr.Draw(&f.mask, f.mask.Rect, image.Opaque, image.Point{})

	for i, a := range f.mask.Pix {
		if a >= aliasThreshold {
			f.mask.Pix[i] = 0xff
		} else {
			f.mask.Pix[i] = 0
		}
	}

	f.src.C = c
	draw.DrawMask(f.canvas, rect, &f.src, image.Point{}, &f.mask, image.Point{}, draw.Over)
}

// strokeCircle paints a ring of the given width centred on the circle.
// The outer boundary winds one way and the inner boundary the other so the
// interior stays empty.
func (f *filler) strokeCircle(cx, cy, radius, width float64, c color.Color) {
	if radius <= 0 || width <= 0 {
		return
	}
	outer := radius + width/2
	inner := math.Max(radius-width/2, 0)

	rect := f.clip([]utils.Point{{X: cx - outer, Y: cy - outer}, {X: cx + outer, Y: cy + outer}}, 1)
	if rect.Empty() {
		return
	}

	f.begin(rect)
	f.addCircle(rect, cx, cy, outer, false)
	if inner > 0 {
		f.addCircle(rect, cx, cy, inner, true)
	}
	f.src.C = c
	f.vr.DrawOp = draw.Over
	f.vr.Draw(f.canvas, rect, &f.src, image.Point{})
}

// kappa places the control points of a cubic that approximates a quarter
// circle; the radial error stays below 0.03% of the radius.
const kappa = 0.5522847498307936

// quarterArcs are the control points and end point of the four quarter
// arcs of a unit circle, starting from (1, 0).
var quarterArcs = [4][6]float64{
	{1, kappa, kappa, 1, 0, 1},
	{-kappa, 1, -1, kappa, -1, 0},
	{-1, -kappa, -kappa, -1, 0, -1},
	{kappa, -1, 1, -kappa, 1, 0},
}

// addCircle adds a closed circle of four cubic arcs, translated into
// rect-local coordinates. reverse mirrors it vertically, which flips the
// winding.
func (f *filler) addCircle(rect image.Rectangle, cx, cy, r float64, reverse bool) {
	cx -= float64(rect.Min.X)
	cy -= float64(rect.Min.Y)
	ry := r
	if reverse {
		ry = -r
	}
	pt := func(ux, uy float64) (float32, float32) {
		return float32(cx + r*ux), float32(cy + ry*uy)
	}

	f.vr.MoveTo(pt(1, 0))
	for _, a := range quarterArcs {
		bx, by := pt(a[0], a[1])
		cx2, cy2 := pt(a[2], a[3])
		ex, ey := pt(a[4], a[5])
		f.vr.CubeTo(bx, by, cx2, cy2, ex, ey)
	}
	f.vr.ClosePath()
}
