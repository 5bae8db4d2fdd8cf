package utils

import "math"

// SignedArea returns the shoelace area of a closed ring. In image
// coordinates (y down) a clockwise ring on screen has positive area.
func SignedArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	prev := pts[len(pts)-1]
	for _, p := range pts {
		sum += prev.X*p.Y - p.X*prev.Y
		prev = p
	}
	return sum / 2
}

// ReversePoints reverses pts in place.
func ReversePoints(pts []Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// EdgeQuad returns the rectangle of half-width hw around segment a-b. Every
// quad has the same orientation regardless of the segment direction: the
// ring runs along the left offset, then back along the right one.
func EdgeQuad(a, b Point, hw float64, dst []Point) []Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return dst[:0]
	}
	nx, ny := -dy/l*hw, dx/l*hw
	return append(dst[:0],
		Point{X: a.X + nx, Y: a.Y + ny},
		Point{X: b.X + nx, Y: b.Y + ny},
		Point{X: b.X - nx, Y: b.Y - ny},
		Point{X: a.X - nx, Y: a.Y - ny},
	)
}
