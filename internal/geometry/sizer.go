package geometry

import (
	"math"
)

const (
	// MaxNativeRatio is the largest native/target density ratio accepted
	// without resampling the source.
	MaxNativeRatio = 3.0

	// MaxSourcePixels is the largest constraining source dimension accepted
	// without resampling.
	MaxSourcePixels = 2400

	// ResizeBudgetPixels bounds the constraining dimension after a resample.
	ResizeBudgetPixels = 2000
)

// downscaleFactors are tried largest first; 1 is the fallback.
var downscaleFactors = []float64{3, 2.5, 2, 1.5}

// Constraint names the picture-plane dimension that limits the source.
type Constraint int

const (
	ConstrainedByHeight Constraint = iota
	ConstrainedByWidth
)

func (c Constraint) String() string {
	if c == ConstrainedByWidth {
		return "width"
	}
	return "height"
}

// Size is the result of sizing a source image for the picture plane.
type Size struct {
	Width      int
	Height     int
	NativeDPI  float64
	Constraint Constraint
	// Downscale is the factor s the resize budget was computed with; it is 0
	// when the source was left untouched.
	Downscale float64
	Resized   bool
}

// SizeImage decides the pixel dimensions the source is sampled at and the
// native density at which those pixels cover the picture plane.
//
// The source keeps its dimensions unless its native density is more than
// MaxNativeRatio times the target or its constraining side exceeds
// MaxSourcePixels. In that case it is resampled so the constraining side is at
// most ResizeBudgetPixels, picking the largest factor in {3, 2.5, 2, 1.5, 1}
// that fits. This caps the rasterizer's O(W*H*(n+1)) cost.
func SizeImage(width, height int, p PhysicalParameters, targetDPI float64) (Size, error) {
	if width <= 0 || height <= 0 {
		return Size{}, &CapacityError{What: "source image", Width: width, Height: height}
	}
	if err := ValidateDPI(targetDPI); err != nil {
		return Size{}, err
	}
	maxW, maxH, err := p.PicturePlane()
	if err != nil {
		return Size{}, err
	}

	ppAspect := maxW / maxH
	imgAspect := float64(width) / float64(height)

	size := Size{Width: width, Height: height}
	var (
		physical    float64 // constraining picture-plane dimension
		constrained int     // constraining pixel dimension
	)
	if imgAspect > ppAspect {
		size.Constraint = ConstrainedByWidth
		size.NativeDPI = float64(width) / maxW
		physical, constrained = maxW, width
	} else {
		size.Constraint = ConstrainedByHeight
		size.NativeDPI = float64(height) / maxH
		physical, constrained = maxH, height
	}

	if size.NativeDPI/targetDPI <= MaxNativeRatio && constrained <= MaxSourcePixels {
		return size, nil
	}

	s := 1.0
	for _, f := range downscaleFactors {
		if f*physical*targetDPI <= ResizeBudgetPixels {
			s = f
			break
		}
	}
	size.Downscale = s
	size.Resized = true

	budget := s * physical * targetDPI
	if size.Constraint == ConstrainedByWidth {
		size.Width = int(math.Floor(budget))
		size.Height = int(math.Floor(budget / imgAspect))
		size.NativeDPI = float64(size.Width) / maxW
	} else {
		size.Height = int(math.Floor(budget))
		size.Width = int(math.Floor(budget * imgAspect))
		size.NativeDPI = float64(size.Height) / maxH
	}
	if size.Width <= 0 || size.Height <= 0 {
		return Size{}, &CapacityError{What: "resized source", Width: size.Width, Height: size.Height}
	}
	return size, nil
}
