// Package geometry implements the picture-plane geometry of a cylindrical
// mirror anamorphosis: parameter validation, source sizing, the sampling grid
// and the closed-form reflection mapping.
//
// Coordinates follow a right-handed Cartesian frame with the cylinder axis on
// z. The source image stands in the yz-plane (the picture plane) and the
// anamorphic image lies on the xy-plane (the table). The viewer sits at
// (vx, 0, vz).
package geometry

import (
	"math"
)

// PhysicalParameters describes the mirror and vantage point. All lengths are
// in the same physical unit (inches throughout this module).
type PhysicalParameters struct {
	Radius     float64 // r: cylinder radius
	Height     float64 // h: cylinder height
	Distance   float64 // vx: viewing distance from the cylinder axis
	ViewHeight float64 // vz: viewing height above the table
}

// Validate checks the invariants the closed-form mapping relies on.
// Checks run in the order a user would fix them: positive lengths, then
// vx > r, then vz > h, then a picture plane of positive height.
func (p PhysicalParameters) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"r", p.Radius},
		{"h", p.Height},
		{"vx", p.Distance},
		{"vz", p.ViewHeight},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ParameterError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
		if f.v <= 0 {
			return &ParameterError{Field: f.name, Value: f.v, Reason: "must be positive"}
		}
	}
	if p.Distance <= p.Radius {
		return &ParameterError{Field: "vx", Value: p.Distance, Reason: "vx must be greater than r"}
	}
	if p.ViewHeight <= p.Height {
		return &ParameterError{Field: "vz", Value: p.ViewHeight, Reason: "vz must be greater than h"}
	}
	if p.Distance*p.Height <= p.ViewHeight*p.Radius {
		return &ParameterError{
			Field:  "vx*h",
			Value:  p.Distance * p.Height,
			Reason: "vx*h must be greater than vz*r, otherwise the picture plane has no height",
		}
	}
	return nil
}

// PicturePlane returns the largest picture-plane width and height that the
// mirror can reflect back to the viewer.
func (p PhysicalParameters) PicturePlane() (maxW, maxH float64, err error) {
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}
	maxW = 2 * p.Radius
	maxH = (p.Distance*p.Height - p.ViewHeight*p.Radius) / (p.Distance - p.Radius)
	return maxW, maxH, nil
}

// ScaledParameters holds the mirror parameters converted to pixel units.
type ScaledParameters struct {
	R  float64
	VX float64
	VZ float64
}

// Scaled converts the parameters into pixel units at the given density.
func (p PhysicalParameters) Scaled(dpi float64) ScaledParameters {
	return ScaledParameters{
		R:  p.Radius * dpi,
		VX: p.Distance * dpi,
		VZ: p.ViewHeight * dpi,
	}
}

// ValidateDPI rejects non-positive or non-finite densities.
func ValidateDPI(dpi float64) error {
	if math.IsNaN(dpi) || math.IsInf(dpi, 0) || dpi <= 0 {
		return &ParameterError{Field: "dpi", Value: dpi, Reason: "must be a positive number"}
	}
	return nil
}

// ValidateInterpolation rejects a negative interpolation count.
func ValidateInterpolation(n int) error {
	if n < 0 {
		return &ParameterError{Field: "interpolation", Value: float64(n), Reason: "must not be negative"}
	}
	return nil
}
