package geometry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned when the physical parameters cannot describe
	// a visible picture plane (vx <= r, vz <= h or vx*h <= vz*r) or when a render
	// setting is out of range.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrGeometryDomain is returned when a sampled picture-plane point has no
	// valid reflection in the mirror.
	ErrGeometryDomain = errors.New("geometry domain error")

	// ErrCapacityExceeded is returned when a resized source or the output canvas
	// would exceed the configured raster ceiling.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// ParameterError describes a rejected input parameter.
type ParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid geometry: %s=%g: %s", e.Field, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidGeometry }

// DomainError reports the picture-plane point (in pixel units) that could not
// be mapped.
type DomainError struct {
	Py     float64
	Pz     float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("geometry domain error at (y=%g, z=%g): %s", e.Py, e.Pz, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrGeometryDomain }

// CapacityError reports a raster that would be too large (or degenerate).
type CapacityError struct {
	What   string
	Width  int
	Height int
	Limit  int
}

func (e *CapacityError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("capacity exceeded: %s %dx%d exceeds limit %d", e.What, e.Width, e.Height, e.Limit)
	}
	return fmt.Sprintf("capacity exceeded: %s %dx%d is degenerate", e.What, e.Width, e.Height)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }
