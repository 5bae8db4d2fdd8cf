package pipeline

import (
	"image"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/compose"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

// Result is the outcome of one Transform call.
type Result struct {
	Image    *image.RGBA
	Metadata compose.Metadata
	Report   Report
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Parameters echoes the physical inputs in inches.
type Parameters struct {
	Radius     float64 `json:"r" yaml:"r"`
	Height     float64 `json:"h" yaml:"h"`
	Distance   float64 `json:"vx" yaml:"vx"`
	ViewHeight float64 `json:"vz" yaml:"vz"`
}

// Timings holds per-stage wall time.
type Timings struct {
	SizingNs    int64 `json:"sizing_ns" yaml:"sizing_ns"`
	ResampleNs  int64 `json:"resample_ns" yaml:"resample_ns"`
	MappingNs   int64 `json:"mapping_ns" yaml:"mapping_ns"`
	ComposeNs   int64 `json:"compose_ns" yaml:"compose_ns"`
	RenderingNs int64 `json:"rendering_ns" yaml:"rendering_ns"`
	TotalNs     int64 `json:"total_ns" yaml:"total_ns"`
}

// Report describes how a transform was carried out.
type Report struct {
	Parameters     Parameters       `json:"parameters" yaml:"parameters"`
	Source         Dimensions       `json:"source" yaml:"source"`
	Sampled        Dimensions       `json:"sampled" yaml:"sampled"`
	Resized        bool             `json:"resized" yaml:"resized"`
	Downscale      float64          `json:"downscale,omitempty" yaml:"downscale,omitempty"`
	Constraint     string           `json:"constraint" yaml:"constraint"`
	NativeDPI      float64          `json:"native_dpi" yaml:"native_dpi"`
	TargetDPI      float64          `json:"target_dpi" yaml:"target_dpi"`
	Scale          float64          `json:"scale" yaml:"scale"`
	Interpolation  int              `json:"interpolation" yaml:"interpolation"`
	Mode           raster.Mode      `json:"mode" yaml:"mode"`
	IgnoreWhite    bool             `json:"ignore_white" yaml:"ignore_white"`
	Transparent    bool             `json:"transparent" yaml:"transparent"`
	GridPoints     int              `json:"grid_points" yaml:"grid_points"`
	Offset         compose.Offset   `json:"offset" yaml:"offset"`
	// OffsetExtended is set when parts of the grid lay beyond the top-row
	// offset and the canvas origin was moved to include them.
	OffsetExtended bool             `json:"offset_extended" yaml:"offset_extended"`
	Cylinder       *compose.Circle  `json:"cylinder,omitempty" yaml:"cylinder,omitempty"`
	Canvas         compose.Metadata `json:"canvas" yaml:"canvas"`
	Polygons       raster.Stats     `json:"polygons" yaml:"polygons"`
	Timings        Timings          `json:"timings" yaml:"timings"`
}

func parametersOf(p geometry.PhysicalParameters) Parameters {
	return Parameters{Radius: p.Radius, Height: p.Height, Distance: p.Distance, ViewHeight: p.ViewHeight}
}
