package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TransformFixture is a golden transform case stored as JSON under
// testdata/fixtures.
type TransformFixture struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Source      SourceSpec      `json:"source"`
	Geometry    GeometrySpec    `json:"geometry"`
	Render      RenderSpec      `json:"render"`
	Expected    ExpectedOutcome `json:"expected"`
}

// SourceSpec describes a generated source image.
type SourceSpec struct {
	Kind   string `json:"kind"` // checkerboard, solid, gradient
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cell   int    `json:"cell,omitempty"`
}

// GeometrySpec holds mirror parameters in inches.
type GeometrySpec struct {
	Radius     float64 `json:"r"`
	Height     float64 `json:"h"`
	Distance   float64 `json:"vx"`
	ViewHeight float64 `json:"vz"`
}

// RenderSpec holds the render settings of a fixture.
type RenderSpec struct {
	DPI           float64 `json:"dpi"`
	Interpolation int     `json:"n"`
	Mode          string  `json:"mode"`
	DrawCylinder  bool    `json:"draw_cylinder"`
}

// ExpectedOutcome holds the values the transform must reproduce.
type ExpectedOutcome struct {
	SampledWidth  int     `json:"sampled_width"`
	SampledHeight int     `json:"sampled_height"`
	NativeDPI     float64 `json:"native_dpi"`
	MinX          float64 `json:"min_x"`
	MinY          float64 `json:"min_y"`
	Polygons      int     `json:"polygons"`
	VertexCount   int     `json:"vertex_count"`
}

// LoadFixture loads testdata/fixtures/<name>.json.
func LoadFixture(t *testing.T, name string) TransformFixture {
	t.Helper()
	path := filepath.Join(GetFixturesDir(t), name+".json")
	data, err := os.ReadFile(path) //nolint:gosec // G304: fixture path under testdata
	require.NoError(t, err, "Failed to read fixture file: %s", path)

	var f TransformFixture
	require.NoError(t, json.Unmarshal(data, &f), "Failed to unmarshal fixture JSON")
	ValidateFixture(t, f)
	return f
}

// ValidateFixture checks a fixture is complete enough to run.
func ValidateFixture(t *testing.T, f TransformFixture) {
	t.Helper()
	require.NotEmpty(t, f.Name, "fixture name")
	require.Positive(t, f.Source.Width, "source width")
	require.Positive(t, f.Source.Height, "source height")
	require.Positive(t, f.Render.DPI, "render dpi")
}
