package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	res, err := Transform(context.Background(), referenceMirror, smallOptions(), testutil.Gradient(4, 3))
	require.NoError(t, err)
	return &res.Report
}

func TestFormatReport_JSON(t *testing.T) {
	r := sampleReport(t)
	out, err := FormatReport(r, "json")
	require.NoError(t, err)

	var back Report
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	assert.Equal(t, r.Sampled, back.Sampled)
	assert.Equal(t, raster.ModeHQ, back.Mode)
	assert.Equal(t, r.Polygons, back.Polygons)
	assert.Contains(t, out, `"mode": "hq"`)
}

func TestFormatReport_YAML(t *testing.T) {
	r := sampleReport(t)
	out, err := FormatReport(r, "YAML")
	require.NoError(t, err)

	var back Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &back))
	assert.Equal(t, r.Offset, back.Offset)
	assert.Equal(t, r.Canvas.Width, back.Canvas.Width)
	assert.Contains(t, out, "mode: hq")
}

func TestFormatReport_Text(t *testing.T) {
	r := sampleReport(t)
	out, err := FormatReport(r, "")
	require.NoError(t, err)
	assert.Contains(t, out, "mirror:     r=2 h=3 vx=10 vz=5")
	assert.Contains(t, out, "source:     4x3")
	assert.Contains(t, out, "polygons:   12 painted, 0 skipped, 48 vertices")
	assert.Contains(t, out, "cylinder:")
}

func TestFormatReport_Errors(t *testing.T) {
	_, err := FormatReport(nil, "json")
	require.Error(t, err)
	_, err = FormatReport(&Report{}, "xml")
	require.Error(t, err)
}
