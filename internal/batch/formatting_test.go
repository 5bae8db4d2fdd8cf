package batch

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/compose"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

func sampleResult() *Result {
	report := &pipeline.Report{
		TargetDPI: 30,
		Canvas:    compose.Metadata{DPI: 30, Width: 1200, Height: 640},
		Polygons:  raster.Stats{Emitted: 1500, Skipped: 4, Vertices: 15040},
	}
	return &Result{
		Images: []ImageResult{
			{Source: "in/a.png", Output: "out/a 30,2,3,10,5 HQ DrwCyl.png", Report: report, Duration: 20 * time.Millisecond},
			{Source: "in/b.png", Error: "failed to load in/b.png: bad data", Duration: time.Millisecond},
		},
		Outcomes: []pipeline.Outcome{
			{Index: 0, Name: "in/a.png", Report: report},
			{Index: 1, Name: "in/b.png", Err: errors.New("bad data")},
		},
		Duration:    time.Second,
		WorkerCount: 2,
	}
}

func TestFormatText(t *testing.T) {
	out, err := sampleResult().FormatResults(FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "# in/a.png\n  output: out/a 30,2,3,10,5 HQ DrwCyl.png\n")
	assert.Contains(t, out, "canvas: 1,200x640 px at 30 dpi, 1,500 polygons")
	assert.Contains(t, out, "# in/b.png\n  error: failed to load in/b.png: bad data\n")
	assert.Contains(t, out, "Failed: 1")
}

func TestFormatJSON(t *testing.T) {
	out, err := sampleResult().FormatResults("JSON")
	require.NoError(t, err)

	var decoded struct {
		Images []struct {
			Source string `json:"source"`
			Output string `json:"output"`
			Error  string `json:"error"`
			Report *struct {
				Polygons struct {
					Emitted int `json:"emitted"`
				} `json:"polygons"`
			} `json:"report"`
		} `json:"images"`
		Stats struct {
			TotalImages  int `json:"total_images"`
			FailedImages int `json:"failed_images"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Images, 2)
	assert.Equal(t, 1500, decoded.Images[0].Report.Polygons.Emitted)
	assert.Nil(t, decoded.Images[1].Report)
	assert.NotEmpty(t, decoded.Images[1].Error)
	assert.Equal(t, 2, decoded.Stats.TotalImages)
	assert.Equal(t, 1, decoded.Stats.FailedImages)
}

func TestFormatYAML(t *testing.T) {
	out, err := sampleResult().FormatResults(FormatYAML)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "images")
	assert.Contains(t, decoded, "stats")
	assert.Contains(t, out, "source: in/a.png")
}

func TestFormatCSV(t *testing.T) {
	out, err := sampleResult().FormatResults(FormatCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "source,output,status,width,height,dpi,polygons"))
	assert.Equal(t, "in/a.png,"+"out/a 30,2,3,10,5 HQ DrwCyl.png"+",ok,1200,640,30,1500,4,20,",
		strings.Replace(lines[1], `"out/a 30,2,3,10,5 HQ DrwCyl.png"`, "out/a 30,2,3,10,5 HQ DrwCyl.png", 1))
	assert.Contains(t, lines[2], "in/b.png,,failed,")
}

func TestFormatUnknown(t *testing.T) {
	_, err := sampleResult().FormatResults("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown summary format")
}
