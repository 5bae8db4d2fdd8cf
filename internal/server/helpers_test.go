package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"maps"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

// mirrorFields is the reference mirror r=2 h=3 vx=10 vz=5 as form fields.
var mirrorFields = map[string]string{"r": "2", "h": "3", "vx": "10", "vz": "5"}

func testOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.TargetDPI = 30
	opts.Workers = 2
	return opts
}

func testConfig() Config {
	return Config{
		Host:          "localhost",
		Port:          8080,
		CORSOrigin:    "*",
		MaxUploadMB:   5,
		TimeoutSec:    30,
		MaxConcurrent: 2,
		Defaults:      testOptions(),
		Version:       "test",
	}
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func checkerImage() image.Image {
	return testutil.Checkerboard(4, 4, 1, color.Black, color.White)
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func withFields(extra map[string]string) map[string]string {
	out := maps.Clone(mirrorFields)
	maps.Copy(out, extra)
	return out
}

// newMultipartRequest builds a POST with an optional "image" part and the
// given fields.
func newMultipartRequest(t *testing.T, target string, data []byte, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
