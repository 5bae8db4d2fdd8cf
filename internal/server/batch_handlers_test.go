package server

import (
	"bytes"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

func postBatch(t *testing.T, s *Server, req BatchTransformRequest) (*httptest.ResponseRecorder, BatchTransformResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	s.batchHandler(w, httptest.NewRequest(http.MethodPost, "/transform/batch", bytes.NewReader(body)))

	var resp BatchTransformResponse
	if w.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestBatchHandler(t *testing.T) {
	s := newTestServer(t, nil)
	w, resp := postBatch(t, s, BatchTransformRequest{
		Params: mirrorParams(),
		Images: []BatchImageRequest{
			{Name: "a.png", Data: pngBytes(t, checkerImage())},
			{Name: "b.png", Data: pngBytes(t, testutil.Solid(3, 2, color.Black))},
		},
		IncludeImages: true,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a.png", resp.Results[0].Name)
	assert.Equal(t, "a 30,2,3,10,5 HQ DrwCyl.png", resp.Results[0].Filename)
	assert.Equal(t, 16, resp.Results[0].Report.Polygons.Emitted)
	assert.Equal(t, 6, resp.Results[1].Report.Polygons.Emitted)
	for _, r := range resp.Results {
		assert.True(t, r.Success)
		assert.NotEmpty(t, r.Image)
	}
	assert.Equal(t, 2, resp.Summary.TotalImages)
	assert.Equal(t, 2, resp.Summary.ProcessedImages)
}

func TestBatchHandler_ReportsOnlyByDefault(t *testing.T) {
	s := newTestServer(t, nil)
	w, resp := postBatch(t, s, BatchTransformRequest{
		Params: mirrorParams(),
		Images: []BatchImageRequest{{Name: "a.png", Data: pngBytes(t, checkerImage())}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Results, 1)
	assert.NotNil(t, resp.Results[0].Report)
	assert.Empty(t, resp.Results[0].Image)
}

func TestBatchHandler_ContinueOnError(t *testing.T) {
	s := newTestServer(t, nil)
	w, resp := postBatch(t, s, BatchTransformRequest{
		Params: mirrorParams(),
		Images: []BatchImageRequest{
			{Name: "same.png", Data: pngBytes(t, checkerImage())},
			{Name: "same.png", Data: []byte("broken")},
			{Name: "c.png", Data: pngBytes(t, checkerImage())},
		},
		ContinueOnError: true,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Success)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.NotEmpty(t, resp.Results[1].Error)
	assert.True(t, resp.Results[2].Success)
	assert.Equal(t, 2, resp.Summary.ProcessedImages)
	assert.Equal(t, 1, resp.Summary.FailedImages)
}

func TestBatchHandler_StopsOnError(t *testing.T) {
	s := newTestServer(t, nil)
	w, resp := postBatch(t, s, BatchTransformRequest{
		Params: mirrorParams(),
		Images: []BatchImageRequest{{Name: "bad.png", Data: []byte("broken")}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "bad.png")
}

func TestBatchHandler_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	s.batchHandler(w, httptest.NewRequest(http.MethodGet, "/transform/batch", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	s.batchHandler(w, httptest.NewRequest(http.MethodPost, "/transform/batch", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = postBatch(t, s, BatchTransformRequest{Params: mirrorParams()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	p := mirrorParams()
	p.Distance = 1
	w, _ = postBatch(t, s, BatchTransformRequest{
		Params: p,
		Images: []BatchImageRequest{{Name: "a.png", Data: pngBytes(t, checkerImage())}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUniqueNames(t *testing.T) {
	got := uniqueNames([]BatchImageRequest{{Name: "a"}, {Name: "a"}, {}, {Name: "b"}, {Name: "a"}})
	assert.Equal(t, []string{"a", "a#2", "image-3", "b", "a#3"}, got)
}
