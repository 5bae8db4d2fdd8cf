package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// maxBatchWorkers bounds the workers of one batch request; the server-wide
// limiter still applies to each image.
const maxBatchWorkers = 4

// BatchTransformRequest transforms several images with one set of
// parameters.
type BatchTransformRequest struct {
	Params          TransformParams     `json:"params"`
	Images          []BatchImageRequest `json:"images"`
	ContinueOnError bool                `json:"continue_on_error,omitempty"`
	// IncludeImages returns the PNGs; otherwise only reports are sent.
	IncludeImages bool `json:"include_images,omitempty"`
}

// BatchImageRequest is a single image of a batch (Data is base64 in JSON).
type BatchImageRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchTransformResponse is the reply of POST /transform/batch.
type BatchTransformResponse struct {
	Success bool                   `json:"success"`
	Results []BatchTransformResult `json:"results"`
	Error   string                 `json:"error,omitempty"`
	Summary pipeline.ParallelStats `json:"summary"`
}

// BatchTransformResult is one entry of a batch reply, in request order.
type BatchTransformResult struct {
	Name     string           `json:"name"`
	Filename string           `json:"filename,omitempty"`
	Success  bool             `json:"success"`
	Report   *pipeline.Report `json:"report,omitempty"`
	Image    []byte           `json:"image,omitempty"`
	Error    string           `json:"error,omitempty"`
	Duration float64          `json:"duration_seconds"`
}

// batchHandler handles POST /transform/batch.
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// base64 inflates the payload by 4/3
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024*4/3+64*1024)

	var req BatchTransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), "invalid_request",
			http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		s.writeErrorResponse(w, "No images provided in batch request", "invalid_request", http.StatusBadRequest)
		return
	}
	p, opts, err := req.Params.resolve(s.defaults)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var mu sync.Mutex
	images := make(map[string][]byte, len(req.Images))
	jobs := make([]pipeline.Job, len(req.Images))
	names := uniqueNames(req.Images)
	for i, item := range req.Images {
		jobs[i] = pipeline.Job{
			Name: names[i],
			Load: func() (image.Image, error) {
				img, _, err := utils.DecodeImage(bytes.NewReader(item.Data), utils.DefaultImageConstraints())
				return img, err
			},
		}
	}

	cfg := pipeline.ParallelConfig{
		MaxWorkers:      min(maxBatchWorkers, len(jobs)),
		ContinueOnError: req.ContinueOnError,
		Sink: func(ctx context.Context, job pipeline.Job, res *pipeline.Result) error {
			s.profiler.Record(&res.Report)
			observeTransform("batch", res, nil)
			if !req.IncludeImages {
				return nil
			}
			var buf bytes.Buffer
			if err := output.EncodePNG(&buf, res.Image, res.Metadata.DPI); err != nil {
				return err
			}
			mu.Lock()
			images[job.Name] = buf.Bytes()
			mu.Unlock()
			return nil
		},
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		s.writeError(w, fmt.Errorf("waiting for a transform slot: %w", err))
		return
	}
	defer s.limiter.Release()

	start := time.Now()
	outcomes, runErr := pipeline.TransformMany(ctx, p, opts, jobs, cfg)
	elapsed := time.Since(start)

	resp := BatchTransformResponse{
		Results: make([]BatchTransformResult, len(outcomes)),
		Summary: pipeline.CalculateParallelStats(outcomes, elapsed, cfg.MaxWorkers),
	}
	resp.Success = runErr == nil && resp.Summary.FailedImages == 0
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	for i, o := range outcomes {
		item := BatchTransformResult{
			Name:     req.Images[i].Name,
			Success:  o.Err == nil,
			Report:   o.Report,
			Duration: o.Duration.Seconds(),
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
			transformRequestsTotal.WithLabelValues("batch", "error").Inc()
		} else {
			item.Filename = output.FileName(req.Images[i].Name, p, opts, output.FormatPNG)
			item.Image = images[o.Name]
		}
		resp.Results[i] = item
	}

	status := http.StatusOK
	if runErr != nil && !req.ContinueOnError {
		status, _ = errorStatus(runErr)
	}
	writeJSON(w, status, resp)
}

// uniqueNames returns the image names with duplicates suffixed so they can
// key the result map.
func uniqueNames(images []BatchImageRequest) []string {
	seen := make(map[string]int, len(images))
	out := make([]string, len(images))
	for i, img := range images {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s#%d", name, n)
		}
		out[i] = name
	}
	return out
}
