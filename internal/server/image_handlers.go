package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// transformHandler handles POST /transform: a multipart form with an
// "image" file and the mirror parameters as fields.
func (s *Server) transformHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeErrorResponse(w, "File too large", "upload_too_large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, "Failed to parse form data", "invalid_request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", "invalid_request", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	tp, err := paramsFromForm(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	format, err := tp.responseFormat()
	if err != nil {
		s.writeError(w, err)
		return
	}
	p, opts, err := tp.resolve(s.defaults)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", "invalid_request", http.StatusBadRequest)
		return
	}
	src, _, err := utils.DecodeImage(bytes.NewReader(data), utils.DefaultImageConstraints())
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.runTransform(r.Context(), "http", p, opts, src)
	if err != nil {
		s.writeError(w, err)
		return
	}

	outFormat := output.FormatPNG
	if format == string(output.FormatPDF) {
		outFormat = output.FormatPDF
	}
	name := output.FileName(header.Filename, p, opts, outFormat)

	switch format {
	case formatJSON:
		var buf bytes.Buffer
		if err := output.EncodePNG(&buf, res.Image, res.Metadata.DPI); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TransformResponse{
			Success:  true,
			Filename: name,
			Report:   &res.Report,
			Image:    buf.Bytes(),
		})
	case string(output.FormatPDF):
		s.writePDFResponse(w, res, name)
	default:
		s.writePNGResponse(w, res, name)
	}
}

// runTransform runs one transform under the concurrency limiter and the
// request timeout, and records it in the profiler and the metrics.
func (s *Server) runTransform(
	ctx context.Context, source string, p geometry.PhysicalParameters, opts pipeline.Options, src image.Image,
) (*pipeline.Result, error) {
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("waiting for a transform slot: %w", err)
	}
	defer s.limiter.Release()

	transformsInFlight.Inc()
	defer transformsInFlight.Dec()

	if opts.Progress == nil {
		opts.Progress = pipeline.NewLogProgressCallback(
			slog.Default().With("source", source), slog.LevelDebug, "rendering rows")
	}

	res, err := s.transform(ctx, p, opts, src)
	observeTransform(source, res, err)
	if err != nil {
		return nil, err
	}
	s.profiler.Record(&res.Report)
	slog.Info("Transform completed",
		"source", source,
		"canvas", fmt.Sprintf("%dx%d", res.Metadata.Width, res.Metadata.Height),
		"polygons", res.Report.Polygons.Emitted,
		"duration", time.Duration(res.Report.Timings.TotalNs),
	)
	return res, nil
}

// writePNGResponse streams the canvas as a PNG carrying its print density.
func (s *Server) writePNGResponse(w http.ResponseWriter, res *pipeline.Result, filename string) {
	var buf bytes.Buffer
	if err := output.EncodePNG(&buf, res.Image, res.Metadata.DPI); err != nil {
		s.writeError(w, err)
		return
	}
	setResultHeaders(w, res, filename)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Failed to write PNG response", "error", err)
	}
}

func setResultHeaders(w http.ResponseWriter, res *pipeline.Result, filename string) {
	h := w.Header()
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(filename, `"`, "'")))
	h.Set("X-Anamorph-DPI", strconv.FormatFloat(res.Metadata.DPI, 'f', -1, 64))
	h.Set("X-Anamorph-Native-DPI", strconv.FormatFloat(res.Report.NativeDPI, 'f', 4, 64))
	h.Set("X-Anamorph-Polygons", strconv.Itoa(res.Report.Polygons.Emitted))
}
