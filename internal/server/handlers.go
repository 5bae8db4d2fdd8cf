package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// optionsHandler lists the offered choices and the defaults.
func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d := s.defaults
	writeJSON(w, http.StatusOK, OptionsResponse{
		DPIChoices:           pipeline.DPIChoices,
		InterpolationChoices: pipeline.InterpolationChoices,
		Modes:                []string{raster.ModeHQ.String(), raster.ModeLowRAM.String()},
		Formats:              []string{string(output.FormatPNG), string(output.FormatPDF), formatJSON},
		ReportFormats:        pipeline.ReportFormats,
		ResampleFilters:      utils.ResampleFilterNames(),
		Defaults: DefaultsPayload{
			DPI:           d.TargetDPI,
			Interpolation: d.Interpolation,
			Mode:          d.Mode.String(),
			CylinderBase:  d.DrawCylinderBase,
			IgnoreWhite:   d.IgnoresWhite(),
			Transparent:   d.Transparent(),
			MaxCanvasSide: d.MaxCanvasSide,
		},
	})
}

// statsHandler reports cumulative transform timings, the concurrency
// limiter state and process memory.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Transforms: s.profiler.Snapshot(),
		Limiter:    s.limiter.Stats(),
		Memory:     pipeline.GetMemStats(),
	})
}

// errorStatus maps pipeline errors to HTTP status codes and a short type.
func errorStatus(err error) (int, string) {
	var imgErr *utils.ImageProcessingError
	switch {
	case errors.Is(err, geometry.ErrInvalidGeometry):
		return http.StatusBadRequest, "invalid_parameters"
	case errors.Is(err, geometry.ErrGeometryDomain):
		return http.StatusUnprocessableEntity, "geometry_domain"
	case errors.Is(err, geometry.ErrCapacityExceeded):
		return http.StatusRequestEntityTooLarge, "capacity_exceeded"
	case errors.As(err, &imgErr):
		return http.StatusBadRequest, "invalid_image"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError writes a JSON error reply with the status derived from err.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "status", status)
	}
	s.writeErrorResponse(w, err.Error(), kind, status)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, kind string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message, Type: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
