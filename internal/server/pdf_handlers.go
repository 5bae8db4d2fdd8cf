package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

// writePDFResponse sends the canvas as a one-page PDF sized to print at
// the target density.
func (s *Server) writePDFResponse(w http.ResponseWriter, res *pipeline.Result, filename string) {
	var buf bytes.Buffer
	if err := output.WritePDF(&buf, res.Image, res.Metadata.DPI); err != nil {
		s.writeError(w, err)
		return
	}
	setResultHeaders(w, res, filename)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Failed to write PDF response", "error", err)
	}
}
