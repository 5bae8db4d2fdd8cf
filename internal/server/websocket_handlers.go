package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

const (
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsProgressPeriod = 100 * time.Millisecond
)

// WebSocketTransformRequest is one transform request sent by the client.
// Image carries the encoded source file (base64 in JSON).
type WebSocketTransformRequest struct {
	Type     string          `json:"type"` // "transform"
	Filename string          `json:"filename,omitempty"`
	Image    []byte          `json:"image"`
	Params   TransformParams `json:"params"`
}

// WebSocketTransformResponse is a progress, result or error message.
type WebSocketTransformResponse struct {
	Type        string           `json:"type"`   // "transform_response" or "error"
	Status      string           `json:"status"` // "processing", "completed", "error"
	Progress    float64          `json:"progress,omitempty"`
	Rows        int              `json:"rows,omitempty"`
	TotalRows   int              `json:"total_rows,omitempty"`
	Filename    string           `json:"filename,omitempty"`
	ContentType string           `json:"content_type,omitempty"`
	Report      *pipeline.Report `json:"report,omitempty"`
	Image       []byte           `json:"image,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorType   string           `json:"error_type,omitempty"`
	RequestID   string           `json:"request_id,omitempty"`
}

// WebSocketConnWriter is the part of a websocket connection the handlers
// write to.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return s.corsOrigin == "*" || origin == "" || origin == s.corsOrigin
		},
	}
}

// transformWebSocketHandler serves GET /ws/transform.
func (s *Server) transformWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection reads requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	// base64 inflates the upload by 4/3
	conn.SetReadLimit(s.maxUploadMB*1024*1024*4/3 + 64*1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
			// a long transform must not trip the read deadline
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		}
	}
}

// handleWebSocketMessage runs one transform request and streams its row
// progress followed by the result.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketTransformRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.Type != "" && req.Type != "transform" {
		s.sendWebSocketError(conn, "", "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	format, err := req.Params.responseFormat()
	if err != nil {
		_, kind := errorStatus(err)
		s.sendWebSocketError(conn, requestID, kind, err.Error())
		return
	}
	p, opts, err := req.Params.resolve(s.defaults)
	if err != nil {
		_, kind := errorStatus(err)
		s.sendWebSocketError(conn, requestID, kind, err.Error())
		return
	}
	src, _, err := utils.DecodeImage(bytes.NewReader(req.Image), utils.DefaultImageConstraints())
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_image", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketTransformResponse{
		Type:      "transform_response",
		Status:    "processing",
		RequestID: requestID,
	})

	opts.Progress = pipeline.NewThrottledProgressCallback(
		pipeline.FuncProgressCallback(func(current, total int) {
			s.sendWebSocketResponse(conn, WebSocketTransformResponse{
				Type:      "transform_response",
				Status:    "processing",
				Progress:  float64(current) / float64(max(total, 1)),
				Rows:      current,
				TotalRows: total,
				RequestID: requestID,
			})
		}),
		wsProgressPeriod,
	)

	res, err := s.runTransform(ctx, "websocket", p, opts, src)
	if err != nil {
		_, kind := errorStatus(err)
		s.sendWebSocketError(conn, requestID, kind, err.Error())
		return
	}

	outFormat := output.FormatPNG
	contentType := "image/png"
	var buf bytes.Buffer
	if format == string(output.FormatPDF) {
		outFormat = output.FormatPDF
		contentType = "application/pdf"
		err = output.WritePDF(&buf, res.Image, res.Metadata.DPI)
	} else {
		err = output.EncodePNG(&buf, res.Image, res.Metadata.DPI)
	}
	if err != nil {
		s.sendWebSocketError(conn, requestID, "internal_error", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketTransformResponse{
		Type:        "transform_response",
		Status:      "completed",
		Progress:    1,
		Filename:    output.FileName(req.Filename, p, opts, outFormat),
		ContentType: contentType,
		Report:      &res.Report,
		Image:       buf.Bytes(),
		RequestID:   requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketTransformResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketTransformResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
