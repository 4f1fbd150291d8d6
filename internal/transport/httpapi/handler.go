package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mcpizza/internal/logger"
	"mcpizza/internal/mcp"
)

const (
	// SessionHeader carries the session id in both directions.
	SessionHeader = "Mcp-Session-Id"

	maxBodyBytes   = 1 << 20
	requestTimeout = 60 * time.Second
)

// Handler serves the MCP endpoints over plain HTTP and SSE
type Handler struct {
	server *mcp.Server
	logger *logger.Logger
}

// NewHandler creates a new MCP HTTP handler
func NewHandler(server *mcp.Server, log *logger.Logger) *Handler {
	return &Handler{
		server: server,
		logger: log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/mcp", h.withLogging(h.withCORS(h.MCP)))
	mux.HandleFunc("/mcp-http", h.withLogging(h.withCORS(h.MCP)))
	mux.HandleFunc("/sse", h.withLogging(h.withCORS(h.SSE)))
	mux.HandleFunc("/health", h.withLogging(h.withCORS(h.HealthCheck)))

	return mux
}

// MCP handles JSON-RPC over POST and answers GET with server info
func (h *Handler) MCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.exchange(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.server.Router().Info())
	default:
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", logger.RequestID(r.Context()))
	}
}

// SSE streams the server announcement on GET and accepts JSON-RPC on POST
func (h *Handler) SSE(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.exchange(w, r)
	case http.MethodGet:
		h.stream(w, r)
	default:
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", logger.RequestID(r.Context()))
	}
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	info := h.server.Router().Info()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"service":          info.Name,
		"version":          info.Version,
		"real_api_enabled": info.RealAPIEnabled,
		"fallback_enabled": info.FallbackEnabled,
	})
}

func (h *Handler) exchange(w http.ResponseWriter, r *http.Request) {
	requestID := logger.RequestID(r.Context())

	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = mcp.NewSessionID()
	}
	w.Header().Set(SessionHeader, sessionID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.logger.Warn("body_read_failed", "Failed to read request body", requestID, map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, status, mcp.ErrorResponse(nil, mcp.CodeParseError, "Parse error: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	reply, err := h.server.Exchange(ctx, sessionID, body)
	if err != nil {
		h.logger.Error("exchange_failed", "Failed to handle MCP message", requestID, err, map[string]interface{}{
			"session_id": sessionID,
		})
		writeJSON(w, http.StatusInternalServerError, mcp.ErrorResponse(nil, mcp.CodeInternalError, err.Error()))
		return
	}
	if reply == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(reply); err != nil {
		h.logger.Error("response_write_failed", "Failed to write response", requestID, err, nil)
	}
}

// stream sends the connection event, server info and tool catalog, then ends.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	requestID := logger.RequestID(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	info := h.server.Router().Info()
	events := []interface{}{
		map[string]string{"type": "connection", "status": "connected"},
		mcp.Notification("server/info", info),
		mcp.Notification("notifications/tools/list", map[string]interface{}{
			"tools": h.server.Router().Tools(),
		}),
	}

	flusher, _ := w.(http.Flusher)
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("sse_encode_failed", "Failed to encode SSE event", requestID, err, nil)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			h.logger.Debug("sse_client_gone", "SSE client disconnected", requestID, nil)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// withCORS allows any origin and answers preflight requests
func (h *Handler) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cache-Control, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
