package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"mcpizza/internal/logger"
	"mcpizza/internal/mcp"
)

const sessionHeader = "Mcp-Session-Id"

// Handler answers API Gateway proxy events with the same routes as the HTTP
// server. Invocations without a session header get a fresh session.
type Handler struct {
	server *mcp.Server
	logger *logger.Logger
}

func NewHandler(server *mcp.Server, log *logger.Logger) *Handler {
	return &Handler{
		server: server,
		logger: log,
	}
}

// Start hands control to the Lambda runtime. It does not return.
func (h *Handler) Start() {
	awslambda.Start(h.Handle)
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = logger.GenerateRequestID()
	}
	ctx = logger.WithRequestID(ctx, requestID)

	h.logger.Debug("lambda_invoked", req.HTTPMethod+" "+req.Path, requestID, map[string]interface{}{
		"method": req.HTTPMethod,
		"path":   req.Path,
	})

	if req.HTTPMethod == http.MethodOptions {
		return respond(http.StatusOK, nil, ""), nil
	}

	path := strings.TrimSuffix(req.Path, "/")
	switch {
	case path == "/health" && req.HTTPMethod == http.MethodGet:
		info := h.server.Router().Info()
		return respondJSON(http.StatusOK, map[string]interface{}{
			"status":           "healthy",
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
			"service":          info.Name,
			"version":          info.Version,
			"real_api_enabled": info.RealAPIEnabled,
			"fallback_enabled": info.FallbackEnabled,
		}, ""), nil

	case req.HTTPMethod == http.MethodGet && (path == "/mcp" || path == "/mcp-http" || path == "/sse" || path == ""):
		return respondJSON(http.StatusOK, h.server.Router().Info(), ""), nil

	case req.HTTPMethod == http.MethodPost:
		return h.exchange(ctx, req), nil

	default:
		return respondJSON(http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"}, ""), nil
	}
}

func (h *Handler) exchange(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	sessionID := headerValue(req.Headers, sessionHeader)
	if sessionID == "" {
		sessionID = mcp.NewSessionID()
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return respondJSON(http.StatusOK, mcp.ErrorResponse(nil, mcp.CodeParseError, "Parse error: "+err.Error()), sessionID)
		}
		body = decoded
	}

	reply, err := h.server.Exchange(ctx, sessionID, body)
	if err != nil {
		h.logger.Error("exchange_failed", "Failed to handle MCP message", logger.RequestID(ctx), err, map[string]interface{}{
			"session_id": sessionID,
		})
		return respondJSON(http.StatusInternalServerError, mcp.ErrorResponse(nil, mcp.CodeInternalError, err.Error()), sessionID)
	}
	if reply == nil {
		return respond(http.StatusAccepted, nil, sessionID)
	}
	return respond(http.StatusOK, reply, sessionID)
}

// headerValue looks a header up case-insensitively; API Gateway keeps the
// client's casing.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func respondJSON(status int, v interface{}, sessionID string) events.APIGatewayProxyResponse {
	data, err := json.Marshal(v)
	if err != nil {
		return respond(http.StatusInternalServerError, []byte(`{"error":"failed to encode response"}`), sessionID)
	}
	return respond(status, data, sessionID)
}

func respond(status int, body []byte, sessionID string) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":                  "application/json",
		"Access-Control-Allow-Origin":   "*",
		"Access-Control-Allow-Methods":  "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers":  "Content-Type, " + sessionHeader,
		"Access-Control-Expose-Headers": sessionHeader,
	}
	if sessionID != "" {
		headers[sessionHeader] = sessionID
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}
