package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpizza/internal/config"
	"mcpizza/internal/logger"
	"mcpizza/internal/mcp"
	"mcpizza/internal/services/order"
)

func newTestHandler() (*Handler, *order.MemoryStore) {
	log := logger.Discard()
	svc := order.NewService(config.PizzaConfig{FallbackMock: true}, nil, nil, log)
	store := order.NewMemoryStore()
	return NewHandler(mcp.NewServer(mcp.NewRouter(svc, mcp.Options{Version: "test"}, log), store, log), log), store
}

func TestHandlePost(t *testing.T) {
	h, store := newTestHandler()
	add := `{"jsonrpc":"2.0","id":"a1","method":"tools/call","params":{"name":"add_to_order","arguments":{"item_code":"HOT_WINGS","quantity":3}}}`

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/mcp",
		Headers:    map[string]string{"mcp-session-id": "lambda-1"},
		Body:       add,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "lambda-1", resp.Headers[sessionHeader])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	var reply struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &reply))
	assert.Equal(t, "a1", reply.ID)
	assert.Contains(t, string(reply.Result), "Added 3x HOT_WINGS to order")

	sess, err := store.Get(context.Background(), "lambda-1")
	require.NoError(t, err)
	assert.Len(t, sess.Items, 1)
}

func TestHandleFreshSession(t *testing.T) {
	h, _ := newTestHandler()
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/mcp-http",
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"jsonrpc":"2.0","id":1,"method":"bogus"}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Headers[sessionHeader])
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found: bogus"}}`, resp.Body)
}

func TestHandleRoutes(t *testing.T) {
	h, _ := newTestHandler()

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, `"status":"healthy"`},
		{"server info", http.MethodGet, "/mcp", http.StatusOK, `"protocolVersion":"2024-11-05"`},
		{"preflight", http.MethodOptions, "/mcp", http.StatusOK, ``},
		{"notification", http.MethodPost, "/mcp", http.StatusAccepted, ``},
		{"not allowed", http.MethodDelete, "/mcp", http.StatusMethodNotAllowed, `Method not allowed`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := events.APIGatewayProxyRequest{HTTPMethod: tt.method, Path: tt.path}
			if tt.name == "notification" {
				req.Body = `{"jsonrpc":"2.0","method":"notifications/initialized"}`
			}
			resp, err := h.Handle(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, resp.Body, tt.body)
		})
	}
}
