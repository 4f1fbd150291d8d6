package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"mcpizza/internal/logger"
	"mcpizza/internal/models"
	"mcpizza/internal/services/order"
	"mcpizza/internal/services/order/validation"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "mcpizza"

	instructions = "Order pizza step by step: find_dominos_store, search_menu, add_to_order, view_order. " +
		"Orders are never placed; prepare_order_preview stops before placement."
)

// Options selects router behaviour.
type Options struct {
	Version       string
	ExtendedTools bool
}

// Router turns JSON-RPC requests into calls on the order service. It holds
// no session state; every call gets the caller's session.
type Router struct {
	service  *order.Service
	tools    []*sdk.Tool
	handlers map[string]toolHandler
	version  string
	logger   *logger.Logger
}

func NewRouter(service *order.Service, opts Options, log *logger.Logger) *Router {
	r := &Router{
		service:  service,
		handlers: make(map[string]toolHandler),
		version:  opts.Version,
		logger:   log,
	}
	if r.version == "" {
		r.version = "1.0.0"
	}

	for _, t := range catalog(service) {
		if t.extended && !opts.ExtendedTools {
			continue
		}
		r.tools = append(r.tools, t.descriptor)
		r.handlers[t.descriptor.Name] = t.handler
	}
	return r
}

// Tools returns the advertised tool descriptors.
func (r *Router) Tools() []*sdk.Tool {
	return r.tools
}

// ServerInfo describes the server to plain HTTP and SSE clients.
type ServerInfo struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Description     string   `json:"description"`
	ProtocolVersion string   `json:"protocolVersion"`
	RealAPIEnabled  bool     `json:"real_api_enabled"`
	FallbackEnabled bool     `json:"fallback_enabled"`
	Tools           []string `json:"tools"`
}

func (r *Router) Info() ServerInfo {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name)
	}
	return ServerInfo{
		Name:            ServerName,
		Version:         r.version,
		Description:     "Domino's pizza ordering MCP server",
		ProtocolVersion: ProtocolVersion,
		RealAPIEnabled:  r.service.RealAPIEnabled(),
		FallbackEnabled: r.service.FallbackEnabled(),
		Tools:           names,
	}
}

// Notification builds a server to client JSON-RPC notification.
func Notification(method string, params any) map[string]any {
	return map[string]any{
		"jsonrpc": jsonrpcVersion,
		"method":  method,
		"params":  params,
	}
}

// InitializeResult is the static answer to initialize.
func (r *Router) InitializeResult() *sdk.InitializeResult {
	return &sdk.InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: &sdk.ServerCapabilities{
			Tools: &sdk.ToolCapabilities{},
		},
		ServerInfo: &sdk.Implementation{
			Name:    ServerName,
			Version: r.version,
		},
		Instructions: instructions,
	}
}

// Dispatch runs a decoded request against sess.
func (r *Router) Dispatch(ctx context.Context, sess *order.Session, req *Request) *Response {
	requestID := logger.RequestID(ctx)
	r.logger.Debug("rpc_request", fmt.Sprintf("Handling %s", req.Method), requestID, map[string]interface{}{
		"method":     req.Method,
		"session_id": sess.ID,
	})

	if req.IsNotification() {
		return nil
	}

	switch req.Method {
	case "initialize":
		return newResult(req.ID, r.InitializeResult())
	case "tools/list":
		return newResult(req.ID, &sdk.ListToolsResult{Tools: r.tools})
	case "tools/call":
		return r.callTool(ctx, sess, req)
	default:
		return newError(req.ID, CodeMethodNotFound, "Method not found: "+req.Method)
	}
}

func (r *Router) callTool(ctx context.Context, sess *order.Session, req *Request) *Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return newError(req.ID, CodeInvalidParams, "Invalid params: "+err.Error())
		}
	}
	if params.Name == "" {
		return newError(req.ID, CodeInvalidParams, "Invalid params: missing tool name")
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	handler, ok := r.handlers[params.Name]
	if !ok {
		message := "Unknown tool: " + params.Name
		return newResult(req.ID, &sdk.CallToolResult{
			Content:           []sdk.Content{&sdk.TextContent{Text: message}},
			StructuredContent: models.ToolError{Error: message, Source: r.defaultSource()},
			IsError:           true,
		})
	}

	payload, err := handler(ctx, sess, args)
	if err != nil {
		return r.toolError(ctx, req, params.Name, err)
	}

	result, err := textResult(payload, false)
	if err != nil {
		return newError(req.ID, CodeInternalError, err.Error())
	}
	return newResult(req.ID, result)
}

// toolError maps a failed tool call onto the reply the client sees.
//
//	argument or validation problem -> -32602
//	domain precondition            -> in-band isError result
//	anything else                  -> -32603
func (r *Router) toolError(ctx context.Context, req *Request, name string, err error) *Response {
	requestID := logger.RequestID(ctx)

	var paramsErr *invalidParamsError
	var validationErr validation.ValidationError
	switch {
	case errors.As(err, &paramsErr), errors.As(err, &validationErr):
		r.logger.Debug("tool_invalid_params", "Tool arguments rejected", requestID, map[string]interface{}{
			"tool":  name,
			"error": err.Error(),
		})
		return newError(req.ID, CodeInvalidParams, "Invalid params: "+err.Error())

	case order.IsPrecondition(err):
		result, encodeErr := textResult(models.ToolError{Error: err.Error(), Source: r.defaultSource()}, true)
		if encodeErr != nil {
			return newError(req.ID, CodeInternalError, encodeErr.Error())
		}
		return newResult(req.ID, result)

	default:
		r.logger.Error("tool_failed", "Tool call failed", requestID, err, map[string]interface{}{
			"tool": name,
		})
		return newError(req.ID, CodeInternalError, err.Error())
	}
}

func (r *Router) defaultSource() models.Source {
	if r.service.RealAPIEnabled() {
		return models.SourceRealAPI
	}
	return models.SourceMock
}

// textResult wraps payload as a tool result whose text block and structured
// content carry the same JSON.
func textResult(payload any, isError bool) (*sdk.CallToolResult, error) {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &sdk.CallToolResult{
		Content:           []sdk.Content{&sdk.TextContent{Text: string(text)}},
		StructuredContent: payload,
		IsError:           isError,
	}, nil
}
