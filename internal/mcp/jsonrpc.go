package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const jsonrpcVersion = "2.0"

// JSON-RPC 2.0 error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is an incoming JSON-RPC message. ID stays raw so it can be echoed
// back exactly as the client sent it.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return r.ID == nil && strings.HasPrefix(r.Method, "notifications/")
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func newResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: echoID(id), Result: result}
}

func newError(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      echoID(id),
		Error:   &Error{Code: code, Message: message},
	}
}

// ErrorResponse builds an error reply for transports that fail before the
// router sees the message.
func ErrorResponse(id json.RawMessage, code int, message string) *Response {
	return newError(id, code, message)
}

// echoID maps an omitted id to null.
func echoID(id json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(id)) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// decodeRequest parses raw into a Request. The returned error response is
// already shaped for the client.
func decodeRequest(raw []byte) (*Request, *Response) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		if err == nil {
			err = fmt.Errorf("invalid JSON")
		}
		return nil, newError(nil, CodeParseError, "Parse error: "+err.Error())
	}

	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newError(nil, CodeInvalidRequest, "Invalid Request")
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, newError(peekID(trimmed), CodeInvalidRequest, "Invalid Request")
	}
	if req.Method == "" || (req.JSONRPC != "" && req.JSONRPC != jsonrpcVersion) {
		return nil, newError(req.ID, CodeInvalidRequest, "Invalid Request")
	}
	return &req, nil
}

// peekID extracts the id of a message that does not decode as a Request.
func peekID(raw []byte) json.RawMessage {
	var envelope struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	return envelope.ID
}
