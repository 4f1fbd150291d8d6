package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"mcpizza/internal/logger"
	"mcpizza/internal/services/order"
)

// Server binds the router to a session store. Transports call Exchange once
// per incoming message.
type Server struct {
	router   *Router
	sessions order.SessionStore
	logger   *logger.Logger
}

func NewServer(router *Router, sessions order.SessionStore, log *logger.Logger) *Server {
	return &Server{
		router:   router,
		sessions: sessions,
		logger:   log,
	}
}

// Router exposes the underlying router for transports that report server info.
func (s *Server) Router() *Router {
	return s.router
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Exchange handles one raw JSON-RPC message for sessionID and returns the
// encoded reply. A nil reply means the message was a notification. Order
// events go out only once the session they describe is saved.
func (s *Server) Exchange(ctx context.Context, sessionID string, raw []byte) ([]byte, error) {
	if logger.RequestID(ctx) == "" {
		ctx = logger.WithRequestID(ctx, logger.GenerateRequestID())
	}
	requestID := logger.RequestID(ctx)

	req, errResp := decodeRequest(raw)
	if errResp != nil {
		s.logger.Warn("request_rejected", errResp.Error.Message, requestID, map[string]interface{}{
			"code":       errResp.Error.Code,
			"session_id": sessionID,
		})
		return encodeResponse(errResp)
	}
	if req.IsNotification() {
		return nil, nil
	}

	sess, err := order.LoadSession(ctx, s.sessions, sessionID)
	if err != nil {
		s.logger.Error("session_load_failed", "Failed to load session", requestID, err, map[string]interface{}{
			"session_id": sessionID,
		})
		return encodeResponse(newError(req.ID, CodeInternalError, fmt.Sprintf("failed to load session: %v", err)))
	}

	before := sess.UpdatedAt
	resp := s.router.Dispatch(ctx, sess, req)

	if !sess.UpdatedAt.Equal(before) {
		if err := s.sessions.Put(ctx, sess); err != nil {
			s.logger.Error("session_save_failed", "Failed to save session", requestID, err, map[string]interface{}{
				"session_id":     sessionID,
				"dropped_events": s.router.service.DiscardEvents(sess),
			})
			return encodeResponse(newError(req.ID, CodeInternalError, fmt.Sprintf("failed to save session: %v", err)))
		}
	}
	s.router.service.PublishEvents(ctx, sess)

	if resp == nil {
		return nil, nil
	}
	return encodeResponse(resp)
}

func encodeResponse(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}
