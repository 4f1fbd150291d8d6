package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mcpizza/internal/logger"
	"mcpizza/internal/mcp"
)

const maxLineBytes = 1 << 20

// Transport reads newline delimited JSON-RPC messages and writes one reply
// line per request. The whole process shares one session.
type Transport struct {
	server    *mcp.Server
	sessionID string
	logger    *logger.Logger
}

func New(server *mcp.Server, log *logger.Logger) *Transport {
	return &Transport{
		server:    server,
		sessionID: mcp.NewSessionID(),
		logger:    log,
	}
}

// SessionID is the id of the process wide session.
func (t *Transport) SessionID() string {
	return t.sessionID
}

// line is one input message. tooLarge lines were dropped unread past
// maxLineBytes.
type line struct {
	data     []byte
	tooLarge bool
}

// readLines sends every non-blank line of in. Lines longer than maxLineBytes
// are skipped up to the next newline and reported as tooLarge.
func readLines(ctx context.Context, in io.Reader, lines chan<- line) error {
	r := bufio.NewReaderSize(in, 64*1024)
	for {
		var buf []byte
		tooLarge := false
		for {
			chunk, err := r.ReadSlice('\n')
			if !tooLarge {
				if len(buf)+len(chunk) > maxLineBytes+1 {
					tooLarge = true
					buf = nil
				} else {
					buf = append(buf, chunk...)
				}
			}
			if err == bufio.ErrBufferFull {
				continue
			}
			if err != nil && err != io.EOF {
				return err
			}
			if err == io.EOF && len(buf) == 0 && !tooLarge {
				return nil
			}

			msg := line{data: bytes.TrimSpace(buf), tooLarge: tooLarge}
			if len(msg.data) > 0 || msg.tooLarge {
				select {
				case lines <- msg:
				case <-ctx.Done():
					return nil
				}
			}
			if err == io.EOF {
				return nil
			}
			break
		}
	}
}

// Serve runs until in reaches EOF or ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan line)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		readErr <- readLines(ctx, in, lines)
	}()

	t.logger.Info("stdio_started", "Serving MCP over stdio", "", map[string]interface{}{
		"session_id": t.sessionID,
	})

	w := bufio.NewWriter(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("failed to read stdin: %w", err)
					}
				default:
				}
				t.logger.Info("stdio_closed", "Input closed", "", nil)
				return nil
			}

			reqCtx := logger.WithRequestID(ctx, logger.GenerateRequestID())
			reply, err := t.reply(reqCtx, msg)
			if err != nil {
				t.logger.Error("exchange_failed", "Failed to handle MCP message", logger.RequestID(reqCtx), err, nil)
				continue
			}
			if reply == nil {
				continue
			}
			if _, err := w.Write(append(reply, '\n')); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush response: %w", err)
			}
		}
	}
}

func (t *Transport) reply(ctx context.Context, msg line) ([]byte, error) {
	if msg.tooLarge {
		t.logger.Warn("message_too_large", "Dropped oversized stdin message", logger.RequestID(ctx), map[string]interface{}{
			"limit": maxLineBytes,
		})
		resp := mcp.ErrorResponse(nil, mcp.CodeParseError, fmt.Sprintf("Parse error: message exceeds %d bytes", maxLineBytes))
		return json.Marshal(resp)
	}
	return t.server.Exchange(ctx, t.sessionID, msg.data)
}
