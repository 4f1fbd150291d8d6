package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := New("mcp-http", WithWriter(&buf), WithLevel(slog.LevelDebug))

	log.Info("store_found", "Found store", "req-1", map[string]interface{}{
		"store_id": "4521",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "Found store", record["msg"])
	assert.Equal(t, "mcp-http", record["service"])
	assert.Equal(t, "store_found", record["action"])
	assert.Equal(t, "req-1", record["request_id"])

	details, ok := record["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "4521", details["store_id"])
}

func TestLoggerErrorIncludesMessage(t *testing.T) {
	var buf bytes.Buffer
	log := New("mcp-stdio", WithWriter(&buf))

	log.Error("api_failed", "Ordering API failed", "req-2", errors.New("boom"), nil)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	errGroup, ok := record["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", errGroup["msg"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("mcp-http", WithWriter(&buf), WithLevel(slog.LevelWarn))

	log.Debug("noise", "dropped", "", nil)
	log.Info("noise", "dropped", "", nil)
	assert.Zero(t, buf.Len())

	log.Warn("fallback", "kept", "", nil)
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
