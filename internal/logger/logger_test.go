package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")
	defer Initialize("info", "text")

	ctx := NewContext(context.Background(), "request_id", "req-1")
	ctx = NewContext(ctx, "actor", "alice")
	InfoContext(ctx, "booking created", "booking_id", 4)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "booking created", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "alice", entry["actor"])
	assert.Equal(t, float64(4), entry["booking_id"])
}

func TestExitMethodWithError_Levels(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "text")
	defer Initialize("info", "text")

	ExitMethodWithError("CreateBooking", errors.New("not available"), true)
	ExitMethodWithError("CreateBooking", errors.New("disk full"), false)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=WARN")
	assert.Contains(t, lines[1], "level=ERROR")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "warn", "text")
	defer Initialize("info", "text")

	Debug("hidden")
	Info("hidden")
	Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
