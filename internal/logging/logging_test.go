package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCtx_FallsBackToBase(t *testing.T) {
	assert.Same(t, Base(), FromCtx(context.Background()))
}

func TestWithCtx_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil)).With("req_id", "r-1")

	FromCtx(WithCtx(context.Background(), l)).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "r-1", line["req_id"])
	assert.Equal(t, "hello", line["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestComponentLoggerHasSingleComponentKey(t *testing.T) {
	var buf bytes.Buffer
	withComponent(newLogger(&buf, "storefront", "info"), "orders").Info("order placed")

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, `"component"`), line)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "storefront", got["app"])
	assert.Equal(t, "orders", got["component"])
}
