package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestNewFollowsLevelVar(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelWarn)
	logger := New(&buf, lv)

	ctx := WithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "hidden")
	assert.Empty(t, buf.String())

	lv.Set(slog.LevelDebug)
	logger.DebugContext(ctx, "shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "request_id=req-1")
}
