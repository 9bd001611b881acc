package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	// Initially empty.
	assert.Equal(t, "", RequestID(ctx))
	assert.Equal(t, "", DiagramID(ctx))
	assert.Equal(t, "", Transport(ctx))

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithDiagramID(ctx, "dg-1")
	ctx = WithTransport(ctx, "http")

	assert.Equal(t, "req-123", RequestID(ctx))
	assert.Equal(t, "dg-1", DiagramID(ctx))
	assert.Equal(t, "http", Transport(ctx))
}

func TestContextKeysOverwrite(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	parent := WithDiagramID(ctx, "dg-1")
	child := WithRequestID(parent, "req-2")

	assert.Equal(t, "req-1", RequestID(parent))
	assert.Equal(t, "req-2", RequestID(child))
	assert.Equal(t, "dg-1", DiagramID(child))
}

func TestCorrelationHandlerOmitsTransportWhenUnset(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := WithDiagramID(WithRequestID(context.Background(), "req-abc"), "dg-x")
	logger.InfoContext(ctx, "test message")

	output := buf.String()
	assert.Contains(t, output, "request_id=req-abc")
	assert.Contains(t, output, "diagram_id=dg-x")
	assert.NotContains(t, output, "transport")
	assert.Contains(t, output, "test message")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithTransport(WithDiagramID(WithRequestID(context.Background(), "req-auto"), "dg-auto"), "mcp")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-auto"`)
	assert.Contains(t, output, `"diagram_id":"dg-auto"`)
	assert.Contains(t, output, `"transport":"mcp"`)
	assert.Contains(t, output, "auto inject")
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "request_id")
	assert.NotContains(t, output, "diagram_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "server")}))

	logger.InfoContext(WithRequestID(context.Background(), "req-attr"), "with attrs")

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-attr"`)
	assert.Contains(t, output, `"component":"server"`)
}

func TestCorrelationHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner).WithGroup("store"))

	logger.InfoContext(WithRequestID(context.Background(), "req-grp"), "grouped", "key", "val")

	output := buf.String()
	assert.Contains(t, output, "req-grp")
	assert.Contains(t, output, "grouped")
}
