package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// correlation is the set of IDs that tie log lines to one request and the
// diagram it produced. It is immutable once stored in a context.
type correlation struct {
	requestID string
	diagramID string
	transport string
}

func fromContext(ctx context.Context) correlation {
	c, _ := ctx.Value(ctxKey{}).(correlation)
	return c
}

func (c correlation) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 3)
	if c.requestID != "" {
		out = append(out, slog.String("request_id", c.requestID))
	}
	if c.diagramID != "" {
		out = append(out, slog.String("diagram_id", c.diagramID))
	}
	if c.transport != "" {
		out = append(out, slog.String("transport", c.transport))
	}
	return out
}

// WithRequestID tags ctx with the ID of the request being served.
func WithRequestID(ctx context.Context, id string) context.Context {
	c := fromContext(ctx)
	c.requestID = id
	return context.WithValue(ctx, ctxKey{}, c)
}

// WithDiagramID tags ctx with the diagram a build produced or served from history.
func WithDiagramID(ctx context.Context, id string) context.Context {
	c := fromContext(ctx)
	c.diagramID = id
	return context.WithValue(ctx, ctxKey{}, c)
}

// WithTransport tags ctx with the surface a request came in on ("http",
// "mcp" or "cli").
func WithTransport(ctx context.Context, transport string) context.Context {
	c := fromContext(ctx)
	c.transport = transport
	return context.WithValue(ctx, ctxKey{}, c)
}

func RequestID(ctx context.Context) string { return fromContext(ctx).requestID }

func DiagramID(ctx context.Context) string { return fromContext(ctx).diagramID }

func Transport(ctx context.Context) string { return fromContext(ctx).transport }

// CorrelationHandler adds the context's correlation IDs to every record, so
// logger.InfoContext(ctx, ...) carries them without extra arguments.
type CorrelationHandler struct {
	inner slog.Handler
}

func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := fromContext(ctx).attrs(); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
