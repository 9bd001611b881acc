package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/pkg/schema"
)

// toolContext tags ctx the way the HTTP middleware does for requests.
func toolContext(ctx context.Context) context.Context {
	return logging.WithTransport(logging.WithRequestID(ctx, uuid.NewString()), "mcp")
}

// handleParse returns the Mermaid flowchart for the given source. Sources
// that fail to parse still yield the error diagram, not a tool error.
func (s *CodeflowServer) handleParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("code is required"), nil
	}
	ctx = toolContext(ctx)

	res, genErr := s.generator.Generate(ctx, code)
	if genErr != nil {
		s.logger.InfoContext(ctx, "parse rejected", slog.String("error", genErr.Error()))
		return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", genErr)), nil
	}
	return mcp.NewToolResultText(res.Mermaid), nil
}

// handleRender renders the source's flowchart in the requested format.
func (s *CodeflowServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("code is required"), nil
	}
	format := schema.RenderFormat(req.GetString("format", string(schema.FormatMermaid)))
	if !format.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format: %s", format)), nil
	}

	out, renderErr := s.generator.Render(toolContext(ctx), code, format)
	if renderErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", renderErr)), nil
	}
	return renderedResult(format, out), nil
}

// handleDiagram fetches a stored diagram, optionally re-rendered.
func (s *CodeflowServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("history is disabled"), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	ctx = logging.WithDiagramID(toolContext(ctx), id)

	d, getErr := s.store.GetDiagram(ctx, id)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram lookup failed: %v", getErr)), nil
	}

	format := schema.RenderFormat(req.GetString("format", ""))
	switch format {
	case "":
		return marshalResult(d)
	case schema.FormatMermaid:
		return mcp.NewToolResultText(d.Mermaid), nil
	}
	if !format.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format: %s", format)), nil
	}
	out, renderErr := s.generator.Render(ctx, d.Source, format)
	if renderErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", renderErr)), nil
	}
	return renderedResult(format, out), nil
}

// handleHistory lists stored diagrams or build events.
func (s *CodeflowServer) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("history is disabled"), nil
	}
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}
	filter := mcp.ParseStringMap(req, "filter", nil)
	ctx = toolContext(ctx)

	switch resource {
	case "diagrams":
		return s.listDiagrams(ctx, filter)
	case "builds":
		return s.listBuilds(ctx, filter)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource type: %s", resource)), nil
	}
}

func (s *CodeflowServer) listDiagrams(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	df := store.DiagramFilter{
		Limit:  extractInt(filter, "limit", 50),
		Offset: extractInt(filter, "offset", 0),
		Since:  extractTime(filter, "since"),
	}
	diagrams, err := s.store.ListDiagrams(ctx, df)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if diagrams == nil {
		diagrams = []*store.Diagram{}
	}
	return marshalResult(map[string]any{"diagrams": diagrams})
}

func (s *CodeflowServer) listBuilds(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	bf := store.BuildEventFilter{
		Limit: extractInt(filter, "limit", 50),
		Since: extractTime(filter, "since"),
	}
	if outcome, ok := filter["outcome"].(string); ok {
		bf.Outcome = store.BuildOutcome(outcome)
	}
	events, err := s.store.ListBuildEvents(ctx, bf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if events == nil {
		events = []*store.BuildEvent{}
	}
	return marshalResult(map[string]any{"builds": events})
}

// --- Helpers ---

// renderedResult wraps rendered bytes. Binary formats are base64-encoded.
func renderedResult(format schema.RenderFormat, out []byte) *mcp.CallToolResult {
	if format == schema.FormatPNG {
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(out))
	}
	return mcp.NewToolResultText(string(out))
}

func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func extractTime(filter map[string]any, key string) *time.Time {
	raw, ok := filter[key].(string)
	if !ok || raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}

