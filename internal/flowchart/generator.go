// Package flowchart orchestrates one diagram generation: parse, build,
// render, and the optional history store.
package flowchart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/codeflow/internal/diagram"
	"github.com/rendis/codeflow/internal/javaast"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/internal/streaming"
	"github.com/rendis/codeflow/pkg/schema"
)

// Deps holds the generator's collaborators. Store and Hub may be nil.
type Deps struct {
	Classifier     diagram.CallClassifier
	Store          store.Store
	Hub            streaming.Hub
	Logger         *slog.Logger
	MaxSourceBytes int
}

// Generator turns source text into diagrams. It is safe for concurrent use.
type Generator struct {
	parser      *javaast.Parser
	builder     *diagram.Builder
	fingerprint string
	store       store.Store
	hub         streaming.Hub
	logger      *slog.Logger
}

// fingerprinter is implemented by classifiers whose decisions depend on
// configuration. The fingerprint scopes history lookups to that configuration.
type fingerprinter interface {
	Fingerprint() string
}

// New creates a Generator.
func New(deps Deps) *Generator {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	g := &Generator{
		parser:  javaast.NewParser(javaast.WithMaxSourceBytes(deps.MaxSourceBytes)),
		builder: diagram.NewBuilder(deps.Classifier),
		store:   deps.Store,
		hub:     deps.Hub,
		logger:  deps.Logger,
	}
	if fp, ok := deps.Classifier.(fingerprinter); ok {
		g.fingerprint = fp.Fingerprint()
	}
	return g
}

// Result is the outcome of Generate. When the source could not be turned
// into a flowchart, Mermaid holds the degraded error diagram and Failure
// describes why.
type Result struct {
	ID       string               `json:"id,omitempty"`
	Mermaid  string               `json:"mermaid"`
	Nodes    int                  `json:"nodes"`
	Edges    int                  `json:"edges"`
	Wrapping string               `json:"wrapping,omitempty"`
	Cached   bool                 `json:"cached"`
	Failure  *schema.CodeflowError `json:"failure,omitempty"`
}

// Generate produces the Mermaid diagram for code.
//
// Syntax and traversal failures are not errors: they yield the error diagram.
// The returned error is non-nil only for rejected input (VALIDATION_ERROR)
// and cancellation (CANCELLED). Store failures are logged and ignored.
func (g *Generator) Generate(ctx context.Context, code string) (*Result, error) {
	start := time.Now()
	hash := SourceHash(g.fingerprint, code)

	if cached := g.lookup(ctx, hash); cached != nil {
		ctx = logging.WithDiagramID(ctx, cached.ID)
		buildsTotal.WithLabelValues(string(store.OutcomeCached)).Inc()
		g.record(ctx, hash, cached.ID, store.OutcomeCached, cached.NodeCount, "", start)
		g.logger.DebugContext(ctx, "diagram served from history")
		return &Result{
			ID:       cached.ID,
			Mermaid:  cached.Mermaid,
			Nodes:    cached.NodeCount,
			Edges:    cached.EdgeCount,
			Wrapping: cached.Wrapping,
			Cached:   true,
		}, nil
	}

	out, err := g.build(ctx, code)
	buildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		buildsTotal.WithLabelValues(string(store.OutcomeRejected)).Inc()
		g.record(ctx, hash, "", store.OutcomeRejected, 0, err.Error(), start)
		return nil, err
	}

	res := &Result{
		Mermaid: diagram.RenderMermaid(out.diagram),
		Nodes:   len(out.diagram.Nodes),
		Edges:   len(out.diagram.Edges),
	}

	if out.failure != nil {
		outcome := failureOutcome(out.failure)
		buildsTotal.WithLabelValues(string(outcome)).Inc()
		res.Failure = out.failure
		g.record(ctx, hash, "", outcome, 0, out.failure.Message, start)
		g.logger.InfoContext(ctx, "diagram degraded", slog.String("code", out.failure.Code), slog.String("error", out.failure.Message))
		return res, nil
	}

	buildsTotal.WithLabelValues(string(store.OutcomeOK)).Inc()
	diagramNodes.Observe(float64(res.Nodes))
	res.Wrapping = out.file.Wrapped.String()
	res.ID = uuid.NewString()

	if g.store != nil {
		row := &store.Diagram{
			ID:         res.ID,
			SourceHash: hash,
			Source:     code,
			Mermaid:    res.Mermaid,
			Wrapping:   res.Wrapping,
			NodeCount:  res.Nodes,
			EdgeCount:  res.Edges,
		}
		if err := g.store.SaveDiagram(ctx, row); err != nil {
			g.logger.WarnContext(ctx, "save diagram failed", slog.String("error", err.Error()))
		} else {
			res.ID = row.ID
		}
	}

	ctx = logging.WithDiagramID(ctx, res.ID)
	g.record(ctx, hash, res.ID, store.OutcomeOK, res.Nodes, "", start)
	g.logger.DebugContext(ctx, "diagram generated", slog.Int("nodes", res.Nodes), slog.Int("edges", res.Edges))
	return res, nil
}

// Render produces code's diagram in the given format. Syntax and traversal
// failures render the error diagram. Nothing is stored.
func (g *Generator) Render(ctx context.Context, code string, format schema.RenderFormat) ([]byte, error) {
	if !format.Valid() {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown format %q", format)
	}
	renderTotal.WithLabelValues(string(format)).Inc()

	out, err := g.build(ctx, code)
	if err != nil {
		return nil, err
	}
	return RenderDiagram(ctx, out.diagram, format)
}

// RenderDiagram renders d in the given format.
func RenderDiagram(ctx context.Context, d *diagram.Diagram, format schema.RenderFormat) ([]byte, error) {
	switch format {
	case schema.FormatMermaid:
		return []byte(diagram.RenderMermaid(d)), nil
	case schema.FormatASCII:
		return []byte(diagram.RenderASCII(d)), nil
	case schema.FormatDOT:
		return diagram.RenderDOT(ctx, d)
	case schema.FormatSVG:
		return diagram.RenderSVG(ctx, d)
	case schema.FormatPNG:
		return diagram.RenderPNG(ctx, d)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown format %q", format)
	}
}

// SourceHash is the history store's dedup key: the hex SHA-256 of the
// classifier fingerprint and code. Diagrams built under different I/O rules
// never share a key.
func SourceHash(fingerprint, code string) string {
	sum := sha256.Sum256([]byte(fingerprint + "\x00" + code))
	return hex.EncodeToString(sum[:])
}

// buildOutcome is a built diagram, or the error diagram plus the failure.
type buildOutcome struct {
	file    *javaast.File
	diagram *diagram.Diagram
	failure *schema.CodeflowError
}

func (g *Generator) build(ctx context.Context, code string) (out buildOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			failure := schema.NewErrorf(schema.ErrCodeTraversal, "internal error: %v", r)
			g.logger.ErrorContext(ctx, "build panicked", slog.Any("panic", r))
			out, err = degraded(failure), nil
		}
	}()

	file, err := g.parser.Parse(ctx, code)
	if err != nil {
		return passThrough(err)
	}
	d, err := g.builder.Build(ctx, file)
	if err != nil {
		return passThrough(err)
	}
	return buildOutcome{file: file, diagram: d}, nil
}

// passThrough turns syntax and traversal errors into a degraded outcome and
// returns every other error as is.
func passThrough(err error) (buildOutcome, error) {
	switch schema.ErrorCode(err) {
	case schema.ErrCodeSyntax, schema.ErrCodeTraversal:
		return degraded(asCodeflowError(err)), nil
	case "":
		return degraded(schema.NewError(schema.ErrCodeTraversal, err.Error()).WithCause(err)), nil
	default:
		return buildOutcome{}, err
	}
}

func degraded(failure *schema.CodeflowError) buildOutcome {
	return buildOutcome{diagram: diagram.ErrorDiagram(failure.Message), failure: failure}
}

func asCodeflowError(err error) *schema.CodeflowError {
	var cerr *schema.CodeflowError
	if errors.As(err, &cerr) {
		return cerr
	}
	return schema.NewError(schema.ErrorCode(err), err.Error()).WithCause(err)
}

func failureOutcome(failure *schema.CodeflowError) store.BuildOutcome {
	if failure.Code == schema.ErrCodeSyntax {
		return store.OutcomeSyntaxError
	}
	return store.OutcomeTraversalError
}

// lookup returns the stored diagram for hash, or nil.
func (g *Generator) lookup(ctx context.Context, hash string) *store.Diagram {
	if g.store == nil {
		return nil
	}
	d, err := g.store.FindByHash(ctx, hash)
	if err != nil {
		if !schema.IsCode(err, schema.ErrCodeNotFound) {
			g.logger.WarnContext(ctx, "history lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return d
}

// record appends a build event to the store and publishes it to the hub,
// whichever are configured.
func (g *Generator) record(ctx context.Context, hash, diagramID string, outcome store.BuildOutcome, nodes int, message string, start time.Time) {
	elapsed := time.Since(start).Milliseconds()

	if g.store != nil {
		event := &store.BuildEvent{
			RequestID:  logging.RequestID(ctx),
			DiagramID:  diagramID,
			SourceHash: hash,
			Outcome:    outcome,
			Message:    message,
			DurationMs: elapsed,
		}
		if err := g.store.AppendBuildEvent(ctx, event); err != nil {
			g.logger.WarnContext(ctx, "record build event failed", slog.String("error", err.Error()))
		}
	}

	if g.hub != nil {
		_ = g.hub.Publish(ctx, streaming.BuildEvent{
			RequestID:  logging.RequestID(ctx),
			DiagramID:  diagramID,
			Outcome:    string(outcome),
			Nodes:      nodes,
			Message:    message,
			DurationMs: elapsed,
		})
	}
}
