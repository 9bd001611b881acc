package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/codeflow/internal/classify"
	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/internal/streaming"
	"github.com/rendis/codeflow/internal/validation"
	"github.com/rendis/codeflow/pkg/schema"
)

const printlnCode = `void f(){ System.out.println("hi"); }`

type testEnv struct {
	handler http.Handler
	store   *store.LibSQLStore
	hub     *streaming.MemoryHub
}

func setupServer(t *testing.T, withHistory bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	v, err := validation.NewJSONSchemaValidator()
	require.NoError(t, err)

	env := &testEnv{hub: streaming.NewMemoryHub()}
	deps := Deps{Validator: v, Hub: env.hub, Logger: logger, Version: "test", Gatherer: prometheus.NewRegistry()}
	genDeps := flowchart.Deps{Classifier: classify.Default(), Hub: env.hub, Logger: logger}

	if withHistory {
		s, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "server.db"))
		require.NoError(t, err)
		require.NoError(t, s.Migrate(context.Background()))
		t.Cleanup(func() { _ = s.Close() })
		env.store = s
		deps.Store = s
		genDeps.Store = s
	}

	deps.Generator = flowchart.New(genDeps)
	env.handler = New(deps).Handler()
	return env
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func parseBody(code string) string {
	b, _ := json.Marshal(schema.ParseRequest{Code: code})
	return string(b)
}

// --- POST /parse ---

func TestParseReturnsMermaid(t *testing.T) {
	env := setupServer(t, false)
	rec := doRequest(t, env.handler, "POST", "/parse", parseBody(printlnCode))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp schema.ParseResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, strings.HasPrefix(resp.Mermaid, "flowchart TD\n"))
	assert.Contains(t, resp.Mermaid, `N1[/"System.out.println(...)"/]:::io`)
}

func TestParseSyntaxErrorStillSucceeds(t *testing.T) {
	env := setupServer(t, false)
	rec := doRequest(t, env.handler, "POST", "/parse", parseBody(`void f() { x(`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp schema.ParseResponse
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp.Mermaid, "Error[Error parsing Java: ")
}

func TestParseDeepNestingStillSucceeds(t *testing.T) {
	env := setupServer(t, false)
	code := "void f() { " + strings.Repeat("if (x) { ", 300) + "run(); " + strings.Repeat("} ", 300) + "}"
	rec := doRequest(t, env.handler, "POST", "/parse", parseBody(code))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp schema.ParseResponse
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp.Mermaid, "Error[Error parsing Java: statements nested")
}

func TestParseVerboseReturnsResult(t *testing.T) {
	env := setupServer(t, false)
	rec := doRequest(t, env.handler, "POST", "/parse?verbose=1", parseBody(printlnCode))

	require.Equal(t, http.StatusOK, rec.Code)
	var res flowchart.Result
	decodeJSON(t, rec, &res)
	assert.Equal(t, 4, res.Nodes)
	assert.Equal(t, "class", res.Wrapping)
}

func TestParseRejectsBadEnvelope(t *testing.T) {
	env := setupServer(t, false)

	for name, body := range map[string]string{
		"empty":        "",
		"not json":     "{code",
		"missing code": `{"source": "x"}`,
		"wrong type":   `{"code": 3}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, env.handler, "POST", "/parse", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var e errorBody
			decodeJSON(t, rec, &e)
			assert.Equal(t, schema.ErrCodeValidation, e.Code)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestParseBodyTooLarge(t *testing.T) {
	v, err := validation.NewJSONSchemaValidator()
	require.NoError(t, err)
	h := New(Deps{
		Generator:    flowchart.New(flowchart.Deps{}),
		Validator:    v,
		Gatherer:     prometheus.NewRegistry(),
		MaxBodyBytes: 16,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).Handler()

	rec := doRequest(t, h, "POST", "/parse", parseBody(printlnCode))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestParseWrongMethod(t *testing.T) {
	env := setupServer(t, false)
	rec := doRequest(t, env.handler, "GET", "/parse", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := setupServer(t, false)
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

// --- POST /render ---

func TestRenderFormats(t *testing.T) {
	env := setupServer(t, false)

	cases := []struct {
		format      schema.RenderFormat
		contentType string
		contains    string
	}{
		{schema.FormatMermaid, "text/plain; charset=utf-8", "flowchart TD"},
		{schema.FormatASCII, "text/plain; charset=utf-8", "Start"},
		{schema.FormatDOT, "text/vnd.graphviz; charset=utf-8", "digraph"},
		{schema.FormatSVG, "image/svg+xml", "<svg"},
	}
	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			body := `{"code": ` + mustJSON(printlnCode) + `, "format": "` + string(tc.format) + `"}`
			rec := doRequest(t, env.handler, "POST", "/render", body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tc.contains)
		})
	}
}

func TestRenderDefaultsToMermaid(t *testing.T) {
	env := setupServer(t, false)
	rec := doRequest(t, env.handler, "POST", "/render", parseBody(printlnCode))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "flowchart TD"))
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	env := setupServer(t, false)
	rec := doRequest(t, env.handler, "POST", "/render", `{"code": "void f(){}", "format": "gif"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// --- History ---

func TestHistoryDisabledWithoutStore(t *testing.T) {
	env := setupServer(t, false)
	for _, path := range []string{"/diagrams", "/diagrams/x", "/builds"} {
		rec := doRequest(t, env.handler, "GET", path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestDiagramHistory(t *testing.T) {
	env := setupServer(t, true)

	rec := doRequest(t, env.handler, "POST", "/parse?verbose=1", parseBody(printlnCode))
	require.Equal(t, http.StatusOK, rec.Code)
	var res flowchart.Result
	decodeJSON(t, rec, &res)
	require.NotEmpty(t, res.ID)

	// List.
	rec = doRequest(t, env.handler, "GET", "/diagrams?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.Diagram
	decodeJSON(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)

	// Get as JSON.
	rec = doRequest(t, env.handler, "GET", "/diagrams/"+res.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got store.Diagram
	decodeJSON(t, rec, &got)
	assert.Equal(t, printlnCode, got.Source)
	assert.Equal(t, res.Mermaid, got.Mermaid)

	// Get re-rendered.
	rec = doRequest(t, env.handler, "GET", "/diagrams/"+res.ID+"?format=dot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph")

	rec = doRequest(t, env.handler, "GET", "/diagrams/"+res.ID+"?format=mermaid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res.Mermaid, rec.Body.String())

	// Delete.
	rec = doRequest(t, env.handler, "DELETE", "/diagrams/"+res.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, env.handler, "GET", "/diagrams/"+res.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var e errorBody
	decodeJSON(t, rec, &e)
	assert.Equal(t, schema.ErrCodeNotFound, e.Code)
}

func TestListBuilds(t *testing.T) {
	env := setupServer(t, true)

	doRequest(t, env.handler, "POST", "/parse", parseBody(printlnCode))
	doRequest(t, env.handler, "POST", "/parse", parseBody(printlnCode))
	doRequest(t, env.handler, "POST", "/parse", parseBody(`void f() {`))

	rec := doRequest(t, env.handler, "GET", "/builds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []store.BuildEvent
	decodeJSON(t, rec, &events)
	assert.Len(t, events, 3)

	rec = doRequest(t, env.handler, "GET", "/builds?outcome=cached", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, store.OutcomeCached, events[0].Outcome)
}

// --- Operations ---

func TestHealth(t *testing.T) {
	env := setupServer(t, true)
	rec := doRequest(t, env.handler, "GET", "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var h healthResponse
	decodeJSON(t, rec, &h)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "test", h.Version)
	assert.True(t, h.History)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t, false)
	rec := doRequest(t, env.handler, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- SSE ---

func TestEventStream(t *testing.T) {
	env := setupServer(t, false)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events?outcome=ok", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Filtered out, then delivered.
	require.NoError(t, env.hub.Publish(ctx, streaming.BuildEvent{Outcome: "syntax_error"}))
	require.NoError(t, env.hub.Publish(ctx, streaming.BuildEvent{Outcome: "ok", DiagramID: "d-1", Nodes: 4}))

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for eventLine == "" || dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	assert.Equal(t, "ok", eventLine)

	var got streaming.BuildEvent
	require.NoError(t, json.Unmarshal([]byte(dataLine), &got))
	assert.Equal(t, "d-1", got.DiagramID)
	assert.Equal(t, 4, got.Nodes)
}
