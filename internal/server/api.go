package server

import (
	"net/http"
	"strings"

	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/pkg/schema"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// unavailable answers requests for a subsystem that is not configured.
func unavailable(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: what + " is disabled"})
}

func pageSize(r *http.Request) int {
	n := queryInt(r, "limit", defaultPageSize)
	if n <= 0 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

// --- Diagrams ---

func (s *Server) handleListDiagrams(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		unavailable(w, "history")
		return
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	list, err := s.deps.Store.ListDiagrams(r.Context(), store.DiagramFilter{
		Limit:  pageSize(r),
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*store.Diagram{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetDiagram returns a stored diagram as JSON, or re-rendered from its
// source when ?format= is given.
func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		unavailable(w, "history")
		return
	}
	d, err := s.deps.Store.GetDiagram(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	format := schema.RenderFormat(strings.ToLower(r.URL.Query().Get("format")))
	switch format {
	case "":
		writeJSON(w, http.StatusOK, d)
	case schema.FormatMermaid:
		writeRendered(w, format, []byte(d.Mermaid))
	default:
		out, err := s.deps.Generator.Render(r.Context(), d.Source, format)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRendered(w, format, out)
	}
}

func (s *Server) handleDeleteDiagram(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		unavailable(w, "history")
		return
	}
	if err := s.deps.Store.DeleteDiagram(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Build log ---

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		unavailable(w, "history")
		return
	}
	events, err := s.deps.Store.ListBuildEvents(r.Context(), store.BuildEventFilter{
		Outcome: store.BuildOutcome(r.URL.Query().Get("outcome")),
		Limit:   pageSize(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []*store.BuildEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
