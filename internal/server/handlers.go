package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rendis/codeflow/pkg/schema"
)

// handleParse answers POST /parse with {"mermaid": ...}. Source that does not
// parse still yields 200 with the error diagram; only a malformed envelope,
// rejected input, or cancellation is an error response. With ?verbose=1 the
// full generation result is returned instead.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.deps.MaxBodyBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.deps.Validator.ValidateParse(body)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.deps.Generator.Generate(r.Context(), req.Code)
	if err != nil {
		s.deps.Logger.InfoContext(r.Context(), "parse rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("verbose") != "" {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, schema.ParseResponse{Mermaid: res.Mermaid})
}

// handleRender answers POST /render with the diagram in the requested format.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.deps.MaxBodyBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.deps.Validator.ValidateRender(body)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := s.deps.Generator.Render(r.Context(), req.Code, req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRendered(w, req.Format, out)
}

func writeRendered(w http.ResponseWriter, format schema.RenderFormat, out []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	History bool   `json:"history"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.deps.Version,
		History: s.deps.Store != nil,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}
