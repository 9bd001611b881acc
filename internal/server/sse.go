package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rendis/codeflow/internal/streaming"
)

// handleSSE streams build events via Server-Sent Events. Optional query
// params: diagram_id, and outcome (comma-separated).
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		unavailable(w, "event stream")
		return
	}

	filter := streaming.Filter{DiagramID: r.URL.Query().Get("diagram_id")}
	if v := r.URL.Query().Get("outcome"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				filter.Outcomes = append(filter.Outcomes, o)
			}
		}
	}
	s.serveSSE(w, r, filter)
}

func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request, filter streaming.Filter) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, cancel, err := s.deps.Hub.Subscribe(r.Context(), filter)
	if err != nil {
		s.deps.Logger.ErrorContext(r.Context(), "SSE subscribe failed", slog.String("error", err.Error()))
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Outcome, data)
			flusher.Flush()
		}
	}
}
