package main

import (
	"net/http"
	"sync/atomic"

	"github.com/rendis/codeflow/internal/flowchart"
)

// route pairs a generator with the HTTP handler built around it.
type route struct {
	gen     *flowchart.Generator
	handler http.Handler
}

// liveHandler serves every request with the route for the current classifier
// rules. A request that has started keeps the route it loaded.
type liveHandler struct {
	current atomic.Pointer[route]
}

func newLiveHandler(gen *flowchart.Generator, h http.Handler) *liveHandler {
	l := &liveHandler{}
	l.install(gen, h)
	return l
}

func (l *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.current.Load().handler.ServeHTTP(w, r)
}

// install makes gen and h the route for subsequent requests.
func (l *liveHandler) install(gen *flowchart.Generator, h http.Handler) {
	l.current.Store(&route{gen: gen, handler: h})
}

func (l *liveHandler) generator() *flowchart.Generator {
	return l.current.Load().gen
}
