package flowchart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_builds_total",
		Help: "Total diagram generations by outcome",
	}, []string{"outcome"})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codeflow_build_duration_seconds",
		Help:    "Duration of parse plus build for uncached generations",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	diagramNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codeflow_diagram_nodes",
		Help:    "Number of nodes per successfully built diagram",
		Buckets: []float64{2, 5, 10, 25, 50, 100, 250, 1000},
	})

	renderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeflow_renders_total",
		Help: "Total render requests by output format",
	}, []string{"format"})
)
