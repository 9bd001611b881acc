// Package streaming fans generation events out to live subscribers.
package streaming

import "context"

// BuildEvent is a real-time notice that a generation finished.
type BuildEvent struct {
	RequestID  string `json:"request_id,omitempty"`
	DiagramID  string `json:"diagram_id,omitempty"`
	Outcome    string `json:"outcome"`
	Nodes      int    `json:"nodes,omitempty"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Filter specifies which events a subscriber wants to receive. Empty fields
// match everything.
type Filter struct {
	DiagramID string   `json:"diagram_id,omitempty"`
	Outcomes  []string `json:"outcomes,omitempty"`
}

// Hub provides pub/sub for build events.
type Hub interface {
	Publish(ctx context.Context, event BuildEvent) error
	Subscribe(ctx context.Context, filter Filter) (<-chan BuildEvent, func(), error)
}
