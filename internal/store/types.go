package store

import "time"

// Diagram is a stored flowchart together with the source it was built from.
type Diagram struct {
	ID         string    `json:"id"`
	SourceHash string    `json:"source_hash"`
	Source     string    `json:"source"`
	Mermaid    string    `json:"mermaid"`
	Wrapping   string    `json:"wrapping"`
	NodeCount  int       `json:"node_count"`
	EdgeCount  int       `json:"edge_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// DiagramFilter narrows ListDiagrams. Zero values mean no restriction.
type DiagramFilter struct {
	Since  *time.Time
	Limit  int
	Offset int
}

// BuildOutcome classifies a generation attempt.
type BuildOutcome string

const (
	OutcomeOK             BuildOutcome = "ok"
	OutcomeCached         BuildOutcome = "cached"
	OutcomeSyntaxError    BuildOutcome = "syntax_error"
	OutcomeTraversalError BuildOutcome = "traversal_error"
	OutcomeRejected       BuildOutcome = "rejected"
)

// BuildEvent records one generation attempt.
type BuildEvent struct {
	ID         int64        `json:"id"`
	RequestID  string       `json:"request_id,omitempty"`
	DiagramID  string       `json:"diagram_id,omitempty"`
	SourceHash string       `json:"source_hash"`
	Outcome    BuildOutcome `json:"outcome"`
	Message    string       `json:"message,omitempty"`
	DurationMs int64        `json:"duration_ms"`
	CreatedAt  time.Time    `json:"created_at"`
}

// BuildEventFilter narrows ListBuildEvents.
type BuildEventFilter struct {
	Outcome BuildOutcome
	Since   *time.Time
	Limit   int
}

// PruneResult reports how many rows a prune removed.
type PruneResult struct {
	Diagrams int64 `json:"diagrams"`
	Events   int64 `json:"events"`
}
