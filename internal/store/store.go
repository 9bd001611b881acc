package store

import (
	"context"
	"time"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Diagrams
	SaveDiagram(ctx context.Context, d *Diagram) error
	GetDiagram(ctx context.Context, id string) (*Diagram, error)
	FindByHash(ctx context.Context, hash string) (*Diagram, error)
	ListDiagrams(ctx context.Context, filter DiagramFilter) ([]*Diagram, error)
	DeleteDiagram(ctx context.Context, id string) error

	// Build log (append-only)
	AppendBuildEvent(ctx context.Context, event *BuildEvent) error
	ListBuildEvents(ctx context.Context, filter BuildEventFilter) ([]*BuildEvent, error)

	// Maintenance
	PruneBefore(ctx context.Context, cutoff time.Time) (PruneResult, error)
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
