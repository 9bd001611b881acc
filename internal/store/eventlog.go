package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// AppendBuildEvent appends event to the build log and sets its ID.
func (s *LibSQLStore) AppendBuildEvent(ctx context.Context, event *BuildEvent) error {
	event.CreatedAt = timeOrNow(event.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO build_events (request_id, diagram_id, source_hash, outcome, message, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullStr(event.RequestID), nullStr(event.DiagramID), event.SourceHash,
		string(event.Outcome), nullStr(event.Message), event.DurationMs, event.CreatedAt,
	)
	if err != nil {
		return storeError("append build event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeError("append build event", err)
	}
	event.ID = id
	return nil
}

// ListBuildEvents returns build events newest first.
func (s *LibSQLStore) ListBuildEvents(ctx context.Context, filter BuildEventFilter) ([]*BuildEvent, error) {
	var where []string
	var args []any

	if filter.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}

	query := "SELECT id, request_id, diagram_id, source_hash, outcome, message, duration_ms, created_at FROM build_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list build events", err)
	}
	defer rows.Close()

	var events []*BuildEvent
	for rows.Next() {
		e := &BuildEvent{}
		var requestID, diagramID, message sql.NullString
		var outcome string
		if err := rows.Scan(&e.ID, &requestID, &diagramID, &e.SourceHash, &outcome, &message, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, storeError("scan build event", err)
		}
		e.RequestID = requestID.String
		e.DiagramID = diagramID.String
		e.Message = message.String
		e.Outcome = BuildOutcome(outcome)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list build events", err)
	}
	return events, nil
}
