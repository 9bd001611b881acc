package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/codeflow/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

var _ Store = (*LibSQLStore)(nil)

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Diagrams ---

const diagramColumns = "id, source_hash, source, mermaid, wrapping, node_count, edge_count, created_at"

// SaveDiagram inserts d. When a diagram with the same source hash already
// exists, nothing is written and d is updated to the stored row's ID and
// CreatedAt.
func (s *LibSQLStore) SaveDiagram(ctx context.Context, d *Diagram) error {
	d.CreatedAt = timeOrNow(d.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO diagrams (`+diagramColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_hash) DO NOTHING`,
		d.ID, d.SourceHash, d.Source, d.Mermaid, d.Wrapping, d.NodeCount, d.EdgeCount, d.CreatedAt,
	)
	if err != nil {
		return storeError("save diagram", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("save diagram", err)
	}
	if n > 0 {
		return nil
	}

	existing, err := s.FindByHash(ctx, d.SourceHash)
	if err != nil {
		return err
	}
	d.ID = existing.ID
	d.CreatedAt = existing.CreatedAt
	return nil
}

func (s *LibSQLStore) GetDiagram(ctx context.Context, id string) (*Diagram, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+diagramColumns+` FROM diagrams WHERE id = ?`, id)
	d, err := scanDiagram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("diagram", id)
	}
	if err != nil {
		return nil, storeError("get diagram", err)
	}
	return d, nil
}

func (s *LibSQLStore) FindByHash(ctx context.Context, hash string) (*Diagram, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+diagramColumns+` FROM diagrams WHERE source_hash = ?`, hash)
	d, err := scanDiagram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("diagram with hash", hash)
	}
	if err != nil {
		return nil, storeError("find diagram", err)
	}
	return d, nil
}

func (s *LibSQLStore) ListDiagrams(ctx context.Context, filter DiagramFilter) ([]*Diagram, error) {
	var where []string
	var args []any

	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}

	query := "SELECT " + diagramColumns + " FROM diagrams"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list diagrams", err)
	}
	defer rows.Close()

	var diagrams []*Diagram
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, storeError("scan diagram", err)
		}
		diagrams = append(diagrams, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list diagrams", err)
	}
	return diagrams, nil
}

func (s *LibSQLStore) DeleteDiagram(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM diagrams WHERE id = ?`, id)
	if err != nil {
		return storeError("delete diagram", err)
	}
	return checkRowsAffected(res, "diagram", id)
}

// --- Maintenance ---

// PruneBefore deletes diagrams and build events created before cutoff.
func (s *LibSQLStore) PruneBefore(ctx context.Context, cutoff time.Time) (PruneResult, error) {
	var out PruneResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, storeError("begin prune", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM diagrams WHERE created_at < ?`, cutoff)
	if err != nil {
		return out, storeError("prune diagrams", err)
	}
	if out.Diagrams, err = res.RowsAffected(); err != nil {
		return out, storeError("prune diagrams", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM build_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return out, storeError("prune build events", err)
	}
	if out.Events, err = res.RowsAffected(); err != nil {
		return out, storeError("prune build events", err)
	}

	if err := tx.Commit(); err != nil {
		return PruneResult{}, storeError("commit prune", err)
	}
	return out, nil
}

// --- Helpers ---

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagram(r rowScanner) (*Diagram, error) {
	d := &Diagram{}
	if err := r.Scan(&d.ID, &d.SourceHash, &d.Source, &d.Mermaid, &d.Wrapping,
		&d.NodeCount, &d.EdgeCount, &d.CreatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func storeNotFound(resource, id string) *schema.CodeflowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeError(op string, err error) *schema.CodeflowError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s failed", op).WithCause(err)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
