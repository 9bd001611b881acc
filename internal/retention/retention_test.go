package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/codeflow/internal/store"
)

// mockPruner records prune calls.
type mockPruner struct {
	mu       sync.Mutex
	cutoffs  []time.Time
	vacuums  int
	result   store.PruneResult
	pruneErr error
}

func (m *mockPruner) PruneBefore(_ context.Context, cutoff time.Time) (store.PruneResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	return m.result, m.pruneErr
}

func (m *mockPruner) Vacuum(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vacuums++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDefaultsSchedule(t *testing.T) {
	r, err := New(&mockPruner{}, Config{MaxAge: time.Hour}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, r.schedule)

	from := time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC), r.NextRun(from))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(&mockPruner{}, Config{MaxAge: time.Hour, Schedule: "every tuesday"}, testLogger())
	assert.Error(t, err)

	_, err = New(&mockPruner{}, Config{MaxAge: -time.Hour}, testLogger())
	assert.Error(t, err)
}

func TestCronExpressionSchedule(t *testing.T) {
	r, err := New(&mockPruner{}, Config{MaxAge: time.Hour, Schedule: "30 3 * * *"}, testLogger())
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 30, 0, 0, time.UTC), r.NextRun(from))
}

func TestRunOnceUsesMaxAge(t *testing.T) {
	p := &mockPruner{result: store.PruneResult{Diagrams: 2, Events: 5}}
	r, err := New(p, Config{MaxAge: 24 * time.Hour}, testLogger())
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Diagrams)

	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoffs[0])
	assert.Equal(t, 1, p.vacuums)
}

func TestRunOnceSkipsVacuumWhenNothingPruned(t *testing.T) {
	p := &mockPruner{}
	r, err := New(p, Config{MaxAge: time.Hour}, testLogger())
	require.NoError(t, err)

	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, p.vacuums)
}

func TestRunOnceWrapsStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	r, err := New(&mockPruner{pruneErr: boom}, Config{MaxAge: time.Hour}, testLogger())
	require.NoError(t, err)

	_, err = r.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDisabledRetention(t *testing.T) {
	p := &mockPruner{}
	r, err := New(p, Config{}, testLogger())
	require.NoError(t, err)
	assert.False(t, r.Enabled())

	require.NoError(t, r.Start(context.Background()))
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p.cutoffs)
	r.Stop()
}

func TestStartStop(t *testing.T) {
	r, err := New(&mockPruner{}, Config{MaxAge: time.Hour, Schedule: "@every 1h"}, testLogger())
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "second start should fail")
	r.Stop()
	r.Stop()
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}

func TestRetentionAgainstLibSQL(t *testing.T) {
	s, err := store.NewLibSQLStore("file:" + t.TempDir() + "/retention.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	now := time.Now().UTC()
	require.NoError(t, s.SaveDiagram(ctx, &store.Diagram{ID: "old", SourceHash: "h-old", CreatedAt: now.Add(-72 * time.Hour)}))
	require.NoError(t, s.SaveDiagram(ctx, &store.Diagram{ID: "new", SourceHash: "h-new", CreatedAt: now}))

	r, err := New(s, Config{MaxAge: 24 * time.Hour}, testLogger())
	require.NoError(t, err)

	res, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Diagrams)

	_, err = s.GetDiagram(ctx, "new")
	require.NoError(t, err)
}
