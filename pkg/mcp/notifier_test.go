package mcp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/codeflow/internal/streaming"
)

type recordingSender struct {
	mu    sync.Mutex
	calls []map[string]any
}

func (r *recordingSender) SendNotificationToAllClients(method string, params map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	params["method"] = method
	r.calls = append(r.calls, params)
}

func (r *recordingSender) snapshot() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.calls...)
}

func TestBuildNotifierRelaysEvents(t *testing.T) {
	hub := streaming.NewMemoryHub()
	sender := &recordingSender{}
	n := &BuildNotifier{sender: sender, hub: hub}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, streaming.BuildEvent{Outcome: "ok", DiagramID: "d-1"}))
	require.NoError(t, hub.Publish(ctx, streaming.BuildEvent{Outcome: "syntax_error"}))

	require.Eventually(t, func() bool { return len(sender.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	calls := sender.snapshot()
	assert.Equal(t, "notifications/message", calls[0]["method"])
	assert.Equal(t, "info", calls[0]["level"])
	assert.Equal(t, "d-1", calls[0]["data"].(streaming.BuildEvent).DiagramID)
	assert.Equal(t, "warning", calls[1]["level"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop")
	}
	assert.Equal(t, 0, hub.Subscribers())
}
