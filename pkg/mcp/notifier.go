package mcp

import (
	"context"

	"github.com/rendis/codeflow/internal/streaming"
)

// notificationSender is the subset of *server.MCPServer the notifier needs.
type notificationSender interface {
	SendNotificationToAllClients(method string, params map[string]any)
}

// BuildNotifier relays build events from a hub to connected MCP clients as
// notifications/message.
type BuildNotifier struct {
	sender notificationSender
	hub    streaming.Hub
}

// NewBuildNotifier creates a notifier for the server's clients.
func NewBuildNotifier(s *CodeflowServer, hub streaming.Hub) *BuildNotifier {
	return &BuildNotifier{sender: s.mcpServer, hub: hub}
}

// Run forwards events until ctx is cancelled or the subscription closes.
// Best-effort: clients that are gone simply miss the notification.
func (n *BuildNotifier) Run(ctx context.Context) error {
	ch, cancel, err := n.hub.Subscribe(ctx, streaming.Filter{})
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			n.sender.SendNotificationToAllClients("notifications/message", notificationPayload(event))
		}
	}
}

func notificationPayload(e streaming.BuildEvent) map[string]any {
	level := "info"
	if e.Outcome != "ok" && e.Outcome != "cached" {
		level = "warning"
	}
	return map[string]any{
		"level":  level,
		"logger": "codeflow.builds",
		"data":   e,
	}
}
