// Package broadcast defines the port for pushing events to connected
// dashboard clients.
package broadcast

import "context"

// Broadcaster pushes a typed event to every connected client.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
