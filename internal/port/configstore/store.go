// Package configstore defines the durable configuration store port.
package configstore

import (
	"context"

	"github.com/openherd/agentd/internal/domain/agent"
)

// Document is the whole persisted configuration: agent name → config.
type Document map[string]agent.Config

// Store is the port interface for configuration durability. The store is
// a single-writer read-whole/write-whole target: every update reads the
// full document, applies its change, and writes the full document back.
type Store interface {
	// Load reads the entire configuration document. A missing document
	// yields an empty Document, not an error.
	Load(ctx context.Context) (Document, error)

	// Save atomically replaces the entire configuration document.
	Save(ctx context.Context, doc Document) error
}
