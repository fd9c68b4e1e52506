// Package runstore defines the execution-history store port.
package runstore

import (
	"context"

	"github.com/openherd/agentd/internal/domain/agent"
)

// Store is the port interface for recording and querying agent runs.
// Recording is best-effort; the execution engine logs append failures and
// keeps running.
type Store interface {
	// Append records one finished run.
	Append(ctx context.Context, run *agent.Run) error

	// ListByAgent returns the most recent runs for an agent id, newest
	// first, up to limit.
	ListByAgent(ctx context.Context, agentID string, limit int) ([]agent.Run, error)
}
