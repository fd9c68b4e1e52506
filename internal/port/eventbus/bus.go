// Package eventbus defines the lifecycle event publishing port.
package eventbus

import "context"

// Subject constants for agent lifecycle events.
const (
	SubjectAgentStarted = "agents.started"
	SubjectAgentStopped = "agents.stopped"
	SubjectRunCompleted = "agents.run.completed"
	SubjectRunFailed    = "agents.run.failed"
)

// Publisher is the port interface for emitting lifecycle events.
// Publishing is best-effort; callers log failures and continue.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// AgentEvent is the payload schema for agents.* subjects.
type AgentEvent struct {
	AgentID string `json:"agent_id"`
	Type    string `json:"type"`
	State   string `json:"state,omitempty"`
	Error   string `json:"error,omitempty"`
	Manual  bool   `json:"manual,omitempty"`
}
