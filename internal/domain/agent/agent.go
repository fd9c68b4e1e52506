// Package agent defines the agent domain entities: lifecycle states,
// persisted configuration, and status projections.
package agent

import "time"

// State represents the lifecycle state of an agent instance.
type State string

const (
	StateIdle    State = "idle"    // created, never started
	StateRunning State = "running" // schedule active or a run in flight
	StateStopped State = "stopped" // trigger cancelled, resources released
)

// TypeState represents the catalog state of a discovered agent type.
type TypeState string

const (
	TypeDiscovered TypeState = "discovered"
	TypeConfigured TypeState = "configured" // persisted configuration attached
)

// Status is the read-only projection of one agent instance.
type Status struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	State      State          `json:"state"`
	Schedule   string         `json:"schedule,omitempty"`
	LastRunAt  time.Time      `json:"last_run_at,omitzero"`
	RunCount   int64          `json:"run_count"`
	ErrorCount int64          `json:"error_count"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// TypeStatus is the read-only projection of one catalog entry.
type TypeStatus struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     string    `json:"version,omitempty"`
	Category    string    `json:"category,omitempty"`
	State       TypeState `json:"state"`
	Enabled     bool      `json:"enabled"`
	Schedule    string    `json:"schedule,omitempty"`
}

// Run is one recorded execution of an agent instance.
type Run struct {
	ID         int64     `json:"id"`
	AgentID    string    `json:"agent_id"`
	Type       string    `json:"type"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Manual     bool      `json:"manual"`
	Error      string    `json:"error,omitempty"`
}
