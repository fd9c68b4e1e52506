// Package agenttype defines the execution contract every agent type
// implements and the pluggable source that discovers type definitions.
package agenttype

import (
	"context"
	"log/slog"

	"github.com/openherd/agentd/internal/domain/agent"
)

// Runner is the capability every agent type must implement: a single run
// operation. The body is expected to be I/O-bound and respect ctx.
type Runner interface {
	Run(ctx context.Context) error
}

// StatusReporter is an optional capability that extends the base status
// projection with type-specific fields.
type StatusReporter interface {
	Status() map[string]any
}

// Closer is an optional lifecycle hook invoked once, when the owning
// instance is torn down at daemon shutdown. A plain stop does not close
// the runner: a stopped instance may be started again.
type Closer interface {
	Close() error
}

// Factory produces a Runner from a merged configuration and a logger
// scoped to the owning instance.
type Factory func(cfg agent.Config, log *slog.Logger) (Runner, error)

// OptionSpec declares one configuration option of an agent type.
type OptionSpec struct {
	Type        string `json:"type"`
	Default     any    `json:"default,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// Metadata describes a discoverable agent type.
type Metadata struct {
	Description  string                `json:"description,omitempty"`
	Version      string                `json:"version,omitempty"`
	Category     string                `json:"category,omitempty"`
	Options      map[string]OptionSpec `json:"options,omitempty"`
	Dependencies []string              `json:"dependencies,omitempty"`
}

// Definition is a resolved agent type: a unique name, its metadata, and
// the factory that instantiates it.
type Definition struct {
	Name     string
	Metadata Metadata
	Factory  Factory
}

// Candidate is one enumerated, not-yet-resolved type definition. Resolve
// may fail without affecting other candidates.
type Candidate interface {
	Name() string
	Resolve() (Definition, error)
}

// Source enumerates candidate agent type definitions. Implementations may
// back it with a compiled registration table, a plugin directory, or
// dependency injection.
type Source interface {
	List(ctx context.Context) ([]Candidate, error)
}
