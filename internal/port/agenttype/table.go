package agenttype

import (
	"context"
	"fmt"
	"sync"
)

// Table is a compiled registration table implementing Source. Agent type
// packages register their definitions at wiring time; the process-wide
// Default table is what main wires into the registry.
type Table struct {
	mu   sync.RWMutex
	defs []Definition
}

// Default is the process-wide registration table.
var Default = &Table{}

// Register adds a definition to the table. Duplicate names are allowed
// here; the registry resolves them last-write-wins during discovery.
func (t *Table) Register(def Definition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defs = append(t.defs, def)
}

// Register adds a definition to the Default table.
func Register(def Definition) { Default.Register(def) }

// List returns one candidate per registered definition, in registration
// order.
func (t *Table) List(_ context.Context) ([]Candidate, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Candidate, len(t.defs))
	for i, def := range t.defs {
		out[i] = tableCandidate{def: def}
	}
	return out, nil
}

type tableCandidate struct {
	def Definition
}

func (c tableCandidate) Name() string { return c.def.Name }

// Resolve validates the definition. A registration with no name or no
// factory is malformed and fails here, not during enumeration.
func (c tableCandidate) Resolve() (Definition, error) {
	if c.def.Name == "" {
		return Definition{}, fmt.Errorf("agenttype: definition has empty name")
	}
	if c.def.Factory == nil {
		return Definition{}, fmt.Errorf("agenttype: definition %q has nil factory", c.def.Name)
	}
	return c.def, nil
}
