package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openherd/agentd/internal/domain"
	"github.com/openherd/agentd/internal/domain/agent"
)

// Manager is the top-level orchestrator and the single source of truth
// for what is currently running. It owns the live instance map
// exclusively: only the Manager removes entries, and only during
// Shutdown.
type Manager struct {
	registry *Registry
	log      *slog.Logger

	mu      sync.RWMutex
	agents  map[string]*Instance
	running bool
}

// NewManager creates a Manager over the given registry.
func NewManager(registry *Registry, log *slog.Logger) *Manager {
	return &Manager{
		registry: registry,
		log:      log,
		agents:   make(map[string]*Instance),
	}
}

// Registry exposes the underlying registry for catalog projections.
func (m *Manager) Registry() *Registry { return m.registry }

// Initialize delegates to the registry and marks the manager running.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.registry.Initialize(ctx); err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	return nil
}

// LoadAgents creates and starts one instance per enabled catalog entry,
// keyed by its catalog name. A failure to create or start one agent is
// logged and does not prevent loading the remaining agents.
func (m *Manager) LoadAgents(ctx context.Context) {
	for _, name := range m.registry.EnabledAgents() {
		inst, err := m.registry.CreateInstance(name, "", agent.Config{})
		if err != nil {
			m.log.Error("create agent failed", "name", name, "error", err)
			continue
		}

		m.mu.Lock()
		m.agents[name] = inst
		m.mu.Unlock()

		if err := inst.Start(ctx); err != nil {
			m.log.Error("start agent failed", "name", name, "error", err)
		}
	}

	m.log.Info("agents loaded", "count", len(m.AllAgentStatuses()))
}

// CreateAgent instantiates the named type out-of-band (dashboard-driven
// creation), stores it under its instance id, and starts it when
// autostart is set.
func (m *Manager) CreateAgent(ctx context.Context, typeName, id string, override agent.Config, autostart bool) (agent.Status, error) {
	inst, err := m.registry.CreateInstance(typeName, id, override)
	if err != nil {
		return agent.Status{}, err
	}

	m.mu.Lock()
	if _, exists := m.agents[inst.ID()]; exists {
		m.mu.Unlock()
		return agent.Status{}, fmt.Errorf("agent id %q already exists", inst.ID())
	}
	m.agents[inst.ID()] = inst
	m.mu.Unlock()

	if autostart {
		if err := inst.Start(ctx); err != nil {
			m.log.Error("start created agent failed", "id", inst.ID(), "error", err)
		}
	}
	return inst.Status(), nil
}

// StartAgent starts the identified instance. An unknown id is a logged
// no-op.
func (m *Manager) StartAgent(ctx context.Context, id string) error {
	inst, ok := m.lookup(id)
	if !ok {
		m.log.Warn("start requested for unknown agent", "id", id)
		return nil
	}
	return inst.Start(ctx)
}

// StopAgent stops the identified instance. An unknown id is a logged
// no-op.
func (m *Manager) StopAgent(ctx context.Context, id string) error {
	inst, ok := m.lookup(id)
	if !ok {
		m.log.Warn("stop requested for unknown agent", "id", id)
		return nil
	}
	return inst.Stop(ctx)
}

// RunAgentNow triggers an out-of-band execution. Unlike scheduled runs,
// the body's error is propagated to the caller.
func (m *Manager) RunAgentNow(ctx context.Context, id string) error {
	inst, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("agent %q: %w", id, domain.ErrNotFound)
	}
	return inst.RunNow(ctx)
}

// EnableAgent delegates to the registry. The change takes effect on the
// next explicit start; a running instance is not restarted.
func (m *Manager) EnableAgent(ctx context.Context, name string) error {
	if err := m.registry.Enable(ctx, name); err != nil {
		return err
	}
	m.log.Info("agent enabled", "name", name)
	return nil
}

// DisableAgent delegates to the registry. A running instance keeps
// running until explicitly stopped.
func (m *Manager) DisableAgent(ctx context.Context, name string) error {
	if err := m.registry.Disable(ctx, name); err != nil {
		return err
	}
	m.log.Info("agent disabled", "name", name)
	return nil
}

// UpdateAgentConfig merges the partial configuration and persists it.
// The new configuration applies on the next explicit start.
func (m *Manager) UpdateAgentConfig(ctx context.Context, name string, partial agent.Config) error {
	if err := m.registry.UpdateConfig(ctx, name, partial); err != nil {
		return err
	}
	m.log.Info("agent configuration updated", "name", name)
	return nil
}

// AgentStatus returns the projection of one instance.
func (m *Manager) AgentStatus(id string) (agent.Status, error) {
	inst, ok := m.lookup(id)
	if !ok {
		return agent.Status{}, fmt.Errorf("agent %q: %w", id, domain.ErrNotFound)
	}
	return inst.Status(), nil
}

// AllAgentStatuses returns projections of every tracked instance, sorted
// by id for stable output.
func (m *Manager) AllAgentStatuses() []agent.Status {
	m.mu.RLock()
	instances := make([]*Instance, 0, len(m.agents))
	for _, inst := range m.agents {
		instances = append(instances, inst)
	}
	m.mu.RUnlock()

	out := make([]agent.Status, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Status())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// RegistryStatuses returns the catalog projection.
func (m *Manager) RegistryStatuses() []agent.TypeStatus {
	return m.registry.TypeStatuses()
}

// Running reports whether the manager has been initialized and not yet
// shut down.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Shutdown tears every tracked instance down concurrently (best-effort:
// one failing teardown does not block the others), closing runners that
// hold resources, then clears the instance map and marks the manager
// not-running. Calling Shutdown twice is safe.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if !m.running && len(m.agents) == 0 {
		m.mu.Unlock()
		return
	}
	agents := m.agents
	m.agents = make(map[string]*Instance)
	m.running = false
	m.mu.Unlock()

	var g errgroup.Group
	for id, inst := range agents {
		g.Go(func() error {
			if err := inst.Shutdown(ctx); err != nil {
				m.log.Error("stop during shutdown failed", "id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	m.log.Info("manager shut down", "stopped", len(agents))
}

func (m *Manager) lookup(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.agents[id]
	return inst, ok
}
