package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/openherd/agentd/internal/domain"
	"github.com/openherd/agentd/internal/domain/agent"
	"github.com/openherd/agentd/internal/logger"
	"github.com/openherd/agentd/internal/port/agenttype"
	"github.com/openherd/agentd/internal/port/configstore"
	"github.com/openherd/agentd/internal/resilience"
)

// entry is one catalog slot: a resolved definition plus its persisted
// configuration.
type entry struct {
	def        agenttype.Definition
	cfg        agent.Config
	configured bool
}

// Registry maintains the agent type catalog and configuration durability.
// Discovery rebuilds the catalog wholesale; configuration updates are
// read-modify-write against the whole persisted document under a
// single-writer assumption.
type Registry struct {
	source  agenttype.Source
	store   configstore.Store
	breaker *resilience.Breaker
	log     *slog.Logger
	deps    InstanceDeps

	mu      sync.RWMutex
	catalog map[string]*entry
	order   []string
	// orphans are persisted entries with no matching descriptor. They are
	// retained on every save but never exposed through the catalog.
	orphans configstore.Document
}

// NewRegistry creates a Registry over the given type source and config
// store. breaker may be nil to persist without circuit protection.
func NewRegistry(source agenttype.Source, store configstore.Store, breaker *resilience.Breaker, log *slog.Logger) *Registry {
	return &Registry{
		source:  source,
		store:   store,
		breaker: breaker,
		log:     log,
		catalog: make(map[string]*entry),
		orphans: configstore.Document{},
	}
}

// SetInstanceDeps attaches the optional collaborators wired into every
// instance the registry creates.
func (r *Registry) SetInstanceDeps(deps InstanceDeps) {
	r.deps = deps
}

// Initialize performs discovery and loads persisted configuration.
// Per-entry failures are logged and skipped; only a failing enumeration
// of the source itself is fatal.
func (r *Registry) Initialize(ctx context.Context) error {
	if err := r.Discover(ctx); err != nil {
		return fmt.Errorf("discover agent types: %w", err)
	}
	r.LoadConfiguration(ctx)
	return nil
}

// Discover enumerates the type source and rebuilds the catalog from
// scratch. A candidate that fails to resolve is logged and skipped; it
// does not abort discovery of the others. Duplicate names resolve
// last-write-wins with a warning (documented limitation).
func (r *Registry) Discover(ctx context.Context) error {
	candidates, err := r.source.List(ctx)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}

	catalog := make(map[string]*entry, len(candidates))
	order := make([]string, 0, len(candidates))

	for _, cand := range candidates {
		def, err := cand.Resolve()
		if err != nil {
			r.log.Error("agent type failed to resolve", "name", cand.Name(), "error", err)
			continue
		}
		if _, exists := catalog[def.Name]; exists {
			r.log.Warn("duplicate agent type name, last registration wins", "name", def.Name)
		} else {
			order = append(order, def.Name)
		}
		catalog[def.Name] = &entry{def: def}
	}

	r.mu.Lock()
	r.catalog = catalog
	r.order = order
	r.orphans = configstore.Document{}
	r.mu.Unlock()

	r.log.Info("agent types discovered", "count", len(catalog))
	return nil
}

// LoadConfiguration reads the persisted document and attaches matching
// entries to their descriptors. An unreadable or corrupt store is logged
// and treated as empty.
func (r *Registry) LoadConfiguration(ctx context.Context) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		r.log.Error("configuration store unreadable, treating as empty", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range doc {
		if e, ok := r.catalog[name]; ok {
			e.cfg = cfg
			e.configured = true
		} else {
			// Retained in the store on save, just not exposed.
			r.orphans[name] = cfg
		}
	}
	r.log.Info("configuration loaded", "entries", len(doc), "orphans", len(r.orphans))
}

// EnabledAgents returns, in discovery order, the names of catalog entries
// whose persisted enabled flag is not explicitly false.
func (r *Registry) EnabledAgents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.catalog[name].cfg.IsEnabled() {
			out = append(out, name)
		}
	}
	return out
}

// CreateInstance builds an instance of the named type with the persisted
// configuration overridden field-by-field by override. A fresh id is
// synthesized when id is empty.
func (r *Registry) CreateInstance(name, id string, override agent.Config) (*Instance, error) {
	r.mu.RLock()
	e, ok := r.catalog[name]
	var merged agent.Config
	var def agenttype.Definition
	if ok {
		merged = e.cfg.Merge(override)
		def = e.def
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("agent type %q: %w", name, domain.ErrNotFound)
	}

	if id == "" {
		id = fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
	}

	runner, err := def.Factory(merged, logger.ForAgent(r.log, id, name))
	if err != nil {
		return nil, fmt.Errorf("construct agent %q: %w", name, err)
	}

	return NewInstance(id, name, merged, runner, logger.ForAgent(r.log, id, name), r.deps), nil
}

// UpdateConfig merges partial into the persisted configuration for name
// and synchronously persists the entire document. A failed persist rolls
// the in-memory entry back so memory never diverges from the store.
func (r *Registry) UpdateConfig(ctx context.Context, name string, partial agent.Config) error {
	r.mu.Lock()
	e, ok := r.catalog[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("agent type %q: %w", name, domain.ErrNotFound)
	}
	prevCfg, prevConfigured := e.cfg, e.configured
	e.cfg = e.cfg.Merge(partial)
	e.configured = true
	doc := r.snapshotLocked()
	r.mu.Unlock()

	if err := r.persist(ctx, doc); err != nil {
		r.mu.Lock()
		// Restore only if discovery has not replaced the entry meanwhile.
		if cur, ok := r.catalog[name]; ok && cur == e {
			e.cfg = prevCfg
			e.configured = prevConfigured
		}
		r.mu.Unlock()
		return fmt.Errorf("persist configuration: %w", err)
	}
	return nil
}

// Enable marks the named agent enabled and persists.
func (r *Registry) Enable(ctx context.Context, name string) error {
	return r.UpdateConfig(ctx, name, agent.Config{Enabled: agent.Bool(true)})
}

// Disable marks the named agent disabled and persists.
func (r *Registry) Disable(ctx context.Context, name string) error {
	return r.UpdateConfig(ctx, name, agent.Config{Enabled: agent.Bool(false)})
}

// SetSchedule updates the schedule expression and persists. The
// expression is validated before it is stored.
func (r *Registry) SetSchedule(ctx context.Context, name, expr string) error {
	if expr != "" {
		if _, err := parseSchedule(expr); err != nil {
			return fmt.Errorf("schedule %q: %w", expr, err)
		}
	}
	return r.UpdateConfig(ctx, name, agent.Config{Schedule: expr})
}

// Config returns the persisted configuration for name.
func (r *Registry) Config(name string) (agent.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.catalog[name]
	if !ok {
		return agent.Config{}, fmt.Errorf("agent type %q: %w", name, domain.ErrNotFound)
	}
	return e.cfg, nil
}

// TypeStatus returns the read-only projection of one catalog entry.
func (r *Registry) TypeStatus(name string) (agent.TypeStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.catalog[name]
	if !ok {
		return agent.TypeStatus{}, fmt.Errorf("agent type %q: %w", name, domain.ErrNotFound)
	}
	return typeStatus(e), nil
}

// TypeStatuses returns projections of all catalog entries in discovery
// order. It does not mutate registry state.
func (r *Registry) TypeStatuses() []agent.TypeStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]agent.TypeStatus, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, typeStatus(r.catalog[name]))
	}
	return out
}

func typeStatus(e *entry) agent.TypeStatus {
	st := agent.TypeStatus{
		Name:        e.def.Name,
		Description: e.def.Metadata.Description,
		Version:     e.def.Metadata.Version,
		Category:    e.def.Metadata.Category,
		State:       agent.TypeDiscovered,
		Enabled:     e.cfg.IsEnabled(),
		Schedule:    e.cfg.Schedule,
	}
	if e.configured {
		st.State = agent.TypeConfigured
	}
	return st
}

// snapshotLocked builds the full document to persist: every configured
// entry plus the retained orphans. Caller holds r.mu.
func (r *Registry) snapshotLocked() configstore.Document {
	doc := make(configstore.Document, len(r.catalog)+len(r.orphans))
	for name, cfg := range r.orphans {
		doc[name] = cfg
	}
	for name, e := range r.catalog {
		if e.configured {
			doc[name] = e.cfg
		}
	}
	return doc
}

// persist writes the whole document, through the breaker when one is
// configured.
func (r *Registry) persist(ctx context.Context, doc configstore.Document) error {
	if r.breaker == nil {
		return r.store.Save(ctx, doc)
	}
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.store.Save(ctx, doc)
	})
}
