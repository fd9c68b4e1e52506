package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/openherd/agentd/internal/domain"
	"github.com/openherd/agentd/internal/domain/agent"
	"github.com/openherd/agentd/internal/port/agenttype"
	"github.com/openherd/agentd/internal/port/configstore"
)

func runnerDef(name string, capture *agent.Config) agenttype.Definition {
	return agenttype.Definition{
		Name: name,
		Factory: func(cfg agent.Config, _ *slog.Logger) (agenttype.Runner, error) {
			if capture != nil {
				*capture = cfg
			}
			return &mockRunner{}, nil
		},
	}
}

func TestDiscoverIsolatesMalformedCandidates(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{
		runnerDef("good-one", nil),
		{Name: "broken"}, // nil factory: fails to resolve
		runnerDef("good-two", nil),
	}}
	reg := NewRegistry(source, &mockStore{}, nil, testLogger())

	if err := reg.Discover(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := reg.TypeStatuses()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(statuses))
	}
	if statuses[0].Name != "good-one" || statuses[1].Name != "good-two" {
		t.Fatalf("unexpected catalog order: %+v", statuses)
	}
}

func TestDiscoverDuplicateNameLastWriteWins(t *testing.T) {
	var captured agent.Config
	source := &mockSource{defs: []agenttype.Definition{
		runnerDef("dup", nil),
		{
			Name: "dup",
			Factory: func(cfg agent.Config, _ *slog.Logger) (agenttype.Runner, error) {
				captured = cfg
				return &mockRunner{failing: true}, nil
			},
		},
	}}
	reg := NewRegistry(source, &mockStore{}, nil, testLogger())

	if err := reg.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(reg.TypeStatuses()); got != 1 {
		t.Fatalf("expected 1 descriptor, got %d", got)
	}

	inst, err := reg.CreateInstance("dup", "", agent.Config{Options: map[string]any{"probe": true}})
	if err != nil {
		t.Fatal(err)
	}
	if captured.Options["probe"] != true {
		t.Error("expected the last registered factory to be invoked")
	}
	if inst == nil {
		t.Fatal("expected instance")
	}
}

func TestLoadConfigurationAttachesAndRetainsOrphans(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{runnerDef("known", nil)}}
	store := &mockStore{doc: configstore.Document{
		"known":  {Schedule: "*/5 * * * *"},
		"orphan": {Enabled: agent.Bool(false)},
	}}
	reg := NewRegistry(source, store, nil, testLogger())

	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	st, err := reg.TypeStatus("known")
	if err != nil {
		t.Fatal(err)
	}
	if st.State != agent.TypeConfigured {
		t.Errorf("expected configured state, got %s", st.State)
	}
	if st.Schedule != "*/5 * * * *" {
		t.Errorf("unexpected schedule %q", st.Schedule)
	}

	// Orphans never surface in the catalog…
	if _, err := reg.TypeStatus("orphan"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for orphan, got %v", err)
	}

	// …but survive the next save.
	if err := reg.Disable(context.Background(), "known"); err != nil {
		t.Fatal(err)
	}
	saved := store.lastSave()
	if _, ok := saved["orphan"]; !ok {
		t.Error("expected orphan entry retained in persisted document")
	}
}

func TestLoadConfigurationCorruptStoreTreatedAsEmpty(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{runnerDef("known", nil)}}
	store := &mockStore{loadErr: errors.New("corrupt")}
	reg := NewRegistry(source, store, nil, testLogger())

	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatalf("corrupt store must not fail initialize: %v", err)
	}

	st, _ := reg.TypeStatus("known")
	if st.State != agent.TypeDiscovered {
		t.Errorf("expected discovered state, got %s", st.State)
	}
}

func TestCreateInstanceMergesPersistedAndOverride(t *testing.T) {
	var captured agent.Config
	source := &mockSource{defs: []agenttype.Definition{runnerDef("merge-me", &captured)}}
	store := &mockStore{doc: configstore.Document{
		"merge-me": {Schedule: "0 * * * *", Options: map[string]any{"x": 1}},
	}}
	reg := NewRegistry(source, store, nil, testLogger())
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	inst, err := reg.CreateInstance("merge-me", "", agent.Config{Options: map[string]any{"x": 2}})
	if err != nil {
		t.Fatal(err)
	}

	if captured.Schedule != "0 * * * *" {
		t.Errorf("expected persisted schedule kept, got %q", captured.Schedule)
	}
	if captured.Options["x"] != 2 {
		t.Errorf("expected override x=2, got %v", captured.Options["x"])
	}
	if inst.ID() == "" || inst.TypeName() != "merge-me" {
		t.Errorf("unexpected identity: id=%q type=%q", inst.ID(), inst.TypeName())
	}
}

func TestCreateInstanceUnknownType(t *testing.T) {
	reg := NewRegistry(&mockSource{}, &mockStore{}, nil, testLogger())
	_ = reg.Discover(context.Background())

	_, err := reg.CreateInstance("ghost", "", agent.Config{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDisableIsIdempotent(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{runnerDef("switchable", nil)}}
	store := &mockStore{}
	reg := NewRegistry(source, store, nil, testLogger())
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if err := reg.Disable(context.Background(), "switchable"); err != nil {
			t.Fatalf("disable errored: %v", err)
		}
	}

	saved := store.lastSave()
	cfg, ok := saved["switchable"]
	if !ok {
		t.Fatal("expected switchable persisted")
	}
	if cfg.IsEnabled() {
		t.Error("expected enabled=false after disable")
	}
	if got := reg.EnabledAgents(); len(got) != 0 {
		t.Errorf("expected no enabled agents, got %v", got)
	}
}

func TestUpdateConfigPersistsWholeDocument(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{
		runnerDef("alpha", nil),
		runnerDef("beta", nil),
	}}
	store := &mockStore{doc: configstore.Document{"alpha": {Schedule: "@hourly"}}}
	reg := NewRegistry(source, store, nil, testLogger())
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := reg.UpdateConfig(context.Background(), "beta", agent.Config{Options: map[string]any{"k": "v"}}); err != nil {
		t.Fatal(err)
	}

	saved := store.lastSave()
	if _, ok := saved["alpha"]; !ok {
		t.Error("expected alpha retained in whole-document save")
	}
	if saved["beta"].Options["k"] != "v" {
		t.Error("expected beta update persisted")
	}
}

func TestUpdateConfigRollsBackOnPersistFailure(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{runnerDef("flappy", nil)}}
	store := &mockStore{doc: configstore.Document{"flappy": {Schedule: "@hourly"}}}
	reg := NewRegistry(source, store, nil, testLogger())
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	store.saveErr = errors.New("disk full")
	err := reg.UpdateConfig(context.Background(), "flappy", agent.Config{Schedule: "@daily"})
	if err == nil {
		t.Fatal("expected persist failure surfaced")
	}

	// Memory must still match the durable document.
	cfg, err := reg.Config("flappy")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Schedule != "@hourly" {
		t.Errorf("expected schedule rolled back to @hourly, got %q", cfg.Schedule)
	}

	// The same holds for an entry that was never configured before.
	source.defs = []agenttype.Definition{runnerDef("fresh", nil)}
	if err := reg.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := reg.UpdateConfig(context.Background(), "fresh", agent.Config{Schedule: "@daily"}); err == nil {
		t.Fatal("expected persist failure surfaced")
	}
	st, err := reg.TypeStatus("fresh")
	if err != nil {
		t.Fatal(err)
	}
	if st.State != agent.TypeDiscovered {
		t.Errorf("expected entry back to discovered after failed persist, got %s", st.State)
	}
}

func TestSetScheduleRejectsInvalidExpression(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{runnerDef("cronish", nil)}}
	store := &mockStore{}
	reg := NewRegistry(source, store, nil, testLogger())
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := reg.SetSchedule(context.Background(), "cronish", "not a cron"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if store.lastSave() != nil {
		t.Error("invalid schedule must not be persisted")
	}

	if err := reg.SetSchedule(context.Background(), "cronish", "*/10 * * * *"); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}
}

func TestRediscoveryRebuildsCatalogWholesale(t *testing.T) {
	source := &mockSource{defs: []agenttype.Definition{runnerDef("old", nil)}}
	reg := NewRegistry(source, &mockStore{}, nil, testLogger())
	if err := reg.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}

	source.defs = []agenttype.Definition{runnerDef("new", nil)}
	if err := reg.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.TypeStatus("old"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("expected old entry gone after rediscovery")
	}
	if _, err := reg.TypeStatus("new"); err != nil {
		t.Errorf("expected new entry present: %v", err)
	}
}
