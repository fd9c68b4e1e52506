package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/openherd/agentd/internal/port/agenttype"
	"github.com/openherd/agentd/internal/port/configstore"
)

// Ensure mock types implement their interfaces at compile time.
var (
	_ configstore.Store = (*mockStore)(nil)
	_ agenttype.Source  = (*mockSource)(nil)
	_ agenttype.Runner  = (*mockRunner)(nil)
)

var errBody = errors.New("body exploded")

type mockStore struct {
	mu      sync.Mutex
	doc     configstore.Document
	loadErr error
	saveErr error
	saves   []configstore.Document
}

func (m *mockStore) Load(context.Context) (configstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.doc == nil {
		return configstore.Document{}, nil
	}
	return m.doc, nil
}

func (m *mockStore) Save(_ context.Context, doc configstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = doc
	m.saves = append(m.saves, doc)
	return nil
}

func (m *mockStore) lastSave() configstore.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

// mockSource yields fixed candidates; candidates with a nil factory fail
// to resolve.
type mockSource struct {
	defs    []agenttype.Definition
	listErr error
}

func (m *mockSource) List(context.Context) ([]agenttype.Candidate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]agenttype.Candidate, len(m.defs))
	for i, def := range m.defs {
		out[i] = mockCandidate{def: def}
	}
	return out, nil
}

type mockCandidate struct {
	def agenttype.Definition
}

func (c mockCandidate) Name() string { return c.def.Name }

func (c mockCandidate) Resolve() (agenttype.Definition, error) {
	if c.def.Factory == nil {
		return agenttype.Definition{}, errors.New("malformed definition")
	}
	return c.def, nil
}

// mockRunner counts invocations and fails when failing is set.
type mockRunner struct {
	mu      sync.Mutex
	calls   int
	failing bool
}

func (m *mockRunner) Run(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failing {
		return errBody
	}
	return nil
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
