package agenttype

import (
	"context"
	"log/slog"
	"testing"

	"github.com/openherd/agentd/internal/domain/agent"
)

type nopRunner struct{}

func (nopRunner) Run(context.Context) error { return nil }

func TestTableListAndResolve(t *testing.T) {
	tbl := &Table{}
	tbl.Register(Definition{
		Name: "echo",
		Factory: func(agent.Config, *slog.Logger) (Runner, error) {
			return nopRunner{}, nil
		},
	})

	cands, err := tbl.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Name() != "echo" {
		t.Fatalf("expected echo, got %s", cands[0].Name())
	}

	def, err := cands[0].Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if def.Factory == nil {
		t.Fatal("expected non-nil factory")
	}
}

func TestResolveRejectsMalformedDefinitions(t *testing.T) {
	tbl := &Table{}
	tbl.Register(Definition{Name: "no-factory"})
	tbl.Register(Definition{Factory: func(agent.Config, *slog.Logger) (Runner, error) {
		return nopRunner{}, nil
	}})

	cands, err := tbl.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		if _, err := c.Resolve(); err == nil {
			t.Errorf("expected resolve failure for candidate %q", c.Name())
		}
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	tbl := &Table{}
	for _, name := range []string{"a", "b", "c"} {
		tbl.Register(Definition{Name: name, Factory: func(agent.Config, *slog.Logger) (Runner, error) {
			return nopRunner{}, nil
		}})
	}

	cands, _ := tbl.List(context.Background())
	for i, want := range []string{"a", "b", "c"} {
		if cands[i].Name() != want {
			t.Errorf("position %d: expected %s, got %s", i, want, cands[i].Name())
		}
	}
}
