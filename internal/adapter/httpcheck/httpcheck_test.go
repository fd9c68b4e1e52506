package httpcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openherd/agentd/internal/domain/agent"
	"github.com/openherd/agentd/internal/port/agenttype"
)

var (
	_ agenttype.Runner         = (*Check)(nil)
	_ agenttype.StatusReporter = (*Check)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(agent.Config{}, testLogger()); err == nil {
		t.Fatal("expected error for missing url option")
	}
}

func TestNewRejectsBadDurations(t *testing.T) {
	cfg := agent.Config{Options: map[string]any{
		"url":     "http://localhost",
		"timeout": "not-a-duration",
	}}
	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected error for unparseable timeout")
	}
}

func TestRunSucceedsOnExpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := agent.Config{Options: map[string]any{
		"url":           srv.URL,
		"expect_status": 204,
		"attempts":      1,
	}}
	c, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	st := c.(*Check).Status()
	if st["last_status"] != http.StatusNoContent {
		t.Errorf("expected recorded status 204, got %v", st["last_status"])
	}
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := agent.Config{Options: map[string]any{
		"url":         srv.URL,
		"attempts":    3,
		"retry_delay": "1ms",
	}}
	c, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 probe attempts, got %d", calls.Load())
	}
}

func TestRunFailsOnWrongStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := agent.Config{Options: map[string]any{
		"url":         srv.URL,
		"attempts":    2,
		"retry_delay": "1ms",
	}}
	c, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected failure for unexpected status")
	}
}
