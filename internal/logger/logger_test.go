package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	h := newAsyncHandler(inner, 16)
	log := slog.New(h)

	for range 5 {
		log.Info("hello")
	}
	h.Close()

	if buf.Len() == 0 {
		t.Fatal("expected records flushed before Close returned")
	}
	if h.Dropped() != 0 {
		t.Errorf("expected no drops, got %d", h.Dropped())
	}
}

func TestAsyncHandlerDropsAfterClose(t *testing.T) {
	var buf bytes.Buffer
	h := newAsyncHandler(slog.NewJSONHandler(&buf, nil), 16)
	log := slog.New(h)

	log.Info("before close")
	h.Close()
	flushed := buf.Len()

	// Logging after Close must not panic and must not be delivered.
	log.Info("after close")

	if buf.Len() != flushed {
		t.Error("expected no output after Close")
	}
	if h.Dropped() != 1 {
		t.Errorf("expected 1 dropped record, got %d", h.Dropped())
	}
}

func TestAsyncHandlerPreservesCloneAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newAsyncHandler(slog.NewJSONHandler(&buf, nil), 16)

	slog.New(h).With("agent_id", "sweep-1").Info("cycle done")
	h.Close()

	out := buf.String()
	for _, want := range []string{"agent_id", "sweep-1", "cycle done"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}

func TestForAgentAttachesIdentity(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	ForAgent(log, "httpcheck-1", "httpcheck").Info("ping")

	out := buf.String()
	for _, want := range []string{"agent_id", "httpcheck-1", "agent_type", "httpcheck"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}
