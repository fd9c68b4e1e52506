package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncCore is the queue and worker shared by an async handler and all of
// its WithAttrs/WithGroup clones. The closed flag is checked under mu on
// every enqueue so a record arriving after Close is counted as dropped
// instead of sent on a closed channel.
type asyncCore struct {
	ch      chan func()
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func (c *asyncCore) drain() {
	defer close(c.done)
	for emit := range c.ch {
		emit()
	}
}

// enqueue hands the record off to the worker. Full buffer or an already
// closed core drops the record.
func (c *asyncCore) enqueue(emit func()) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.ch <- emit:
	default:
		c.dropped.Add(1)
	}
}

func (c *asyncCore) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
		<-c.done
	})
}

// asyncHandler decouples record handling from the logging call site with a
// bounded queue and a single drain worker. Records are dropped, never
// blocked on, when the buffer is full or the handler is closed.
type asyncHandler struct {
	inner slog.Handler
	core  *asyncCore
}

func newAsyncHandler(inner slog.Handler, buffer int) *asyncHandler {
	if buffer <= 0 {
		buffer = 1024
	}
	core := &asyncCore{
		ch:   make(chan func(), buffer),
		done: make(chan struct{}),
	}
	go core.drain()
	return &asyncHandler{inner: inner, core: core}
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	// Bind the record to this handler's inner so clones keep their attrs.
	inner := h.inner
	h.core.enqueue(func() {
		_ = inner.Handle(context.Background(), rec)
	})
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{inner: h.inner.WithAttrs(attrs), core: h.core}
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{inner: h.inner.WithGroup(name), core: h.core}
}

// Dropped returns the number of records discarded due to a full buffer or
// a closed handler.
func (h *asyncHandler) Dropped() int64 { return h.core.dropped.Load() }

// Close drains outstanding records and stops the worker. Records handled
// after Close are dropped, not delivered.
func (h *asyncHandler) Close() { h.core.close() }
