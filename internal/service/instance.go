package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	adotel "github.com/openherd/agentd/internal/adapter/otel"
	"github.com/openherd/agentd/internal/adapter/ws"
	"github.com/openherd/agentd/internal/domain/agent"
	"github.com/openherd/agentd/internal/port/agenttype"
	"github.com/openherd/agentd/internal/port/broadcast"
	"github.com/openherd/agentd/internal/port/eventbus"
	"github.com/openherd/agentd/internal/port/runstore"
)

// InstanceDeps are the optional collaborators wired into every instance.
// All fields are nil-safe.
type InstanceDeps struct {
	Metrics *adotel.Metrics
	Bus     eventbus.Publisher
	Runs    runstore.Store
	Hub     broadcast.Broadcaster
}

// Instance wraps one configured agent runner and owns its lifecycle:
// the Idle → Running → Stopped state machine, the recurring trigger, and
// the execution counters.
//
// Overlap policy: a scheduled firing that arrives while a previous
// execution is still in flight is skipped and logged. Manual runs
// serialize behind the in-flight execution instead.
type Instance struct {
	id       string
	typeName string
	cfg      agent.Config
	runner   agenttype.Runner
	log      *slog.Logger
	deps     InstanceDeps

	// OnError is the overridable execution-error hook. The default logs
	// and swallows. It runs for scheduled and manual executions alike;
	// only manual executions additionally propagate the error.
	OnError func(err error)

	mu         sync.Mutex // guards state, counters, trig, closed
	state      agent.State
	closed     bool
	lastRunAt  time.Time
	runCount   int64
	errorCount int64
	trig       *trigger

	runMu sync.Mutex // held for the duration of one execution
}

// NewInstance creates an Idle instance around a constructed runner.
func NewInstance(id, typeName string, cfg agent.Config, runner agenttype.Runner, log *slog.Logger, deps InstanceDeps) *Instance {
	return &Instance{
		id:       id,
		typeName: typeName,
		cfg:      cfg,
		runner:   runner,
		log:      log,
		deps:     deps,
		state:    agent.StateIdle,
	}
}

// ID returns the unique run identity of this instance.
func (i *Instance) ID() string { return i.id }

// TypeName returns the catalog name of the agent type.
func (i *Instance) TypeName() string { return i.typeName }

// Start activates the instance. With a schedule configured it registers
// the recurring trigger; without one it performs exactly one immediate
// execution and stays Running with no trigger. Starting a Running
// instance is a logged no-op.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.state == agent.StateRunning {
		i.mu.Unlock()
		i.log.Warn("start ignored: already running")
		return nil
	}

	if i.cfg.Schedule != "" {
		sched, err := parseSchedule(i.cfg.Schedule)
		if err != nil {
			i.mu.Unlock()
			return fmt.Errorf("parse schedule %q: %w", i.cfg.Schedule, err)
		}
		i.trig = startTrigger(sched, func() { go i.scheduledRun() })
	}
	i.state = agent.StateRunning
	i.mu.Unlock()

	i.log.Info("agent started", "schedule", i.cfg.Schedule)
	i.announce(ctx, eventbus.SubjectAgentStarted, "", false)

	if i.cfg.Schedule == "" {
		// Run-once agent: a failed body is counted and swallowed, same
		// as a scheduled cycle.
		_ = i.execute(ctx, false)
	}
	return nil
}

// Stop releases the trigger and transitions to Stopped. Cancellation is
// synchronous: no scheduled firing occurs after Stop returns. An
// execution already in flight keeps running. Stopping a non-Running
// instance is a logged no-op.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	if i.state != agent.StateRunning {
		i.mu.Unlock()
		i.log.Warn("stop ignored: not running")
		return nil
	}
	trig := i.trig
	i.trig = nil
	i.state = agent.StateStopped
	i.mu.Unlock()

	if trig != nil {
		trig.Stop()
	}

	i.log.Info("agent stopped")
	i.announce(ctx, eventbus.SubjectAgentStopped, "", false)
	return nil
}

// Shutdown is the final teardown: it stops the instance if it is still
// running and then closes the runner. After Shutdown the instance must
// not be restarted. Calling Shutdown twice is safe; the runner is closed
// at most once.
func (i *Instance) Shutdown(ctx context.Context) error {
	if i.State() == agent.StateRunning {
		if err := i.Stop(ctx); err != nil {
			return err
		}
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	if c, ok := i.runner.(agenttype.Closer); ok {
		if err := c.Close(); err != nil {
			i.log.Error("runner close failed", "error", err)
		}
	}
	return nil
}

// RunNow triggers an out-of-band execution regardless of schedule or
// state. The body's error is propagated to the caller.
func (i *Instance) RunNow(ctx context.Context) error {
	return i.execute(ctx, true)
}

// scheduledRun is the trigger-side entry point. Overlapping firings are
// skipped; body errors are swallowed so one bad cycle cannot stop the
// schedule.
func (i *Instance) scheduledRun() {
	_ = i.execute(context.Background(), false)
}

// execute records the attempt, invokes the agent body, and applies the
// error policy: swallowed for scheduled runs, propagated for manual ones.
func (i *Instance) execute(ctx context.Context, manual bool) error {
	if manual {
		i.runMu.Lock()
	} else if !i.runMu.TryLock() {
		i.log.Warn("scheduled firing skipped: previous execution still in flight")
		if i.deps.Metrics != nil {
			i.deps.Metrics.RunsSkipped.Add(ctx, 1)
		}
		return nil
	}
	defer i.runMu.Unlock()

	started := time.Now()
	i.mu.Lock()
	i.lastRunAt = started
	i.runCount++
	i.mu.Unlock()

	ctx, span := adotel.StartRunSpan(ctx, i.id, i.typeName, manual)
	defer span.End()

	if i.deps.Metrics != nil {
		i.deps.Metrics.RunsStarted.Add(ctx, 1)
	}

	err := i.runner.Run(ctx)

	if i.deps.Metrics != nil {
		i.deps.Metrics.RunDuration.Record(ctx, time.Since(started).Seconds())
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		i.mu.Lock()
		i.errorCount++
		i.mu.Unlock()

		if i.deps.Metrics != nil {
			i.deps.Metrics.RunsFailed.Add(ctx, 1)
		}
		if i.OnError != nil {
			i.OnError(err)
		} else {
			i.log.Error("agent run failed", "manual", manual, "error", err)
		}
	}

	i.recordRun(ctx, started, manual, errMsg)

	if manual {
		return err
	}
	return nil
}

// recordRun appends run history and publishes run events, best-effort.
func (i *Instance) recordRun(ctx context.Context, started time.Time, manual bool, errMsg string) {
	if i.deps.Runs != nil {
		run := &agent.Run{
			AgentID:    i.id,
			Type:       i.typeName,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Manual:     manual,
			Error:      errMsg,
		}
		if err := i.deps.Runs.Append(ctx, run); err != nil {
			i.log.Error("record run failed", "error", err)
		}
	}

	subject := eventbus.SubjectRunCompleted
	if errMsg != "" {
		subject = eventbus.SubjectRunFailed
	}
	i.announce(ctx, subject, errMsg, manual)

	if i.deps.Hub != nil {
		i.deps.Hub.BroadcastEvent(ctx, ws.EventAgentRun, ws.AgentRunEvent{
			AgentID: i.id,
			Type:    i.typeName,
			Manual:  manual,
			Error:   errMsg,
		})
	}
}

// announce publishes a lifecycle event to the bus and the dashboard hub.
func (i *Instance) announce(ctx context.Context, subject, errMsg string, manual bool) {
	state := i.State()

	if i.deps.Bus != nil {
		payload, err := json.Marshal(eventbus.AgentEvent{
			AgentID: i.id,
			Type:    i.typeName,
			State:   string(state),
			Error:   errMsg,
			Manual:  manual,
		})
		if err == nil {
			if err := i.deps.Bus.Publish(ctx, subject, payload); err != nil {
				i.log.Error("publish event failed", "subject", subject, "error", err)
			}
		}
	}

	if i.deps.Hub != nil && (subject == eventbus.SubjectAgentStarted || subject == eventbus.SubjectAgentStopped) {
		i.deps.Hub.BroadcastEvent(ctx, ws.EventAgentStatus, ws.AgentStatusEvent{
			AgentID: i.id,
			Type:    i.typeName,
			State:   string(state),
		})
	}
}

// State returns the current lifecycle state.
func (i *Instance) State() agent.State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Status returns the read-only projection of this instance, extended by
// the runner's own status when it implements StatusReporter.
func (i *Instance) Status() agent.Status {
	i.mu.Lock()
	st := agent.Status{
		ID:         i.id,
		Type:       i.typeName,
		State:      i.state,
		Schedule:   i.cfg.Schedule,
		LastRunAt:  i.lastRunAt,
		RunCount:   i.runCount,
		ErrorCount: i.errorCount,
	}
	i.mu.Unlock()

	if r, ok := i.runner.(agenttype.StatusReporter); ok {
		st.Detail = r.Status()
	}
	return st
}
