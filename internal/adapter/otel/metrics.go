// Package otel provides OpenTelemetry instrumentation for agent executions
// and the dashboard HTTP surface.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentd"

// Metrics holds all agentd metric instruments.
type Metrics struct {
	RunsStarted metric.Int64Counter
	RunsFailed  metric.Int64Counter
	RunsSkipped metric.Int64Counter
	RunDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("agentd.runs.started",
		metric.WithDescription("Number of agent executions started"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("agentd.runs.failed",
		metric.WithDescription("Number of agent executions that returned an error"))
	if err != nil {
		return nil, err
	}

	m.RunsSkipped, err = meter.Int64Counter("agentd.runs.skipped",
		metric.WithDescription("Number of scheduled firings skipped because a run was in flight"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("agentd.run.duration_seconds",
		metric.WithDescription("Agent execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
