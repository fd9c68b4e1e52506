package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentd"

// StartRunSpan starts a span for one agent execution.
func StartRunSpan(ctx context.Context, agentID, typeName string, manual bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("agent.type", typeName),
			attribute.Bool("agent.run.manual", manual),
		),
	)
}
