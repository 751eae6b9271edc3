package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/davidleathers/outbound-pacing-backend"

// StartServiceSpan starts an internal span named "<service>.<operation>".
func StartServiceSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("service.component", service),
		attribute.String("service.operation", operation),
	)
	return otel.Tracer(instrumentationName).Start(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartDatabaseSpan starts a client span for a store operation.
func StartDatabaseSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, fmt.Sprintf("db.%s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// CampaignAttr tags a span with the campaign it evaluates.
func CampaignAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("campaign.id", id.String())
}

// OwnerAttr tags a span with the owning account.
func OwnerAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("owner.id", id.String())
}
