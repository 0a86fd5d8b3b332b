package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for every invoicefetch span.
const TracerName = "github.com/teemow/invoicefetch"

// Span names of the fetch pipeline.
const (
	SpanRun        = "pipeline.run"
	SpanMessage    = "pipeline.message"
	SpanAttachment = "pipeline.part"
)

// Span attribute keys.
const (
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"
	SpanAttrMessageID = "invoicefetch.message_id"
	SpanAttrFilename  = "invoicefetch.filename"
	SpanAttrStatus    = "invoicefetch.status"
)

// StartSpan starts a span on the global tracer provider. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartAttachmentSpan starts the span covering one attachment candidate of a message.
func StartAttachmentSpan(ctx context.Context, messageID, filename string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanAttachment,
		attribute.String(SpanAttrMessageID, messageID),
		attribute.String(SpanAttrFilename, filename),
	)
}

// EndAttachmentSpan records the outcome of an attachment candidate and ends the span.
// A non-nil err marks the span as failed; matched and unmatched candidates are both OK.
func EndAttachmentSpan(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String(SpanAttrStatus, status))
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// SetSpanError records err on the span and marks it failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
