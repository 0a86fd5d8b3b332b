// Package instrumentation provides OpenTelemetry instrumentation for invoicefetch runs.
//
// A fetch run is a short-lived batch job, so instrumentation is disabled unless
// INSTRUMENTATION_ENABLED=true. When enabled it offers:
//   - OpenTelemetry metrics for the attachment pipeline and Gmail API calls
//   - Distributed tracing for the run, each message and each Gmail request
//   - Prometheus export pushed to a Pushgateway at the end of the run
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Pipeline Metrics:
//   - invoicefetch_messages_scanned_total: Counter of candidate messages fetched
//   - invoicefetch_attachments_total: Counter of candidate attachments by outcome status
//   - invoicefetch_pdf_extraction_duration_seconds: Histogram of PDF text extraction durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - PROMETHEUS_PUSHGATEWAY_URL: Pushgateway receiving the run's metrics
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordGoogleAPIOperation(ctx, "gmail", "list", "success", time.Since(start))
package instrumentation
