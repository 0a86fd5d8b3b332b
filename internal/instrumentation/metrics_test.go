package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				key := ""
				for _, kv := range dp.Attributes.ToSlice() {
					key += string(kv.Key) + "=" + kv.Value.Emit() + ";"
				}
				out[key] += dp.Value
			}
		}
	}
	return out
}

func TestMetrics_RecordAttachment(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAttachment(ctx, "downloaded")
	m.RecordAttachment(ctx, "downloaded")
	m.RecordAttachment(ctx, "not_matched")

	got := collectSum(t, reader, "invoicefetch_attachments_total")
	assert.Equal(t, int64(2), got["status=downloaded;"])
	assert.Equal(t, int64(1), got["status=not_matched;"])
}

func TestMetrics_RecordMessageScanned(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordMessageScanned(ctx)
	m.RecordMessageScanned(ctx)

	got := collectSum(t, reader, "invoicefetch_messages_scanned_total")
	assert.Equal(t, int64(2), got[""])
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGetAttachment, StatusError, 500*time.Millisecond)

	got := collectSum(t, reader, "google_api_operations_total")
	assert.Equal(t, int64(1), got["operation=list;service=gmail;status=success;"])
	assert.Equal(t, int64(1), got["operation=get_attachment;service=gmail;status=error;"])
}

func TestMetrics_RecordOAuthTokenRefresh(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)

	got := collectSum(t, reader, "oauth_token_refresh_total")
	assert.Equal(t, int64(1), got["result=success;"])
	assert.Equal(t, int64(1), got["result=failure;"])
}

func TestMetrics_RecordExtraction(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordExtraction(context.Background(), StatusSuccess, 30*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name == "invoicefetch_pdf_extraction_duration_seconds" {
				hist, ok := metric.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				require.Len(t, hist.DataPoints, 1)
				assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
				found = true
			}
		}
	}
	assert.True(t, found, "expected extraction histogram")
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	zero := &Metrics{}

	for _, m := range []*Metrics{nilMetrics, zero} {
		// Should not panic
		m.RecordMessageScanned(ctx)
		m.RecordAttachment(ctx, "downloaded")
		m.RecordExtraction(ctx, StatusSuccess, time.Millisecond)
		m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, StatusSuccess, time.Millisecond)
		m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	}
}
