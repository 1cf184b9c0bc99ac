package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/config"
)

func TestSetupDisabledReturnsNil(t *testing.T) {
	p, err := Setup(context.Background(), config.ObservabilityConfig{})
	require.NoError(t, err)
	require.Nil(t, p)

	// nil receivers are no-ops
	p.RecordCheckIn("check_in", "late")
	p.RecordGeocode("hit")
	require.Nil(t, p.PrometheusHandler())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestMetricsExposed(t *testing.T) {
	p, err := Setup(context.Background(), config.ObservabilityConfig{EnableMetrics: true})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	p.RecordHTTPRequest(context.Background(), "GET", "/me", 200, 20*time.Millisecond)
	p.RecordCheckIn("check_in", "late")
	p.RecordGeocode("miss")
	p.RecordAutoClosed(3)
	p.RecordReportRows(12)

	rec := httptest.NewRecorder()
	p.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	require.Contains(t, out, `attendance_checkins_total{kind="check_in",status="late"} 1`)
	require.Contains(t, out, `attendance_geocode_lookups_total{result="miss"} 1`)
	require.Contains(t, out, `attendance_auto_closed_records_total 3`)
	require.Contains(t, out, `attendance_http_requests_total{method="GET",route="/me",status="200"} 1`)
}

func TestOTLPOptions(t *testing.T) {
	require.Len(t, otlpOptions("http://collector:4317"), 2)
	require.Len(t, otlpOptions("https://collector:4317"), 1)
	require.Len(t, otlpOptions(""), 2)
}
