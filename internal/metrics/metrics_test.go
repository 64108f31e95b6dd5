package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRecord(t *testing.T) {
	m := New()
	m.ObserveHTTP("store", 200, 20*time.Millisecond)
	m.ObserveHTTP("store", 200, 30*time.Millisecond)
	m.ObserveUpstream("time_activities", "success", time.Second)
	m.PINRejected("downtown")
	m.SetBreakerState("connecteam", 2)
	m.EmployeesRendered("downtown", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("store", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("time_activities", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PINRejections.WithLabelValues("downtown")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("connecteam")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.EmployeesRenderedNow.WithLabelValues("downtown")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.PINRejected("uptown")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `clockboard_pin_rejections_total{store="uptown"} 1`)
}
