package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveIngest(ResultOK)
	m.ObserveIngest(ResultOK)
	m.ObserveIngest(ResultInvalid)
	m.ObserveQuery(ResultOK, 20*time.Millisecond, 5)
	m.ObserveQuery(ResultTimeout, time.Second, 0)
	m.ObserveConsumed(ResultDropped)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestTotal.WithLabelValues(ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues(ResultTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.consumedTotal.WithLabelValues(ResultDropped)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "unitmetrics_query_duration_seconds_count 2")
	// only the successful query is recorded in the bucket histogram
	assert.Contains(t, rec.Body.String(), "unitmetrics_query_buckets_count 1")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveIngest(ResultOK)
		m.ObserveQuery(ResultOK, time.Millisecond, 1)
		m.ObserveConsumed(ResultOK)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveQuery(ResultOK, 5*time.Millisecond, 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), `unitmetrics_query_total{result="ok"} 1`))
	assert.True(t, strings.Contains(string(body), "unitmetrics_query_buckets_bucket"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
