package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Transition(OutcomeUpdated)
	m.Transition(OutcomeConflict)
	m.Transition(OutcomeConflict)
	m.Submission(ResultOK)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues(OutcomeUpdated)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues(OutcomeConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues(ResultOK)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition(OutcomeUpdated)
		m.Submission(ResultError)
		m.ObserveRequest("/v1/health", http.MethodGet, 200, time.Millisecond)
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Transition(OutcomeUpdated)
	m.ObserveRequest("/v1/health", http.MethodGet, 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `recruitment_status_transitions_total{outcome="updated"} 1`)
	assert.Contains(t, body, `http_requests_total{code="200",method="GET",route="/v1/health"} 1`)
}
