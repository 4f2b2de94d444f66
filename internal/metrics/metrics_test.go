package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.CycleStarted()
	r.CycleStarted()
	r.OutcomeResolved("success", 2*time.Second)
	r.OutcomeResolved("transport", 10*time.Millisecond)
	r.OutcomeResolved("success", time.Second)
	r.StaleOutcomeDiscarded()
	r.ValidationRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.outcomes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stale))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejected))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.CycleStarted()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "balbo_cycles_started_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.CycleStarted()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.cycles))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.cycles))
}
