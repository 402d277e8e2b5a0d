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
	r, err := NewRecorder(Options{})
	require.NoError(t, err)

	r.RecipeEvaluated(true)
	r.RecipeEvaluated(true)
	r.RecipeEvaluated(false)
	r.ActionExecuted("name", true)
	r.ActionExecuted("webhook", false)
	r.WebhookDelivered(false)
	r.SetFailingRecipes(4)

	assert.InDelta(t, 2, testutil.ToFloat64(r.evaluations.WithLabelValues("matched")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.evaluations.WithLabelValues("skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.actions.WithLabelValues("name", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.actions.WithLabelValues("webhook", OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.webhooks.WithLabelValues(OutcomeFailure)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(r.failing), 0)
}

func TestRecorder_Histogram(t *testing.T) {
	r, err := NewRecorder(Options{})
	require.NoError(t, err)

	r.ObserveProcess(20 * time.Millisecond)
	r.ObserveProcess(2 * time.Second)

	assert.Equal(t, 1, testutil.CollectAndCount(r.processSeconds))
	count, err := testutil.GatherAndCount(r.PrometheusRegistry(), "recipe_process_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecorder_Handler(t *testing.T) {
	r, err := NewRecorder(Options{RuntimeCollectors: true})
	require.NoError(t, err)
	r.RecipeEvaluated(true)

	server := httptest.NewServer(r.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL) //nolint:gosec // test server URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `recipe_evaluations_total{result="matched"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
