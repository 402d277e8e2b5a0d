// Package metrics exposes recipe engine activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder owns a private registry with the engine's collectors.
type Recorder struct {
	prom           *prometheus.Registry
	evaluations    *prometheus.CounterVec
	actions        *prometheus.CounterVec
	webhooks       *prometheus.CounterVec
	processSeconds prometheus.Histogram
	failing        prometheus.Gauge
}

// Options configures which runtime collectors are registered.
type Options struct {
	// RuntimeCollectors adds the Go and process collectors.
	RuntimeCollectors bool
}

// NewRecorder creates a recorder and registers its collectors.
func NewRecorder(opts Options) (*Recorder, error) {
	reg := prometheus.NewRegistry()

	if opts.RuntimeCollectors {
		if err := reg.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("registering go collector: %w", err)
		}
		if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("registering process collector: %w", err)
		}
	}

	r := &Recorder{
		prom: reg,
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Recipes evaluated against activities, by result.",
		}, []string{"result"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions executed on matched activities, by type and outcome.",
		}, []string{"type", "outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook deliveries, by outcome.",
		}, []string{"outcome"}),
		processSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Time spent running every recipe of a user against one activity.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		failing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "failing_recipes",
			Help:      "Recipes whose failure streak exceeds the alert threshold.",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"evaluations":      r.evaluations,
		"actions":          r.actions,
		"webhooks":         r.webhooks,
		"process duration": r.processSeconds,
		"failing recipes":  r.failing,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering %s: %w", name, err)
		}
	}

	return r, nil
}

// Handler returns an http.Handler for the /metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// PrometheusRegistry returns the underlying registry.
func (r *Recorder) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// RecipeEvaluated counts one recipe evaluation.
func (r *Recorder) RecipeEvaluated(matched bool) {
	result := "skipped"
	if matched {
		result = "matched"
	}
	r.evaluations.WithLabelValues(result).Inc()
}

// ActionExecuted counts one action run.
func (r *Recorder) ActionExecuted(actionType string, ok bool) {
	r.actions.WithLabelValues(actionType, outcome(ok)).Inc()
}

// WebhookDelivered counts one webhook delivery attempt sequence.
func (r *Recorder) WebhookDelivered(ok bool) {
	r.webhooks.WithLabelValues(outcome(ok)).Inc()
}

// ObserveProcess records how long processing an activity took.
func (r *Recorder) ObserveProcess(d time.Duration) {
	r.processSeconds.Observe(d.Seconds())
}

// SetFailingRecipes sets the number of currently failing recipes.
func (r *Recorder) SetFailingRecipes(n int) {
	r.failing.Set(float64(n))
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
