// Package alerting periodically reports recipes whose actions keep failing.
//
// The Watcher runs a sweep on a cron schedule. Each sweep queries the
// failing recipes, updates the failing-recipes gauge, logs every offender and
// optionally posts a report to an operations webhook.
//
// Example usage:
//
//	watcher, err := alerting.NewWatcher(alerting.Config{Schedule: "*/30 * * * *"}, tracker, deps)
//	if err != nil {
//	    return err
//	}
//	watcher.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when the cron schedule cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid alerting schedule")

// DefaultSchedule sweeps every half hour.
const DefaultSchedule = "*/30 * * * *"

// FailingSource lists the recipes over the failure threshold.
type FailingSource interface {
	GetFailingRecipes(ctx context.Context) ([]model.RecipeStats, error)
	FailureThreshold() int
}

// Notifier posts a report to a URL.
type Notifier interface {
	Send(ctx context.Context, url string, payload any) error
}

// Gauge receives the number of failing recipes.
type Gauge interface {
	SetFailingRecipes(n int)
}

// Config configures the watcher.
type Config struct {
	Schedule   string
	WebhookURL string
}

// Dependencies are the optional collaborators of the watcher.
type Dependencies struct {
	Notifier Notifier
	Gauge    Gauge
	Logger   *slog.Logger
}

// Report is the result of one sweep, also used as the webhook body.
type Report struct {
	Time      time.Time           `json:"time"`
	Failing   []model.RecipeStats `json:"failing"`
	Threshold int                 `json:"threshold"`
}

// Watcher sweeps for failing recipes on a cron schedule.
type Watcher struct {
	schedule cron.Schedule
	source   FailingSource
	notifier Notifier
	gauge    Gauge
	logger   *slog.Logger
	now      func() time.Time
	after    func(d time.Duration) <-chan time.Time
	spec     string
	url      string
}

// NewWatcher parses the schedule (standard five-field cron) and creates a watcher.
func NewWatcher(cfg Config, source FailingSource, deps Dependencies) (*Watcher, error) {
	spec := cfg.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		schedule: schedule,
		source:   source,
		notifier: deps.Notifier,
		gauge:    deps.Gauge,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
		spec:     spec,
		url:      cfg.WebhookURL,
	}, nil
}

// NextRun returns the next scheduled sweep from now.
func (w *Watcher) NextRun() time.Time {
	return w.schedule.Next(w.now())
}

// Start launches the sweep loop in a goroutine. It exits when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run sweeps on schedule until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		next := w.schedule.Next(w.now())
		wait := next.Sub(w.now())

		w.logger.Debug("waiting for next failing-recipes sweep",
			"schedule", w.spec,
			"next_run", next,
			"wait_duration", wait)

		select {
		case <-ctx.Done():
			w.logger.Info("failing-recipes watcher shutting down")
			return
		case <-w.after(wait):
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Warn("failing-recipes sweep completed with error", "error", err)
			}
		}
	}
}

// Sweep runs one check immediately.
func (w *Watcher) Sweep(ctx context.Context) (Report, error) {
	failing, err := w.source.GetFailingRecipes(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to query failing recipes: %w", err)
	}

	report := Report{
		Time:      w.now(),
		Failing:   failing,
		Threshold: w.source.FailureThreshold(),
	}

	if w.gauge != nil {
		w.gauge.SetFailingRecipes(len(failing))
	}

	for _, s := range failing {
		w.logger.Warn("recipe keeps failing",
			"user_id", s.UserID,
			"recipe_id", s.RecipeID,
			"recent_failures", s.RecentFailures,
			"last_trigger", s.DateLastTrigger)
	}

	if len(failing) == 0 {
		w.logger.Info("no failing recipes")
		return report, nil
	}

	if w.notifier != nil && w.url != "" {
		if err := w.notifier.Send(ctx, w.url, report); err != nil {
			return report, fmt.Errorf("failed to send failing-recipes report: %w", err)
		}
	}
	return report, nil
}
