package engine

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/stats"
	"github.com/Veraticus/the-recipe-must-flow/internal/testutil"
	"github.com/stretchr/testify/mock"
)

type mockWebhook struct {
	mock.Mock
}

func (m *mockWebhook) Send(ctx context.Context, url string, payload any) error {
	args := m.Called(ctx, url, payload)
	return args.Error(0)
}

type mockWeather struct {
	mock.Mock
}

func (m *mockWeather) Lookup(ctx context.Context, location model.LatLng, at time.Time) (*model.WeatherSummary, error) {
	args := m.Called(ctx, location, at)
	if w := args.Get(0); w != nil {
		return w.(*model.WeatherSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeMetrics counts calls by label.
type fakeMetrics struct {
	evaluations map[bool]int
	actions     map[string]int
	webhooks    map[bool]int
	processed   int
	mu          sync.Mutex
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		evaluations: make(map[bool]int),
		actions:     make(map[string]int),
		webhooks:    make(map[bool]int),
	}
}

func (f *fakeMetrics) RecipeEvaluated(matched bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluations[matched]++
}

func (f *fakeMetrics) ActionExecuted(actionType string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := actionType + "/" + outcomeLabel(ok)
	f.actions[key]++
}

func (f *fakeMetrics) WebhookDelivered(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks[ok]++
}

func (f *fakeMetrics) ObserveProcess(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed++
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

type testEngine struct {
	*Engine
	db      *testutil.TestDB
	tracker *stats.Tracker
	metrics *fakeMetrics
	user    model.User
}

func newTestEngine(t *testing.T, deps Dependencies, cfg Config) *testEngine {
	t.Helper()

	user := testutil.Athlete()
	pro := model.User{ID: "athlete-pro", DisplayName: "Pro Athlete", IsPro: true}
	db := testutil.SetupTestDB(t, user, pro)

	logger, _ := bufferLogger()
	tracker := stats.NewTracker(db.Storage, stats.DefaultConfig(), logger)
	metrics := newFakeMetrics()

	deps.Recipes = db.Storage
	deps.Stats = tracker
	deps.Metrics = metrics
	deps.Logger = logger

	return &testEngine{
		Engine:  NewWithConfig(deps, cfg),
		db:      db,
		tracker: tracker,
		metrics: metrics,
		user:    user,
	}
}
