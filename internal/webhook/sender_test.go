package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestSender(t *testing.T) *Sender {
	t.Helper()
	return newTestSenderWithLogger(t, nil)
}

func newTestSenderWithLogger(t *testing.T, logger *slog.Logger) *Sender {
	t.Helper()

	s := NewSender(Config{
		Timeout: time.Second,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
	}, logger)
	t.Cleanup(s.Close)
	return s
}

func TestSender_Send(t *testing.T) {
	var received model.Activity
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	activity := model.Activity{ID: 42, Name: "Evening Run", SportType: model.SportRun, UpdatedFields: []string{"name"}}
	require.NoError(t, newTestSender(t).Send(context.Background(), server.URL+"/hook", activity))

	assert.Equal(t, int64(42), received.ID)
	assert.Equal(t, "Evening Run", received.Name)
	assert.Equal(t, []string{"name"}, received.UpdatedFields)
}

func TestSender_Retries(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		wantHits int32
		wantErr  bool
	}{
		{name: "first attempt succeeds", statuses: []int{http.StatusOK}, wantHits: 1},
		{name: "server error then success", statuses: []int{http.StatusServiceUnavailable, http.StatusAccepted}, wantHits: 2},
		{name: "rate limited then success", statuses: []int{http.StatusTooManyRequests, http.StatusOK}, wantHits: 2},
		{name: "not found is permanent", statuses: []int{http.StatusNotFound}, wantHits: 1, wantErr: true},
		{name: "server keeps failing", statuses: []int{http.StatusInternalServerError}, wantHits: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				i := int(hits.Add(1)) - 1
				if i >= len(tt.statuses) {
					i = len(tt.statuses) - 1
				}
				w.WriteHeader(tt.statuses[i])
			}))
			defer server.Close()

			err := newTestSender(t).Send(context.Background(), server.URL, map[string]string{"hello": "world"})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "webhook delivery")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestSender_RetryWarningsUseSenderLogger(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var buf bytes.Buffer
	s := newTestSenderWithLogger(t, slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), server.URL, map[string]string{"hello": "world"}))
	assert.Contains(t, buf.String(), "operation failed, retrying")
	assert.Contains(t, buf.String(), "attempt=1")
}

func TestSender_InvalidPayload(t *testing.T) {
	err := newTestSender(t).Send(context.Background(), "http://127.0.0.1:1", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal")
}
