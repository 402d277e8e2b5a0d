package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const forecastJSON = `{
  "latitude": 52.37,
  "longitude": 4.9,
  "hourly": {
    "time": ["2024-05-04T06:00", "2024-05-04T07:00", "2024-05-04T08:00"],
    "temperature_2m": [9.5, 11.2, 13.0],
    "apparent_temperature": [7.1, 9.8, 12.1],
    "relative_humidity_2m": [88, 81, 75],
    "precipitation": [0.0, 0.6, 0.0],
    "rain": [0.0, 0.4, 0.0],
    "snowfall": [0.0, 0.0, 0.0],
    "weather_code": [2, 61, 3],
    "cloud_cover": [40, 95, 100],
    "wind_speed_10m": [12.0, 18.5, 15.0],
    "wind_direction_10m": [200, 220, 240]
  }
}`

var (
	testLocation = model.LatLng{52.3676, 4.9041}
	testTime     = time.Date(2024, 5, 4, 7, 20, 0, 0, time.UTC)
)

func fastRetry() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:           server.URL,
		Retry:             fastRetry(),
		RequestsPerMinute: 600,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, &hits
}

func TestClient_Lookup(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "52.3676", q.Get("latitude"))
		assert.Equal(t, "4.9041", q.Get("longitude"))
		assert.Equal(t, "2024-05-04", q.Get("start_date"))
		assert.Equal(t, "2024-05-04", q.Get("end_date"))
		assert.Contains(t, q.Get("hourly"), "temperature_2m")

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, forecastJSON)
	})

	summary, err := client.Lookup(context.Background(), testLocation, testTime)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 5, 4, 7, 0, 0, 0, time.UTC), summary.Time)
	assert.Equal(t, 11.2, summary.Temperature)
	assert.Equal(t, 9.8, summary.FeelsLike)
	assert.Equal(t, 81.0, summary.Humidity)
	assert.Equal(t, 18.5, summary.WindSpeed)
	assert.Equal(t, 95.0, summary.CloudCover)
	assert.Equal(t, 0.4, summary.RainAmount, "rain amount excludes other precipitation")
	assert.Equal(t, "Rain", summary.Summary)
	assert.Equal(t, "rain", summary.Precipitation)
	assert.Equal(t, "open-meteo", summary.Provider)

	// same place within the same hour is served from the cache
	again, err := client.Lookup(context.Background(), model.LatLng{52.3679, 4.9043}, testTime.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, summary, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_LookupRetries(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		wantHits int32
		wantErr  bool
	}{
		{name: "server error then success", statuses: []int{http.StatusBadGateway, http.StatusOK}, wantHits: 2},
		{name: "rate limited then success", statuses: []int{http.StatusTooManyRequests, http.StatusOK}, wantHits: 2},
		{name: "bad request is not retried", statuses: []int{http.StatusBadRequest}, wantHits: 1, wantErr: true},
		{
			name:     "persistent server error",
			statuses: []int{http.StatusInternalServerError, http.StatusInternalServerError, http.StatusInternalServerError},
			wantHits: 3,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var call atomic.Int32
			client, hits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				i := int(call.Add(1)) - 1
				status := tt.statuses[len(tt.statuses)-1]
				if i < len(tt.statuses) {
					status = tt.statuses[i]
				}
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = fmt.Fprint(w, forecastJSON)
				}
			})

			_, err := client.Lookup(context.Background(), testLocation, testTime)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestClient_RetryAfterPausesLookups(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	clock := newFakeClock()
	client.budget.now = clock.Now
	client.retry.MaxAttempts = 1

	_, err := client.Lookup(context.Background(), testLocation, testTime)
	require.ErrorIs(t, err, common.ErrRateLimit)
	assert.Equal(t, int32(1), hits.Load())

	assert.Equal(t, 30*time.Second, client.budget.reserve())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Lookup(ctx, testLocation, testTime)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), hits.Load(), "paused lookups must not reach the API")
}

func TestClient_LookupEmptyForecast(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"hourly": {"time": []}}`)
	})

	_, err := client.Lookup(context.Background(), testLocation, testTime)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestClient_LookupCanceled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Lookup(ctx, testLocation, testTime)
	require.Error(t, err)
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"not a url", "ftp://weather.example.com", "http://"} {
		_, err := NewClient(Config{BaseURL: base})
		require.ErrorIs(t, err, common.ErrInvalidConfig, base)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		summary       string
		precipitation string
		code          int
		rain          float64
		snow          float64
	}{
		{code: 0, summary: "Clear sky", precipitation: "none"},
		{code: 3, summary: "Overcast", precipitation: "none"},
		{code: 45, summary: "Fog", precipitation: "none"},
		{code: 53, summary: "Drizzle", precipitation: "rain"},
		{code: 63, summary: "Rain", precipitation: "rain"},
		{code: 73, summary: "Snow", precipitation: "snow"},
		{code: 81, summary: "Rain showers", precipitation: "rain"},
		{code: 86, summary: "Snow showers", precipitation: "snow"},
		{code: 95, summary: "Thunderstorm", precipitation: "rain"},
		{code: 2, rain: 0.2, summary: "Partly cloudy", precipitation: "rain"},
		{code: 3, snow: 1.5, summary: "Overcast", precipitation: "snow"},
		{code: 42, summary: "Unknown", precipitation: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			assert.Equal(t, tt.summary, describe(tt.code))
			assert.Equal(t, tt.precipitation, precipitationType(tt.code, tt.rain, tt.snow))
		})
	}
}
