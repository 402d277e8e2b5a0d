// Package weather looks up historical weather for activity locations.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/service"
)

// DefaultBaseURL is the public Open-Meteo endpoint.
const DefaultBaseURL = "https://api.open-meteo.com"

const (
	providerName    = "open-meteo"
	maxResponseSize = 1 << 20
	hourLayout      = "2006-01-02T15:04"
)

var hourlyFields = []string{
	"temperature_2m",
	"apparent_temperature",
	"relative_humidity_2m",
	"rain",
	"snowfall",
	"weather_code",
	"cloud_cover",
	"wind_speed_10m",
	"wind_direction_10m",
}

// Config configures the weather client.
type Config struct {
	Logger            *slog.Logger
	BaseURL           string
	Retry             service.RetryOptions
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerMinute int
}

// Client fetches hourly weather from an Open-Meteo compatible API.
type Client struct {
	httpClient *http.Client
	cache      *summaryCache
	budget     *requestBudget
	baseURL    string
	retry      service.RetryOptions
}

// NewClient creates a weather client. Close must be called to release it.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: weather base URL %q", common.ErrInvalidConfig, baseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = service.DefaultRetryOptions()
	}
	if retry.Logger == nil {
		retry.Logger = cfg.Logger
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
		cache:   newSummaryCache(cfg.CacheTTL),
		budget:  newRequestBudget(cfg.RequestsPerMinute, time.Now),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Close stops background goroutines and idle connections.
func (c *Client) Close() {
	c.cache.close()
	c.httpClient.CloseIdleConnections()
}

// Lookup returns the weather at location during the hour containing at.
func (c *Client) Lookup(ctx context.Context, location model.LatLng, at time.Time) (*model.WeatherSummary, error) {
	at = at.UTC()
	key := cacheKey(location, at)
	if cached, ok := c.cache.get(key); ok {
		return &cached, nil
	}

	var summary *model.WeatherSummary
	err := common.WithRetry(ctx, func() error {
		if err := c.budget.wait(ctx); err != nil {
			return common.Permanent(err)
		}

		s, err := c.fetch(ctx, location, at)
		if err != nil {
			return err
		}
		summary = s
		return nil
	}, c.retry)
	if err != nil {
		return nil, fmt.Errorf("weather lookup for %s: %w", location, err)
	}

	c.cache.set(key, *summary)
	return summary, nil
}

// cacheKey rounds coordinates to about a kilometer and time to the hour.
func cacheKey(location model.LatLng, at time.Time) string {
	return fmt.Sprintf("%.2f,%.2f@%s", location.Lat(), location.Lng(), at.Truncate(time.Hour).Format(hourLayout))
}

type forecastResponse struct {
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature   []float64 `json:"temperature_2m"`
		FeelsLike     []float64 `json:"apparent_temperature"`
		Humidity      []float64 `json:"relative_humidity_2m"`
		Rain          []float64 `json:"rain"`
		Snowfall      []float64 `json:"snowfall"`
		WeatherCode   []float64 `json:"weather_code"`
		CloudCover    []float64 `json:"cloud_cover"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
		WindDirection []float64 `json:"wind_direction_10m"`
	} `json:"hourly"`
}

func (c *Client) fetch(ctx context.Context, location model.LatLng, at time.Time) (*model.WeatherSummary, error) {
	day := at.Format("2006-01-02")
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(location.Lat(), 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(location.Lng(), 'f', 4, 64))
	query.Set("hourly", strings.Join(hourlyFields, ","))
	query.Set("start_date", day)
	query.Set("end_date", day)
	query.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+query.Encode(), nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait, ok := retryAfter(resp.Header, c.budget.now())
		if !ok {
			wait = c.retry.MaxDelay
		}
		c.budget.pause(wait)
		return nil, fmt.Errorf("%w: weather API", common.ErrRateLimit)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("weather API error (status %d): %s", resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		return nil, common.Permanent(fmt.Errorf("weather API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var forecast forecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}

	summary, err := summarize(forecast, at)
	if err != nil {
		return nil, common.Permanent(err)
	}
	return summary, nil
}

// summarize picks the hourly sample closest to at.
func summarize(forecast forecastResponse, at time.Time) (*model.WeatherSummary, error) {
	h := forecast.Hourly
	best := -1
	var bestTime time.Time
	bestDiff := time.Duration(math.MaxInt64)

	for i, raw := range h.Time {
		t, err := time.ParseInLocation(hourLayout, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid hourly time %q: %w", raw, err)
		}
		diff := t.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestTime, bestDiff = i, t, diff
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: no hourly weather returned", common.ErrNotFound)
	}

	code := int(sample(h.WeatherCode, best))
	rain := sample(h.Rain, best)
	snow := sample(h.Snowfall, best)

	return &model.WeatherSummary{
		Time:          bestTime,
		Summary:       describe(code),
		Precipitation: precipitationType(code, rain, snow),
		Provider:      providerName,
		Temperature:   sample(h.Temperature, best),
		FeelsLike:     sample(h.FeelsLike, best),
		Humidity:      sample(h.Humidity, best),
		WindSpeed:     sample(h.WindSpeed, best),
		WindDirection: sample(h.WindDirection, best),
		CloudCover:    sample(h.CloudCover, best),
		RainAmount:    rain,
	}, nil
}

func sample(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

// describe maps a WMO weather code to a short description.
func describe(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code == 1:
		return "Mainly clear"
	case code == 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorm"
	}
	return "Unknown"
}

func precipitationType(code int, rain, snow float64) string {
	switch {
	case snow > 0 || (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow"
	case rain > 0 || (code >= 51 && code <= 67) || (code >= 80 && code <= 82) || code >= 95:
		return "rain"
	}
	return "none"
}
