package weather

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxRetryAfter caps how long a single 429 may pause lookups.
const maxRetryAfter = time.Minute

// requestBudget paces calls to the weather API. Tokens refill continuously at
// the configured rate; a 429 from the API pauses every caller until its
// Retry-After has passed.
type requestBudget struct {
	now         func() time.Time
	lastRefill  time.Time
	pausedUntil time.Time
	tokens      float64
	capacity    float64
	interval    time.Duration
	mu          sync.Mutex
}

func newRequestBudget(requestsPerMinute int, now func() time.Time) *requestBudget {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if now == nil {
		now = time.Now
	}

	return &requestBudget{
		now:        now,
		lastRefill: now(),
		tokens:     float64(requestsPerMinute),
		capacity:   float64(requestsPerMinute),
		interval:   time.Minute / time.Duration(requestsPerMinute),
	}
}

// reserve takes a token if one is available and the API is not pausing us.
// Otherwise it returns how long to wait before asking again.
func (b *requestBudget) reserve() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+float64(elapsed)/float64(b.interval))
		b.lastRefill = now
	}

	if now.Before(b.pausedUntil) {
		return b.pausedUntil.Sub(now)
	}
	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	return time.Duration((1 - b.tokens) * float64(b.interval))
}

// wait blocks until a request may be sent or ctx is done.
func (b *requestBudget) wait(ctx context.Context) error {
	for {
		delay := b.reserve()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("weather request budget: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// pause holds back every request for d, capped at maxRetryAfter.
func (b *requestBudget) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	d = min(d, maxRetryAfter)

	b.mu.Lock()
	defer b.mu.Unlock()

	if until := b.now().Add(d); until.After(b.pausedUntil) {
		b.pausedUntil = until
	}
}

// retryAfter reads a Retry-After header given either in seconds or as an
// HTTP date.
func retryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0), true
	}
	return 0, false
}
