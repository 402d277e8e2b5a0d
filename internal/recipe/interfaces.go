// Package recipe validates user-authored recipes and decides whether an
// activity matches them.
package recipe

import (
	"context"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// WeatherProvider returns unit-normalized weather for a place and time.
type WeatherProvider interface {
	Lookup(ctx context.Context, location model.LatLng, at time.Time) (*model.WeatherSummary, error)
}

// MusicProvider returns the track the user was listening to at a given time.
// A nil track with a nil error means nothing was playing.
type MusicProvider interface {
	TrackAt(ctx context.Context, user model.User, at time.Time) (*model.Track, error)
}
