package model

import "time"

// WeatherSummary holds unit-normalized conditions for a place and time.
// Temperatures are in Celsius, wind speed in km/h and precipitation in mm.
type WeatherSummary struct {
	Time          time.Time `json:"time"`
	Summary       string    `json:"summary"`
	Precipitation string    `json:"precipitationType"`
	Provider      string    `json:"provider"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
	CloudCover    float64   `json:"cloudCover"`
	RainAmount    float64   `json:"rain"`
}

// Track is the song that was playing at a given moment.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// String renders the track as "Artist - Title".
func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
