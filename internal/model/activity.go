package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LatLng is a coordinate pair in decimal degrees, latitude first.
type LatLng [2]float64

// Lat returns the latitude component.
func (l LatLng) Lat() float64 { return l[0] }

// Lng returns the longitude component.
func (l LatLng) Lng() float64 { return l[1] }

// String renders the pair as "lat,lng".
func (l LatLng) String() string {
	return strconv.FormatFloat(l[0], 'f', -1, 64) + "," + strconv.FormatFloat(l[1], 'f', -1, 64)
}

// ParseLatLng parses a "lat,lng" string.
func ParseLatLng(value string) (LatLng, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return LatLng{}, fmt.Errorf("location %q must be in the format lat,lng", value)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("invalid latitude in %q: %w", value, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("invalid longitude in %q: %w", value, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return LatLng{}, fmt.Errorf("location %q is out of range", value)
	}

	return LatLng{lat, lng}, nil
}

// Activity is a single recorded workout as delivered by the data source.
// Timestamps keep the offset of the place where the activity happened, so
// time-of-day and weekday conditions read them directly.
type Activity struct {
	DateStart        time.Time `json:"dateStart"`
	DateEnd          time.Time `json:"dateEnd"`
	LocationStart    *LatLng   `json:"locationStart,omitempty"`
	LocationEnd      *LatLng   `json:"locationEnd,omitempty"`
	WorkoutType      *int      `json:"workoutType,omitempty"`
	AthleteID        string    `json:"athleteId"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	SportType        SportType `json:"sportType"`
	MapStyle         string    `json:"mapStyle,omitempty"`
	GearID           string    `json:"gearId,omitempty"`
	Device           string    `json:"device,omitempty"`
	NewRecords       []string  `json:"newRecords,omitempty"`
	UpdatedFields    []string  `json:"updatedFields,omitempty"`
	ID               int64     `json:"id"`
	Distance         float64   `json:"distance"`
	MovingTime       int       `json:"movingTime"`
	ElapsedTime      int       `json:"elapsedTime"`
	ElevationGain    float64   `json:"elevationGain"`
	ElevationMax     float64   `json:"elevationMax"`
	SpeedAvg         float64   `json:"speedAvg"`
	SpeedMax         float64   `json:"speedMax"`
	WattsAvg         float64   `json:"wattsAvg"`
	WattsWeighted    float64   `json:"wattsWeighted"`
	WattsMax         float64   `json:"wattsMax"`
	HRAvg            float64   `json:"hrAvg"`
	HRMax            float64   `json:"hrMax"`
	CadenceAvg       float64   `json:"cadenceAvg"`
	Calories         float64   `json:"calories"`
	RelativeEffort   float64   `json:"relativeEffort"`
	Commute          bool      `json:"commute"`
	Trainer          bool      `json:"trainer"`
	Manual           bool      `json:"manual"`
	Private          bool      `json:"private"`
	HasPhotos        bool      `json:"hasPhotos"`
	HideHome         bool      `json:"hideHome"`
	HideStatPace     bool      `json:"hideStatPace"`
	HideStatSpeed    bool      `json:"hideStatSpeed"`
	HideStatCalories bool      `json:"hideStatCalories"`
	HideStatHR       bool      `json:"hideStatHeartRate"`
	HidePower        bool      `json:"hideStatPower"`
}

// Clone returns a copy that shares no slices or pointers with the original.
func (a Activity) Clone() Activity {
	c := a
	if a.LocationStart != nil {
		loc := *a.LocationStart
		c.LocationStart = &loc
	}
	if a.LocationEnd != nil {
		loc := *a.LocationEnd
		c.LocationEnd = &loc
	}
	if a.WorkoutType != nil {
		wt := *a.WorkoutType
		c.WorkoutType = &wt
	}
	c.NewRecords = append([]string(nil), a.NewRecords...)
	c.UpdatedFields = append([]string(nil), a.UpdatedFields...)
	return c
}

// IDString returns the activity identifier as stored in recipe stats history.
func (a Activity) IDString() string {
	return strconv.FormatInt(a.ID, 10)
}
