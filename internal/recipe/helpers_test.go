package recipe

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/stretchr/testify/mock"
)

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

type mockMusic struct {
	mock.Mock
}

func (m *mockMusic) TrackAt(ctx context.Context, user model.User, at time.Time) (*model.Track, error) {
	args := m.Called(ctx, user, at)
	if t := args.Get(0); t != nil {
		return t.(*model.Track), args.Error(1)
	}
	return nil, args.Error(1)
}

var testStart = time.Date(2024, 5, 4, 7, 30, 0, 0, time.UTC) // Saturday

func testActivity() model.Activity {
	wt := model.WorkoutRideDefault
	return model.Activity{
		ID:            1001,
		AthleteID:     "athlete-1",
		Name:          "Morning Ride",
		Description:   "Easy spin",
		SportType:     model.SportRide,
		WorkoutType:   &wt,
		GearID:        "b2",
		Device:        "Garmin Edge 530",
		DateStart:     testStart,
		DateEnd:       testStart.Add(90 * time.Minute),
		LocationStart: &model.LatLng{52.3676, 4.9041},
		Distance:      15000,
		MovingTime:    3600,
		ElapsedTime:   3900,
		SpeedAvg:      4.17,
		WattsAvg:      180,
		HRAvg:         140,
		NewRecords:    []string{"distance"},
	}
}

func testUser() model.User {
	return model.User{
		ID:          "user-1",
		DisplayName: "Test Athlete",
		Bikes: []model.Gear{
			{ID: "b1", Name: "bikeA", Kind: model.GearBike},
			{ID: "b2", Name: "bikeB", Kind: model.GearBike},
		},
		Shoes: []model.Gear{
			{ID: "s1", Name: "Pegasus", Kind: model.GearShoes},
		},
	}
}

func cond(property string, op model.Operator, value string) model.Condition {
	return model.Condition{Property: property, Operator: op, Value: value}
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
