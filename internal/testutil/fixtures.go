package testutil

import (
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// Gear identifiers used by the Athlete fixture.
const (
	BikeRoadID   = "b1"
	BikeGravelID = "b2"
	ShoesID      = "s1"
)

// FixtureStart is the start time of the fixture activities, a Saturday morning.
var FixtureStart = time.Date(2024, 5, 4, 7, 30, 0, 0, time.UTC)

// Athlete returns a user owning two bikes and one pair of shoes.
func Athlete() model.User {
	return model.User{
		ID:          "athlete-1",
		DisplayName: "Test Athlete",
		Bikes: []model.Gear{
			{ID: BikeRoadID, Name: "Road bike", Kind: model.GearBike},
			{ID: BikeGravelID, Name: "Gravel bike", Kind: model.GearBike},
		},
		Shoes: []model.Gear{
			{ID: ShoesID, Name: "Pegasus", Kind: model.GearShoes},
		},
	}
}

// RideActivity returns a 15 km morning ride on the gravel bike.
func RideActivity() model.Activity {
	return model.Activity{
		ID:            1001,
		AthleteID:     "athlete-1",
		Name:          "Morning Ride",
		SportType:     model.SportRide,
		GearID:        BikeGravelID,
		DateStart:     FixtureStart,
		DateEnd:       FixtureStart.Add(time.Hour),
		LocationStart: &model.LatLng{52.3676, 4.9041},
		Distance:      15000,
		MovingTime:    3600,
		ElapsedTime:   3720,
		SpeedAvg:      4.17,
	}
}

// RunActivity returns a 10 km run in the fixture shoes.
func RunActivity() model.Activity {
	return model.Activity{
		ID:          2001,
		AthleteID:   "athlete-1",
		Name:        "Lunch Run",
		SportType:   model.SportRun,
		GearID:      ShoesID,
		DateStart:   FixtureStart.Add(5 * time.Hour),
		DateEnd:     FixtureStart.Add(6 * time.Hour),
		Distance:    10000,
		MovingTime:  3000,
		ElapsedTime: 3100,
	}
}

// LongRideRecipe renames rides longer than 10 km.
func LongRideRecipe() model.Recipe {
	return model.Recipe{
		ID:    "long-ride",
		Title: "Long ride",
		Op:    model.LogicalAnd,
		Conditions: []model.Condition{
			{Property: "distance", Operator: model.OpGreaterThan, Value: "10000"},
			{Property: "sportType", Operator: model.OpEqual, Value: string(model.SportRide)},
		},
		Actions: []model.Action{
			{Type: model.ActionName, Value: "Long ride of ${distanceKm} km"},
		},
		Order: 1,
	}
}

// DefaultRunRecipe assigns the fixture shoes to every run.
func DefaultRunRecipe() model.Recipe {
	return model.Recipe{
		ID:         "default-run",
		Title:      "Running shoes",
		DefaultFor: model.SportRun,
		Conditions: []model.Condition{},
		Actions: []model.Action{
			{Type: model.ActionGear, Value: ShoesID},
		},
	}
}
