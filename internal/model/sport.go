package model

// SportType is the kind of sport recorded for an activity.
type SportType string

// Supported sport types.
const (
	SportRide             SportType = "Ride"
	SportMountainBikeRide SportType = "MountainBikeRide"
	SportGravelRide       SportType = "GravelRide"
	SportEBikeRide        SportType = "EBikeRide"
	SportVirtualRide      SportType = "VirtualRide"
	SportRun              SportType = "Run"
	SportTrailRun         SportType = "TrailRun"
	SportVirtualRun       SportType = "VirtualRun"
	SportWalk             SportType = "Walk"
	SportHike             SportType = "Hike"
	SportSwim             SportType = "Swim"
	SportRowing           SportType = "Rowing"
	SportAlpineSki        SportType = "AlpineSki"
	SportNordicSki        SportType = "NordicSki"
	SportWeightTraining   SportType = "WeightTraining"
	SportWorkout          SportType = "Workout"
	SportYoga             SportType = "Yoga"
)

var sportTypes = []SportType{
	SportRide, SportMountainBikeRide, SportGravelRide, SportEBikeRide, SportVirtualRide,
	SportRun, SportTrailRun, SportVirtualRun, SportWalk, SportHike, SportSwim, SportRowing,
	SportAlpineSki, SportNordicSki, SportWeightTraining, SportWorkout, SportYoga,
}

// SportTypes returns every supported sport type.
func SportTypes() []SportType {
	return append([]SportType(nil), sportTypes...)
}

// IsValid reports whether the sport type is one of the supported values.
func (s SportType) IsValid() bool {
	for _, st := range sportTypes {
		if st == s {
			return true
		}
	}
	return false
}

// IsRide reports whether the sport is a cycling variant.
func (s SportType) IsRide() bool {
	switch s {
	case SportRide, SportMountainBikeRide, SportGravelRide, SportEBikeRide, SportVirtualRide:
		return true
	}
	return false
}

// IsRun reports whether the sport is a running variant.
func (s SportType) IsRun() bool {
	switch s {
	case SportRun, SportTrailRun, SportVirtualRun:
		return true
	}
	return false
}

// Workout types as used by the data source. Runs and rides have separate ranges.
const (
	WorkoutRunDefault  = 0
	WorkoutRunRace     = 1
	WorkoutRunLong     = 2
	WorkoutRunWorkout  = 3
	WorkoutRideDefault = 10
	WorkoutRideRace    = 11
	WorkoutRideWorkout = 12
)

// IsValidWorkoutType reports whether the workout type exists for any sport.
func IsValidWorkoutType(wt int) bool {
	return (wt >= WorkoutRunDefault && wt <= WorkoutRunWorkout) ||
		(wt >= WorkoutRideDefault && wt <= WorkoutRideWorkout)
}

// WorkoutTypeFits reports whether the workout type belongs to the sport's range.
func WorkoutTypeFits(sport SportType, wt int) bool {
	switch {
	case sport.IsRun():
		return wt >= WorkoutRunDefault && wt <= WorkoutRunWorkout
	case sport.IsRide():
		return wt >= WorkoutRideDefault && wt <= WorkoutRideWorkout
	}
	return false
}

var mapStyles = []string{"default", "light", "dark", "satellite", "terrain", "winter", "retro"}

// IsValidMapStyle reports whether the map style can be applied to an activity.
func IsValidMapStyle(style string) bool {
	for _, s := range mapStyles {
		if s == style {
			return true
		}
	}
	return false
}
