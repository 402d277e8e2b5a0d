package recipe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// Condition evaluation errors.
var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrInvalidOperator = errors.New("invalid operator")
	ErrInvalidValue    = errors.New("invalid value")
	ErrMissingField    = errors.New("activity field not set")
)

// Tolerances for fuzzy comparisons. Location boxes are in decimal degrees,
// time tolerances in HHmm units.
const (
	locationEqualTolerance = 0.00037
	locationLikeTolerance  = 0.00458
	timeEqualTolerance     = 1
	timeLikeTolerance      = 20
	numberLikeTolerance    = 0.1
)

// ConditionEvaluationError reports a condition that could not be evaluated.
// Such a condition never matches.
type ConditionEvaluationError struct {
	Err      error
	Property string
	Operator model.Operator
}

func (e *ConditionEvaluationError) Error() string {
	return fmt.Sprintf("evaluating %s %s: %v", e.Property, e.Operator, e.Err)
}

func (e *ConditionEvaluationError) Unwrap() error {
	return e.Err
}

// Evaluator evaluates single conditions against activities.
type Evaluator struct {
	catalog *Catalog
	weather WeatherProvider
	music   MusicProvider
}

// NewEvaluator creates an evaluator. Either provider may be nil, in which case
// conditions that need it fail to evaluate.
func NewEvaluator(catalog *Catalog, weather WeatherProvider, music MusicProvider) *Evaluator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Evaluator{
		catalog: catalog,
		weather: weather,
		music:   music,
	}
}

// Catalog returns the property catalog used by the evaluator.
func (e *Evaluator) Catalog() *Catalog {
	return e.catalog
}

// Begin starts the evaluation of one activity for one user. The returned
// Evaluation memoizes weather and music lookups and must not be shared
// across activities.
func (e *Evaluator) Begin(user model.User, activity model.Activity) *Evaluation {
	return &Evaluation{
		evaluator: e,
		user:      user,
		activity:  activity,
	}
}

// Evaluation holds the state of a single activity evaluation.
type Evaluation struct {
	evaluator  *Evaluator
	weather    *model.WeatherSummary
	weatherErr error
	track      *model.Track
	trackErr   error
	user       model.User
	activity   model.Activity

	weatherLoaded bool
	trackLoaded   bool
}

// User returns the owner of the activity.
func (ev *Evaluation) User() model.User {
	return ev.user
}

// Activity returns the activity as currently seen by the evaluation.
func (ev *Evaluation) Activity() model.Activity {
	return ev.activity
}

// Update replaces the activity after actions changed it, keeping memoized
// lookups. Actions never move an activity in space or time.
func (ev *Evaluation) Update(activity model.Activity) {
	ev.activity = activity
}

// Weather returns the weather at the activity's start, looking it up at most once.
func (ev *Evaluation) Weather(ctx context.Context) (*model.WeatherSummary, error) {
	if ev.weatherLoaded {
		return ev.weather, ev.weatherErr
	}
	ev.weatherLoaded = true

	switch {
	case ev.evaluator.weather == nil:
		ev.weatherErr = fmt.Errorf("weather: %w", common.ErrCollaboratorUnset)
	case ev.activity.DateStart.IsZero():
		ev.weatherErr = fmt.Errorf("%w: dateStart", ErrMissingField)
	default:
		loc := ev.activity.LocationStart
		if loc == nil {
			loc = ev.activity.LocationEnd
		}
		if loc == nil {
			ev.weatherErr = fmt.Errorf("%w: locationStart", ErrMissingField)
			break
		}
		ev.weather, ev.weatherErr = ev.evaluator.weather.Lookup(ctx, *loc, ev.activity.DateStart)
		if ev.weatherErr == nil && ev.weather == nil {
			ev.weatherErr = fmt.Errorf("weather: %w", common.ErrNotFound)
		}
	}
	return ev.weather, ev.weatherErr
}

// Track returns the track playing when the activity started, looking it up at most once.
func (ev *Evaluation) Track(ctx context.Context) (*model.Track, error) {
	if ev.trackLoaded {
		return ev.track, ev.trackErr
	}
	ev.trackLoaded = true

	switch {
	case ev.evaluator.music == nil:
		ev.trackErr = fmt.Errorf("music: %w", common.ErrCollaboratorUnset)
	case ev.activity.DateStart.IsZero():
		ev.trackErr = fmt.Errorf("%w: dateStart", ErrMissingField)
	default:
		ev.track, ev.trackErr = ev.evaluator.music.TrackAt(ctx, ev.user, ev.activity.DateStart)
	}
	return ev.track, ev.trackErr
}

// Condition evaluates a single condition. Any failure is returned as a
// *ConditionEvaluationError together with a false result.
func (ev *Evaluation) Condition(ctx context.Context, cond model.Condition) (bool, error) {
	prop, ok := ev.evaluator.catalog.Lookup(cond.Property)
	if !ok {
		return false, &ConditionEvaluationError{Property: cond.Property, Operator: cond.Operator, Err: ErrUnknownProperty}
	}
	if !prop.Allows(cond.Operator) {
		return false, &ConditionEvaluationError{Property: cond.Property, Operator: cond.Operator, Err: ErrInvalidOperator}
	}

	matched, err := ev.dispatch(ctx, prop, cond)
	if err != nil {
		return false, &ConditionEvaluationError{Property: cond.Property, Operator: cond.Operator, Err: err}
	}
	return matched, nil
}

func (ev *Evaluation) dispatch(ctx context.Context, prop Property, cond model.Condition) (bool, error) {
	a := ev.activity

	switch prop.Category {
	case CategoryWeather:
		w, err := ev.Weather(ctx)
		if err != nil {
			return false, err
		}
		if prop.weatherNumber != nil {
			return matchNumber(cond.Operator, prop.weatherNumber(*w), cond.Value)
		}
		return compareText(cond.Operator, prop.weatherText(*w), cond.Value)

	case CategoryMusic:
		track, err := ev.Track(ctx)
		if err != nil {
			return false, err
		}
		return matchTrack(cond.Operator, track, cond.Value)

	case CategorySportType:
		return applyEquality(cond.Operator, strings.EqualFold(string(a.SportType), strings.TrimSpace(cond.Value)))

	case CategoryGear:
		target := strings.TrimSpace(cond.Value)
		if g, ok := ev.user.FindGear(target); ok {
			target = g.ID
		}
		return applyEquality(cond.Operator, a.GearID != "" && a.GearID == target)

	case CategoryWeekday:
		if a.DateStart.IsZero() {
			return false, fmt.Errorf("%w: dateStart", ErrMissingField)
		}
		day, err := parseWeekday(cond.Value)
		if err != nil {
			return false, err
		}
		return applyEquality(cond.Operator, int(a.DateStart.Weekday()) == day)

	case CategoryRecordEvent:
		return matchRecords(cond.Operator, a.NewRecords, cond.Value)

	case CategoryLocation:
		return matchLocation(cond.Operator, prop.location(a), cond.Value)

	case CategoryTime:
		return matchTime(cond.Operator, prop.timestamp(a), cond.Value)

	case CategoryBoolean:
		target, err := parseBool(cond.Value)
		if err != nil {
			return false, err
		}
		return applyEquality(cond.Operator, prop.flag(a) == target)

	case CategoryNumber:
		return matchNumber(cond.Operator, prop.number(a), cond.Value)

	default:
		return compareText(cond.Operator, prop.text(a), cond.Value)
	}
}

func applyEquality(op model.Operator, equal bool) (bool, error) {
	switch op {
	case model.OpEqual:
		return equal, nil
	case model.OpNotEqual:
		return !equal, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

func matchNumber(op model.Operator, actual float64, value string) (bool, error) {
	target, err := parseNumber(value)
	if err != nil {
		return false, err
	}

	switch op {
	case model.OpEqual:
		return actual == target, nil
	case model.OpNotEqual:
		return actual != target, nil
	case model.OpGreaterThan:
		return actual > target, nil
	case model.OpLessThan:
		return actual < target, nil
	case model.OpLike:
		return math.Abs(actual-target) <= math.Abs(target)*numberLikeTolerance, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

func compareText(op model.Operator, actual, value string) (bool, error) {
	actual = strings.ToLower(strings.TrimSpace(actual))
	target := strings.ToLower(strings.TrimSpace(value))

	switch op {
	case model.OpEqual:
		return actual == target, nil
	case model.OpNotEqual:
		return actual != target, nil
	case model.OpLike:
		return strings.Contains(actual, target), nil
	case model.OpNotLike:
		return !strings.Contains(actual, target), nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

// matchTrack compares against "Artist - Title". Equality also accepts the
// bare title. Nothing playing compares as an empty string.
func matchTrack(op model.Operator, track *model.Track, value string) (bool, error) {
	if track == nil {
		return compareText(op, "", value)
	}

	switch op {
	case model.OpEqual, model.OpNotEqual:
		equal := strings.EqualFold(track.String(), strings.TrimSpace(value)) ||
			strings.EqualFold(track.Title, strings.TrimSpace(value))
		return applyEquality(op, equal)
	}
	return compareText(op, track.String(), value)
}

// matchTime reduces the timestamp to HHmm and compares it with the target.
func matchTime(op model.Operator, t time.Time, value string) (bool, error) {
	if t.IsZero() {
		return false, fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	target, err := parseNumber(value)
	if err != nil {
		return false, err
	}
	actual := float64(t.Hour()*100 + t.Minute())

	switch op {
	case model.OpEqual:
		return math.Abs(actual-target) <= timeEqualTolerance, nil
	case model.OpLike:
		return math.Abs(actual-target) <= timeLikeTolerance, nil
	case model.OpGreaterThan:
		return actual > target, nil
	case model.OpLessThan:
		return actual < target, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

// matchLocation checks that the coordinates fall inside a box around the
// target. Latitude and longitude are checked independently.
func matchLocation(op model.Operator, actual *model.LatLng, value string) (bool, error) {
	if actual == nil {
		return false, fmt.Errorf("%w: location", ErrMissingField)
	}
	target, err := model.ParseLatLng(value)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	var tolerance float64
	switch op {
	case model.OpEqual:
		tolerance = locationEqualTolerance
	case model.OpLike:
		tolerance = locationLikeTolerance
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}

	return math.Abs(actual.Lat()-target.Lat()) <= tolerance &&
		math.Abs(actual.Lng()-target.Lng()) <= tolerance, nil
}

// matchRecords accepts either a boolean (any new record at all) or the name
// of a specific record metric.
func matchRecords(op model.Operator, records []string, value string) (bool, error) {
	if want, err := parseBool(value); err == nil {
		return applyEquality(op, (len(records) > 0) == want)
	}

	found := false
	for _, r := range records {
		if strings.EqualFold(r, strings.TrimSpace(value)) {
			found = true
			break
		}
	}
	return applyEquality(op, found)
}

func parseNumber(value string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
	}
	return n, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
}

func parseWeekday(value string) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || day < 0 || day > 6 {
		return 0, fmt.Errorf("%w: %q is not a weekday (0-6)", ErrInvalidValue, value)
	}
	return day, nil
}
