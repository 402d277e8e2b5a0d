package recipe

import (
	"sort"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// Category is the semantic type of a condition property. It decides which
// operators are legal and which predicate evaluates the condition.
type Category string

// Property categories.
const (
	CategoryBoolean     Category = "boolean"
	CategoryNumber      Category = "number"
	CategoryText        Category = "text"
	CategoryTime        Category = "time"
	CategoryLocation    Category = "location"
	CategoryWeather     Category = "weather"
	CategoryMusic       Category = "music"
	CategoryGear        Category = "gear"
	CategorySportType   Category = "sportType"
	CategoryWeekday     Category = "weekday"
	CategoryRecordEvent Category = "recordEvent"
)

var (
	equalityOperators = []model.Operator{model.OpEqual, model.OpNotEqual}
	numberOperators   = []model.Operator{model.OpEqual, model.OpNotEqual, model.OpGreaterThan, model.OpLessThan, model.OpLike}
	textOperators     = []model.Operator{model.OpEqual, model.OpNotEqual, model.OpLike, model.OpNotLike}
	timeOperators     = []model.Operator{model.OpEqual, model.OpLike, model.OpGreaterThan, model.OpLessThan}
	locationOperators = []model.Operator{model.OpEqual, model.OpLike}
)

// Property describes one recognized condition property. Exactly one of the
// accessors is set, matching the category.
type Property struct {
	flag      func(model.Activity) bool
	number    func(model.Activity) float64
	text      func(model.Activity) string
	timestamp func(model.Activity) time.Time
	location  func(model.Activity) *model.LatLng

	weatherNumber func(model.WeatherSummary) float64
	weatherText   func(model.WeatherSummary) string

	Name      string
	Text      string
	Category  Category
	Operators []model.Operator
}

// Allows reports whether op is legal for the property.
func (p Property) Allows(op model.Operator) bool {
	for _, o := range p.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Numeric reports whether condition values for the property must be numbers.
func (p Property) Numeric() bool {
	switch p.Category {
	case CategoryNumber, CategoryTime:
		return true
	case CategoryWeather:
		return p.weatherNumber != nil
	}
	return false
}

// ActionCategory groups action types by their position in the dispatch pipeline.
// Lower categories run first.
type ActionCategory int

// Action categories in execution order.
const (
	ActionCategoryFlag ActionCategory = iota
	ActionCategoryTransform
	ActionCategoryText
	ActionCategoryWebhook
)

// ActionSpec describes one recognized action type.
type ActionSpec struct {
	Type     model.ActionType
	Text     string
	Category ActionCategory
}

// Catalog is the closed registry of condition properties and action types.
// It is immutable once built.
type Catalog struct {
	properties map[string]Property
	actions    map[model.ActionType]ActionSpec
	names      []string
}

var defaultCatalog = buildCatalog()

// DefaultCatalog returns the shared catalog of every supported property and action.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Lookup resolves a property by name.
func (c *Catalog) Lookup(name string) (Property, bool) {
	p, ok := c.properties[name]
	return p, ok
}

// Properties returns every property sorted by name.
func (c *Catalog) Properties() []Property {
	props := make([]Property, 0, len(c.names))
	for _, name := range c.names {
		props = append(props, c.properties[name])
	}
	return props
}

// Action resolves an action type.
func (c *Catalog) Action(t model.ActionType) (ActionSpec, bool) {
	spec, ok := c.actions[t]
	return spec, ok
}

func buildCatalog() *Catalog {
	c := &Catalog{
		properties: make(map[string]Property),
		actions:    make(map[model.ActionType]ActionSpec),
	}

	flag := func(name, text string, fn func(model.Activity) bool) {
		c.add(Property{Name: name, Text: text, Category: CategoryBoolean, Operators: equalityOperators, flag: fn})
	}
	number := func(name, text string, fn func(model.Activity) float64) {
		c.add(Property{Name: name, Text: text, Category: CategoryNumber, Operators: numberOperators, number: fn})
	}
	text := func(name, label string, fn func(model.Activity) string) {
		c.add(Property{Name: name, Text: label, Category: CategoryText, Operators: textOperators, text: fn})
	}
	weatherNumber := func(name, label string, fn func(model.WeatherSummary) float64) {
		c.add(Property{Name: "weather." + name, Text: label, Category: CategoryWeather, Operators: numberOperators, weatherNumber: fn})
	}
	weatherText := func(name, label string, fn func(model.WeatherSummary) string) {
		c.add(Property{Name: "weather." + name, Text: label, Category: CategoryWeather, Operators: textOperators, weatherText: fn})
	}

	flag("commute", "Commute", func(a model.Activity) bool { return a.Commute })
	flag("trainer", "Trainer", func(a model.Activity) bool { return a.Trainer })
	flag("manual", "Manual", func(a model.Activity) bool { return a.Manual })
	flag("private", "Private", func(a model.Activity) bool { return a.Private })
	flag("hasPhotos", "Has photos", func(a model.Activity) bool { return a.HasPhotos })

	number("distance", "Distance", func(a model.Activity) float64 { return a.Distance })
	number("movingTime", "Moving time", func(a model.Activity) float64 { return float64(a.MovingTime) })
	number("elapsedTime", "Elapsed time", func(a model.Activity) float64 { return float64(a.ElapsedTime) })
	number("elevationGain", "Elevation gain", func(a model.Activity) float64 { return a.ElevationGain })
	number("elevationMax", "Max elevation", func(a model.Activity) float64 { return a.ElevationMax })
	number("speedAvg", "Average speed", func(a model.Activity) float64 { return a.SpeedAvg })
	number("speedMax", "Max speed", func(a model.Activity) float64 { return a.SpeedMax })
	number("wattsAvg", "Average power", func(a model.Activity) float64 { return a.WattsAvg })
	number("wattsWeighted", "Weighted power", func(a model.Activity) float64 { return a.WattsWeighted })
	number("wattsMax", "Max power", func(a model.Activity) float64 { return a.WattsMax })
	number("hrAvg", "Average heart rate", func(a model.Activity) float64 { return a.HRAvg })
	number("hrMax", "Max heart rate", func(a model.Activity) float64 { return a.HRMax })
	number("cadenceAvg", "Average cadence", func(a model.Activity) float64 { return a.CadenceAvg })
	number("calories", "Calories", func(a model.Activity) float64 { return a.Calories })
	number("relativeEffort", "Relative effort", func(a model.Activity) float64 { return a.RelativeEffort })

	text("name", "Name", func(a model.Activity) string { return a.Name })
	text("description", "Description", func(a model.Activity) string { return a.Description })
	text("device", "Device", func(a model.Activity) string { return a.Device })

	c.add(Property{Name: "startTime", Text: "Start time", Category: CategoryTime, Operators: timeOperators,
		timestamp: func(a model.Activity) time.Time { return a.DateStart }})
	c.add(Property{Name: "endTime", Text: "End time", Category: CategoryTime, Operators: timeOperators,
		timestamp: func(a model.Activity) time.Time { return a.DateEnd }})

	c.add(Property{Name: "locationStart", Text: "Start location", Category: CategoryLocation, Operators: locationOperators,
		location: func(a model.Activity) *model.LatLng { return a.LocationStart }})
	c.add(Property{Name: "locationEnd", Text: "End location", Category: CategoryLocation, Operators: locationOperators,
		location: func(a model.Activity) *model.LatLng { return a.LocationEnd }})

	weatherNumber("temperature", "Temperature", func(w model.WeatherSummary) float64 { return w.Temperature })
	weatherNumber("feelsLike", "Feels like", func(w model.WeatherSummary) float64 { return w.FeelsLike })
	weatherNumber("humidity", "Humidity", func(w model.WeatherSummary) float64 { return w.Humidity })
	weatherNumber("windSpeed", "Wind speed", func(w model.WeatherSummary) float64 { return w.WindSpeed })
	weatherNumber("cloudCover", "Cloud cover", func(w model.WeatherSummary) float64 { return w.CloudCover })
	weatherNumber("rain", "Rain", func(w model.WeatherSummary) float64 { return w.RainAmount })
	weatherText("precipitation", "Precipitation", func(w model.WeatherSummary) string { return w.Precipitation })
	weatherText("summary", "Weather", func(w model.WeatherSummary) string { return w.Summary })

	c.add(Property{Name: "music.track", Text: "Track playing", Category: CategoryMusic, Operators: textOperators})
	c.add(Property{Name: "gear", Text: "Gear", Category: CategoryGear, Operators: equalityOperators})
	c.add(Property{Name: "sportType", Text: "Sport type", Category: CategorySportType, Operators: equalityOperators})
	c.add(Property{Name: "weekday", Text: "Week day", Category: CategoryWeekday, Operators: equalityOperators})
	c.add(Property{Name: "newRecords", Text: "New records", Category: CategoryRecordEvent, Operators: equalityOperators})

	for _, spec := range []ActionSpec{
		{Type: model.ActionCommute, Text: "Mark as commute", Category: ActionCategoryFlag},
		{Type: model.ActionPrivate, Text: "Mark as private", Category: ActionCategoryFlag},
		{Type: model.ActionHideHome, Text: "Hide from home feed", Category: ActionCategoryFlag},
		{Type: model.ActionHideStatPace, Text: "Hide pace", Category: ActionCategoryFlag},
		{Type: model.ActionHideStatSpeed, Text: "Hide speed", Category: ActionCategoryFlag},
		{Type: model.ActionHideStatCalories, Text: "Hide calories", Category: ActionCategoryFlag},
		{Type: model.ActionHideStatHeartRate, Text: "Hide heart rate", Category: ActionCategoryFlag},
		{Type: model.ActionHideStatPower, Text: "Hide power", Category: ActionCategoryFlag},
		{Type: model.ActionGear, Text: "Set gear", Category: ActionCategoryTransform},
		{Type: model.ActionSportType, Text: "Set sport type", Category: ActionCategoryTransform},
		{Type: model.ActionWorkoutType, Text: "Set workout type", Category: ActionCategoryTransform},
		{Type: model.ActionMapStyle, Text: "Set map style", Category: ActionCategoryTransform},
		{Type: model.ActionName, Text: "Set activity name", Category: ActionCategoryText},
		{Type: model.ActionPrependName, Text: "Prepend to activity name", Category: ActionCategoryText},
		{Type: model.ActionAppendName, Text: "Append to activity name", Category: ActionCategoryText},
		{Type: model.ActionGenerateName, Text: "Generate activity name", Category: ActionCategoryText},
		{Type: model.ActionDescription, Text: "Set description", Category: ActionCategoryText},
		{Type: model.ActionPrependDescription, Text: "Prepend to description", Category: ActionCategoryText},
		{Type: model.ActionAppendDescription, Text: "Append to description", Category: ActionCategoryText},
		{Type: model.ActionGenerateDescription, Text: "Generate description", Category: ActionCategoryText},
		{Type: model.ActionWebhook, Text: "Send to webhook", Category: ActionCategoryWebhook},
	} {
		c.actions[spec.Type] = spec
	}

	sort.Strings(c.names)
	return c
}

func (c *Catalog) add(p Property) {
	c.properties[p.Name] = p
	c.names = append(c.names, p.Name)
}
