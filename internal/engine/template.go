package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9_.]*)\}`)

const weatherPrefix = "weather."

// templateData resolves ${field} tokens for one action. Activity fields,
// the stats counter and weather are computed only when a token asks for them.
type templateData struct {
	weather   func(ctx context.Context) (*model.WeatherSummary, error)
	counter   func(ctx context.Context) (int, error)
	fields    map[string]string
	generated string
	activity  model.Activity
}

// render substitutes every token in tmpl. Unknown tokens resolve to an empty
// string; failed weather or counter lookups abort the render.
func (d *templateData) render(ctx context.Context, tmpl string) (string, error) {
	var renderErr error
	out := tokenPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		if renderErr != nil {
			return ""
		}
		name := tokenPattern.FindStringSubmatch(token)[1]
		value, err := d.lookup(ctx, name)
		if err != nil {
			renderErr = fmt.Errorf("resolving ${%s}: %w", name, err)
			return ""
		}
		return value
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

func (d *templateData) lookup(ctx context.Context, name string) (string, error) {
	switch {
	case name == "counter":
		if d.counter == nil {
			return "", nil
		}
		n, err := d.counter(ctx)
		if err != nil {
			return "", err
		}
		// counter includes the trigger being processed
		return strconv.Itoa(n + 1), nil
	case name == "generated":
		return d.generated, nil
	case name == "distanceKm":
		return strconv.FormatFloat(d.activity.Distance/1000, 'f', 1, 64), nil
	case name == "movingTimeText":
		return durationText(d.activity.MovingTime), nil
	case strings.HasPrefix(name, weatherPrefix):
		return d.weatherField(ctx, strings.TrimPrefix(name, weatherPrefix))
	}

	if d.fields == nil {
		fields, err := activityFields(d.activity)
		if err != nil {
			return "", err
		}
		d.fields = fields
	}
	return d.fields[name], nil
}

func (d *templateData) weatherField(ctx context.Context, field string) (string, error) {
	if d.weather == nil {
		return "", nil
	}
	w, err := d.weather(ctx)
	if err != nil {
		return "", err
	}

	switch field {
	case "temperature":
		return formatNumber(w.Temperature), nil
	case "feelsLike":
		return formatNumber(w.FeelsLike), nil
	case "humidity":
		return formatNumber(w.Humidity), nil
	case "windSpeed":
		return formatNumber(w.WindSpeed), nil
	case "windDirection":
		return formatNumber(w.WindDirection), nil
	case "cloudCover":
		return formatNumber(w.CloudCover), nil
	case "rain":
		return formatNumber(w.RainAmount), nil
	case "precipitation":
		return w.Precipitation, nil
	case "summary":
		return w.Summary, nil
	}
	return "", nil
}

// activityFields flattens the activity's JSON representation into strings.
func activityFields(a model.Activity) (map[string]string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activity: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case float64:
			fields[k] = formatNumber(val)
		case bool:
			fields[k] = strconv.FormatBool(val)
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			fields[k] = strings.Join(parts, ", ")
		}
	}

	// dates read better without the RFC 3339 noise
	if !a.DateStart.IsZero() {
		fields["dateStart"] = a.DateStart.Format("2006-01-02 15:04")
	}
	if !a.DateEnd.IsZero() {
		fields["dateEnd"] = a.DateEnd.Format("2006-01-02 15:04")
	}
	return fields, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// durationText renders seconds as h:mm:ss, or m:ss below an hour.
func durationText(seconds int) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var partsOfDay = []struct {
	name  string
	until int
}{
	{"Night", 5},
	{"Morning", 12},
	{"Afternoon", 17},
	{"Evening", 21},
	{"Night", 24},
}

// generatedName builds a default title such as "Morning Ride".
func generatedName(a model.Activity) string {
	sport := string(a.SportType)
	if sport == "" {
		sport = "Activity"
	}
	if a.DateStart.IsZero() {
		return sport
	}
	hour := a.DateStart.Hour()
	for _, p := range partsOfDay {
		if hour < p.until {
			return p.name + " " + sport
		}
	}
	return sport
}

// generatedDescription summarizes the main metrics of an activity.
func generatedDescription(a model.Activity) string {
	parts := make([]string, 0, 4)
	if a.Distance > 0 {
		parts = append(parts, strconv.FormatFloat(a.Distance/1000, 'f', 1, 64)+" km")
	}
	if a.MovingTime > 0 {
		parts = append(parts, durationText(a.MovingTime))
	}
	if a.ElevationGain > 0 {
		parts = append(parts, strconv.FormatFloat(a.ElevationGain, 'f', 0, 64)+" m climbing")
	}
	if a.HRAvg > 0 {
		parts = append(parts, "avg HR "+strconv.FormatFloat(a.HRAvg, 'f', 0, 64))
	}
	return strings.Join(parts, ", ")
}
