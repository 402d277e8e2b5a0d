package recipe

import (
	"testing"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_PropertiesHaveAccessors(t *testing.T) {
	for _, p := range DefaultCatalog().Properties() {
		t.Run(p.Name, func(t *testing.T) {
			assert.NotEmpty(t, p.Text)
			assert.NotEmpty(t, p.Operators)

			switch p.Category {
			case CategoryBoolean:
				assert.NotNil(t, p.flag)
			case CategoryNumber:
				assert.NotNil(t, p.number)
			case CategoryText:
				assert.NotNil(t, p.text)
			case CategoryTime:
				assert.NotNil(t, p.timestamp)
			case CategoryLocation:
				assert.NotNil(t, p.location)
			case CategoryWeather:
				assert.True(t, (p.weatherNumber != nil) != (p.weatherText != nil), "exactly one weather accessor")
			}
		})
	}
}

func TestCatalog_LegalOperators(t *testing.T) {
	tests := []struct {
		property string
		allowed  []model.Operator
		denied   []model.Operator
	}{
		{"commute", []model.Operator{model.OpEqual, model.OpNotEqual}, []model.Operator{model.OpLike, model.OpGreaterThan}},
		{"distance", []model.Operator{model.OpEqual, model.OpGreaterThan, model.OpLessThan, model.OpLike}, []model.Operator{model.OpNotLike}},
		{"name", []model.Operator{model.OpEqual, model.OpLike, model.OpNotLike}, []model.Operator{model.OpGreaterThan}},
		{"startTime", []model.Operator{model.OpEqual, model.OpLike, model.OpGreaterThan, model.OpLessThan}, []model.Operator{model.OpNotEqual, model.OpNotLike}},
		{"locationStart", []model.Operator{model.OpEqual, model.OpLike}, []model.Operator{model.OpNotEqual, model.OpGreaterThan, model.OpLessThan, model.OpNotLike}},
		{"weather.temperature", []model.Operator{model.OpGreaterThan, model.OpLike}, []model.Operator{model.OpNotLike}},
		{"weather.summary", []model.Operator{model.OpLike, model.OpNotLike}, []model.Operator{model.OpGreaterThan}},
		{"sportType", []model.Operator{model.OpEqual, model.OpNotEqual}, []model.Operator{model.OpLike}},
		{"weekday", []model.Operator{model.OpEqual, model.OpNotEqual}, []model.Operator{model.OpGreaterThan}},
	}

	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			p, ok := DefaultCatalog().Lookup(tt.property)
			require.True(t, ok)
			for _, op := range tt.allowed {
				assert.True(t, p.Allows(op), "expected %q to be allowed", op)
			}
			for _, op := range tt.denied {
				assert.False(t, p.Allows(op), "expected %q to be denied", op)
			}
		})
	}
}

func TestCatalog_Lookup(t *testing.T) {
	_, ok := DefaultCatalog().Lookup("altitude")
	assert.False(t, ok)

	p, ok := DefaultCatalog().Lookup("weather.temperature")
	require.True(t, ok)
	assert.Equal(t, CategoryWeather, p.Category)
	assert.True(t, p.Numeric())

	p, ok = DefaultCatalog().Lookup("weather.summary")
	require.True(t, ok)
	assert.False(t, p.Numeric())
}

func TestCatalog_ActionOrder(t *testing.T) {
	c := DefaultCatalog()

	flag, ok := c.Action(model.ActionHideStatPower)
	require.True(t, ok)
	transform, ok := c.Action(model.ActionGear)
	require.True(t, ok)
	text, ok := c.Action(model.ActionAppendDescription)
	require.True(t, ok)
	webhook, ok := c.Action(model.ActionWebhook)
	require.True(t, ok)

	assert.Less(t, flag.Category, transform.Category)
	assert.Less(t, transform.Category, text.Category)
	assert.Less(t, text.Category, webhook.Category)

	_, ok = c.Action("tweet")
	assert.False(t, ok)
}
