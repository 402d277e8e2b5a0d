package recipe

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecipe() *model.Recipe {
	return &model.Recipe{
		ID:    "r1",
		Title: "Long ride",
		Conditions: []model.Condition{
			cond("distance", model.OpGreaterThan, "10000"),
			cond("sportType", model.OpEqual, "Ride"),
		},
		Actions: []model.Action{
			{Type: model.ActionName, Value: "Long ride ${distanceKm} km"},
		},
		Order: 3,
	}
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(r *model.Recipe)
		name    string
		errMsg  string
		wantErr bool
	}{
		{
			name:   "valid recipe",
			mutate: func(_ *model.Recipe) {},
		},
		{
			name:    "missing title",
			mutate:  func(r *model.Recipe) { r.Title = "  " },
			wantErr: true,
			errMsg:  "missing title",
		},
		{
			name:    "title too long",
			mutate:  func(r *model.Recipe) { r.Title = strings.Repeat("x", 101) },
			wantErr: true,
			errMsg:  "title is too long",
		},
		{
			name:    "no actions",
			mutate:  func(r *model.Recipe) { r.Actions = nil },
			wantErr: true,
			errMsg:  "missing actions",
		},
		{
			name:    "only empty actions",
			mutate:  func(r *model.Recipe) { r.Actions = []model.Action{{}, {}} },
			wantErr: true,
			errMsg:  "missing actions",
		},
		{
			name:    "no conditions",
			mutate:  func(r *model.Recipe) { r.Conditions = []model.Condition{{}} },
			wantErr: true,
			errMsg:  "missing conditions",
		},
		{
			name:    "invalid op",
			mutate:  func(r *model.Recipe) { r.Op = "XOR" },
			wantErr: true,
			errMsg:  "invalid op",
		},
		{
			name:    "unknown property",
			mutate:  func(r *model.Recipe) { r.Conditions[0].Property = "altitude" },
			wantErr: true,
			errMsg:  `condition 1: unknown property "altitude"`,
		},
		{
			name:    "illegal operator for location",
			mutate:  func(r *model.Recipe) { r.Conditions[1] = cond("locationStart", model.OpGreaterThan, "52.1,4.3") },
			wantErr: true,
			errMsg:  "condition 2: operator",
		},
		{
			name:    "illegal operator for sport type",
			mutate:  func(r *model.Recipe) { r.Conditions[1].Operator = model.OpLike },
			wantErr: true,
			errMsg:  "is not valid for sportType",
		},
		{
			name:    "numeric property with text value",
			mutate:  func(r *model.Recipe) { r.Conditions[0].Value = "ten" },
			wantErr: true,
			errMsg:  "invalid value for distance",
		},
		{
			name:    "boolean property with invalid value",
			mutate:  func(r *model.Recipe) { r.Conditions[0] = cond("commute", model.OpEqual, "yes") },
			wantErr: true,
			errMsg:  "invalid value for commute",
		},
		{
			name:   "boolean property with numeric value",
			mutate: func(r *model.Recipe) { r.Conditions[0] = cond("commute", model.OpEqual, "1") },
		},
		{
			name:    "unknown sport type",
			mutate:  func(r *model.Recipe) { r.Conditions[1].Value = "Hovercraft" },
			wantErr: true,
			errMsg:  "is not a sport type",
		},
		{
			name:    "weekday out of range",
			mutate:  func(r *model.Recipe) { r.Conditions[1] = cond("weekday", model.OpEqual, "7") },
			wantErr: true,
			errMsg:  "invalid value for weekday",
		},
		{
			name:    "malformed location",
			mutate:  func(r *model.Recipe) { r.Conditions[1] = cond("locationStart", model.OpLike, "home") },
			wantErr: true,
			errMsg:  "invalid value for locationStart",
		},
		{
			name:    "missing condition value",
			mutate:  func(r *model.Recipe) { r.Conditions[0].Value = "" },
			wantErr: true,
			errMsg:  "missing value for distance",
		},
		{
			name:    "condition value too long",
			mutate:  func(r *model.Recipe) { r.Conditions[1] = cond("name", model.OpLike, strings.Repeat("a", 1001)) },
			wantErr: true,
			errMsg:  "value is too long",
		},
		{
			name:    "friendly value too long",
			mutate:  func(r *model.Recipe) { r.Conditions[0].FriendlyValue = strings.Repeat("a", 201) },
			wantErr: true,
			errMsg:  "friendly value is too long",
		},
		{
			name: "condition with extra fields",
			mutate: func(r *model.Recipe) {
				r.Conditions[0].Extra = map[string]json.RawMessage{"unit": json.RawMessage(`"km"`)}
			},
			wantErr: true,
			errMsg:  "unexpected fields unit",
		},
		{
			name:    "unknown action type",
			mutate:  func(r *model.Recipe) { r.Actions[0].Type = "tweet" },
			wantErr: true,
			errMsg:  `action 1: unknown action type "tweet"`,
		},
		{
			name:    "action without value",
			mutate:  func(r *model.Recipe) { r.Actions = append(r.Actions, model.Action{Type: model.ActionPrivate}) },
			wantErr: true,
			errMsg:  "action 2: missing value for private",
		},
		{
			name:   "commute action without value",
			mutate: func(r *model.Recipe) { r.Actions = append(r.Actions, model.Action{Type: model.ActionCommute}) },
		},
		{
			name:    "action value too long",
			mutate:  func(r *model.Recipe) { r.Actions[0].Value = strings.Repeat("a", 2001) },
			wantErr: true,
			errMsg:  "value is too long",
		},
		{
			name:    "webhook with invalid URL",
			mutate:  func(r *model.Recipe) { r.Actions[0] = model.Action{Type: model.ActionWebhook, Value: "ftp://example.com"} },
			wantErr: true,
			errMsg:  "invalid webhook URL",
		},
		{
			name: "webhook with valid URL",
			mutate: func(r *model.Recipe) {
				r.Actions[0] = model.Action{Type: model.ActionWebhook, Value: "https://hooks.example.com/recipe?id=1"}
			},
		},
		{
			name: "action with extra fields",
			mutate: func(r *model.Recipe) {
				r.Actions[0].Extra = map[string]json.RawMessage{"delay": json.RawMessage(`5`)}
			},
			wantErr: true,
			errMsg:  "unexpected fields delay",
		},
		{
			name:    "default recipe for unknown sport",
			mutate:  func(r *model.Recipe) { r.DefaultFor = "Hovercraft" },
			wantErr: true,
			errMsg:  "invalid defaultFor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := bufferLogger()
			v := NewValidator(nil, Limits{}, logger)

			r := validRecipe()
			tt.mutate(r)
			err := v.Validate(r)

			if tt.wantErr {
				require.Error(t, err)
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidator_Normalizes(t *testing.T) {
	t.Run("strips unknown top-level fields", func(t *testing.T) {
		logger, buf := bufferLogger()
		r := validRecipe()
		r.Extra = map[string]json.RawMessage{"color": json.RawMessage(`"red"`), "author": json.RawMessage(`"me"`)}

		require.NoError(t, NewValidator(nil, Limits{}, logger).Validate(r))
		assert.Nil(t, r.Extra)
		assert.Contains(t, buf.String(), "removing unknown recipe fields")
		assert.Contains(t, buf.String(), "fields=author,color")
	})

	t.Run("drops empty entries", func(t *testing.T) {
		r := validRecipe()
		r.Conditions = append([]model.Condition{{}}, r.Conditions...)
		r.Actions = append(r.Actions, model.Action{})

		require.NoError(t, NewValidator(nil, Limits{}, nil).Validate(r))
		assert.Len(t, r.Conditions, 2)
		assert.Len(t, r.Actions, 1)
	})

	t.Run("default recipe ignores conditions", func(t *testing.T) {
		r := validRecipe()
		r.DefaultFor = model.SportRun
		r.Conditions = append(r.Conditions, cond("altitude", model.OpEqual, "not checked"))

		require.NoError(t, NewValidator(nil, Limits{}, nil).Validate(r))
		assert.Equal(t, 0, r.Order)
		assert.Empty(t, r.Conditions)
		assert.NotNil(t, r.Conditions)
	})

	t.Run("leaves logical operators unset", func(t *testing.T) {
		r := validRecipe()
		require.NoError(t, NewValidator(nil, Limits{}, nil).Validate(r))
		assert.Empty(t, r.Op)
		assert.Empty(t, r.SamePropertyOp)
	})

	t.Run("custom limits", func(t *testing.T) {
		r := validRecipe()
		err := NewValidator(nil, Limits{MaxTitleLength: 5}, nil).Validate(r)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max 5")
	})
}

func TestIsWebhookURL(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"https://example.com/hook", true},
		{"http://127.0.0.1:8080/hook", true},
		{"http://localhost:9000", true},
		{"https://hooks.example.com/a?b=c#d", true},
		{"example.com/hook", false},
		{"ftp://example.com", false},
		{"https://", false},
		{"https://nodot/hook", false},
		{"https://exa mple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWebhookURL(tt.value))
		})
	}
}
