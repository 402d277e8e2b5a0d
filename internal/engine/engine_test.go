package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/recipe"
	"github.com/Veraticus/the-recipe-must-flow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ProcessScenarios(t *testing.T) {
	tests := []struct {
		name      string
		activity  func() model.Activity
		recipe    model.Recipe
		wantName  string
		wantGear  string
		wantFired bool
	}{
		{
			name:      "long ride is renamed",
			activity:  testutil.RideActivity,
			recipe:    testutil.LongRideRecipe(),
			wantFired: true,
			wantName:  "Long ride of 15.0 km",
			wantGear:  testutil.BikeGravelID,
		},
		{
			name:     "run does not match ride recipe",
			activity: testutil.RunActivity,
			recipe:   testutil.LongRideRecipe(),
			wantName: "Lunch Run",
			wantGear: testutil.ShoesID,
		},
		{
			name: "default run recipe sets shoes",
			activity: func() model.Activity {
				a := testutil.RunActivity()
				a.GearID = ""
				return a
			},
			recipe:    testutil.DefaultRunRecipe(),
			wantFired: true,
			wantName:  "Lunch Run",
			wantGear:  testutil.ShoesID,
		},
		{
			name:     "default run recipe ignores rides",
			activity: testutil.RideActivity,
			recipe:   testutil.DefaultRunRecipe(),
			wantName: "Morning Ride",
			wantGear: testutil.BikeGravelID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, Dependencies{}, Config{})
			r := e.db.MustSaveRecipe(e.user.ID, tt.recipe)

			activity := tt.activity()
			out, err := e.Process(context.Background(), e.user, &activity)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFired, out.Matched())
			assert.Equal(t, tt.wantName, activity.Name)
			assert.Equal(t, tt.wantGear, activity.GearID)
			assert.Equal(t, activity, out.Activity)

			_, err = e.db.Storage.GetRecipeStats(context.Background(), e.user.ID, r.ID)
			if !tt.wantFired {
				require.ErrorIs(t, err, common.ErrNotFound)
				return
			}
			require.NoError(t, err)
			stats := e.db.MustGetStats(e.user.ID, r.ID)
			assert.Equal(t, 1, stats.ActivityCount)
			assert.Equal(t, 1, stats.Counter)
			assert.Zero(t, stats.RecentFailures)
			assert.Equal(t, []string{activity.IDString()}, stats.Activities)
		})
	}
}

func TestEngine_ProcessOrderAndKillSwitch(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, Config{})

	e.db.MustSaveRecipe(e.user.ID, model.Recipe{
		ID:         "to-gravel",
		Title:      "Gravel bike means gravel",
		Conditions: []model.Condition{{Property: "gear", Operator: model.OpEqual, Value: "Gravel bike"}},
		Actions:    []model.Action{{Type: model.ActionSportType, Value: string(model.SportGravelRide)}},
		Order:      1,
	})
	e.db.MustSaveRecipe(e.user.ID, model.Recipe{
		ID:         "gravel-name",
		Title:      "Name gravel rides",
		Conditions: []model.Condition{{Property: "sportType", Operator: model.OpEqual, Value: string(model.SportGravelRide)}},
		Actions:    []model.Action{{Type: model.ActionName, Value: "Dirt day"}},
		Order:      2,
		KillSwitch: true,
	})
	e.db.MustSaveRecipe(e.user.ID, model.Recipe{
		ID:         "disabled",
		Title:      "Never runs",
		Conditions: []model.Condition{{Property: "distance", Operator: model.OpGreaterThan, Value: "0"}},
		Actions:    []model.Action{{Type: model.ActionPrivate, Value: "true"}},
		Order:      0,
		Disabled:   true,
	})
	e.db.MustSaveRecipe(e.user.ID, model.Recipe{
		ID:         "after-kill",
		Title:      "Stopped by kill switch",
		Conditions: []model.Condition{{Property: "distance", Operator: model.OpGreaterThan, Value: "0"}},
		Actions:    []model.Action{{Type: model.ActionAppendName, Value: "(late)"}},
		Order:      3,
	})

	activity := testutil.RideActivity()
	out, err := e.Process(context.Background(), e.user, &activity)
	require.NoError(t, err)

	assert.Equal(t, []string{"to-gravel", "gravel-name"}, out.Fired)
	assert.Equal(t, "gravel-name", out.StoppedBy)
	assert.Empty(t, out.Failed)
	assert.Equal(t, model.SportGravelRide, activity.SportType)
	assert.Equal(t, "Dirt day", activity.Name)
	assert.False(t, activity.Private)
	assert.Equal(t, []string{"sportType", "name"}, activity.UpdatedFields)

	assert.Equal(t, 2, e.metrics.evaluations[true])
	assert.Zero(t, e.metrics.evaluations[false])
	assert.Equal(t, 1, e.metrics.processed)
}

func TestEngine_FailureStreak(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, Config{})
	r := e.db.MustSaveRecipe(e.user.ID, model.Recipe{
		ID:         "lost-bike",
		Title:      "Use the old bike",
		Conditions: []model.Condition{{Property: "sportType", Operator: model.OpEqual, Value: "Ride"}},
		Actions: []model.Action{
			{Type: model.ActionGear, Value: "sold bike"},
			{Type: model.ActionName, Value: "Old bike ride"},
		},
	})

	for i := 0; i < 2; i++ {
		activity := testutil.RideActivity()
		activity.ID = int64(3000 + i)
		out, err := e.Process(context.Background(), e.user, &activity)
		require.NoError(t, err)
		assert.Equal(t, []string{r.ID}, out.Failed)
		require.Len(t, out.Errors, 1)
		require.ErrorIs(t, out.Errors[0], ErrGearNotFound)
		assert.Equal(t, "Old bike ride", activity.Name)
	}

	stats := e.db.MustGetStats(e.user.ID, r.ID)
	assert.Equal(t, 2, stats.RecentFailures)
	assert.Equal(t, 2, stats.ActivityCount)

	// fixing the recipe resets the streak on the next trigger
	r.Actions[0].Value = testutil.BikeRoadID
	e.db.MustSaveRecipe(e.user.ID, r)
	activity := testutil.RideActivity()
	_, err := e.Process(context.Background(), e.user, &activity)
	require.NoError(t, err)

	stats = e.db.MustGetStats(e.user.ID, r.ID)
	assert.Zero(t, stats.RecentFailures)
	assert.Equal(t, 3, stats.Counter)
}

func TestEngine_CounterTemplate(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, Config{})
	e.db.MustSaveRecipe(e.user.ID, model.Recipe{
		ID:         "numbered",
		Title:      "Number rides",
		Conditions: []model.Condition{{Property: "sportType", Operator: model.OpEqual, Value: "Ride"}},
		Actions:    []model.Action{{Type: model.ActionName, Value: "Ride #${counter}"}},
	})

	for i, want := range []string{"Ride #1", "Ride #2"} {
		activity := testutil.RideActivity()
		activity.ID = int64(4000 + i)
		_, err := e.Process(context.Background(), e.user, &activity)
		require.NoError(t, err)
		assert.Equal(t, want, activity.Name)
	}

	require.NoError(t, e.tracker.SetCounter(context.Background(), e.user.ID, "numbered", 41))
	activity := testutil.RideActivity()
	_, err := e.Process(context.Background(), e.user, &activity)
	require.NoError(t, err)
	assert.Equal(t, "Ride #42", activity.Name)
}

func TestEngine_Evaluate(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, Config{})
	r := e.db.MustSaveRecipe(e.user.ID, testutil.LongRideRecipe())

	activity := testutil.RideActivity()
	activity.UpdatedFields = []string{"gearId"}
	fired, err := e.Evaluate(context.Background(), e.user, r.ID, &activity)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, "Long ride of 15.0 km", activity.Name)
	assert.Equal(t, []string{"gearId", "name"}, activity.UpdatedFields)

	run := testutil.RunActivity()
	fired, err = e.Evaluate(context.Background(), e.user, r.ID, &run)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Empty(t, run.UpdatedFields)

	_, err = e.Evaluate(context.Background(), e.user, "missing", &run)
	require.ErrorIs(t, err, common.ErrRecipeNotFound)

	r.Disabled = true
	e.db.MustSaveRecipe(e.user.ID, r)
	activity = testutil.RideActivity()
	fired, err = e.Evaluate(context.Background(), e.user, r.ID, &activity)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestEngine_SaveRecipe(t *testing.T) {
	t.Run("invalid recipes are rejected", func(t *testing.T) {
		e := newTestEngine(t, Dependencies{}, Config{})
		r := testutil.LongRideRecipe()
		r.Title = ""

		err := e.SaveRecipe(context.Background(), e.user, &r)
		var validationErr *recipe.ValidationError
		require.ErrorAs(t, err, &validationErr)

		count, err := e.db.Storage.CountRecipes(context.Background(), e.user.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("missing id is generated", func(t *testing.T) {
		e := newTestEngine(t, Dependencies{}, Config{})
		r := testutil.LongRideRecipe()
		r.ID = ""

		require.NoError(t, e.SaveRecipe(context.Background(), e.user, &r))
		assert.NotEmpty(t, r.ID)

		stored, err := e.db.Storage.GetRecipe(context.Background(), e.user.ID, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Title, stored.Title)
	})

	t.Run("recipe limit", func(t *testing.T) {
		e := newTestEngine(t, Dependencies{}, Config{MaxRecipes: 2})
		pro := model.User{ID: "athlete-pro", IsPro: true}

		for i := 0; i < 2; i++ {
			r := testutil.LongRideRecipe()
			r.ID = fmt.Sprintf("r%d", i)
			require.NoError(t, e.SaveRecipe(context.Background(), e.user, &r))
			r.ID = fmt.Sprintf("pro%d", i)
			require.NoError(t, e.SaveRecipe(context.Background(), pro, &r))
		}

		extra := testutil.LongRideRecipe()
		extra.ID = "r2"
		require.ErrorIs(t, e.SaveRecipe(context.Background(), e.user, &extra), common.ErrRecipeLimit)

		// updates do not count against the limit
		update := testutil.LongRideRecipe()
		update.ID = "r1"
		update.Title = "Renamed"
		require.NoError(t, e.SaveRecipe(context.Background(), e.user, &update))

		// pro users get twice as many
		extra.ID = "pro2"
		require.NoError(t, e.SaveRecipe(context.Background(), pro, &extra))
		assert.Equal(t, 4, e.RecipeLimit(pro))
	})
}

func TestEngine_RemoveRecipe(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, Config{})
	r := e.db.MustSaveRecipe(e.user.ID, testutil.LongRideRecipe())

	activity := testutil.RideActivity()
	_, err := e.Process(context.Background(), e.user, &activity)
	require.NoError(t, err)

	require.NoError(t, e.RemoveRecipe(context.Background(), e.user.ID, r.ID))

	_, err = e.db.Storage.GetRecipe(context.Background(), e.user.ID, r.ID)
	require.ErrorIs(t, err, common.ErrRecipeNotFound)

	stats := e.db.MustGetStats(e.user.ID, r.ID)
	assert.True(t, stats.Archived)
	assert.Equal(t, 1, stats.ActivityCount)

	require.ErrorIs(t, e.RemoveRecipe(context.Background(), e.user.ID, r.ID), common.ErrRecipeNotFound)
}

func TestEngine_ProcessBatch(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, Config{BatchConcurrency: 3})
	r := e.db.MustSaveRecipe(e.user.ID, testutil.LongRideRecipe())

	activities := make([]model.Activity, 8)
	for i := range activities {
		activities[i] = testutil.RideActivity()
		activities[i].ID = int64(5000 + i)
	}
	activities[3].SportType = model.SportRun

	results, err := e.ProcessBatch(context.Background(), e.user, activities)
	require.NoError(t, err)
	require.Len(t, results, len(activities))

	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, activities[i].ID, res.Outcome.Activity.ID)
		assert.Equal(t, i != 3, res.Outcome.Matched(), "activity %d", i)
	}
	// inputs are not modified
	assert.Equal(t, "Morning Ride", activities[0].Name)

	stats := e.db.MustGetStats(e.user.ID, r.ID)
	assert.Equal(t, 7, stats.ActivityCount)
	assert.Len(t, stats.Activities, 7)
}

func TestEngine_ProcessBatchCanceled(t *testing.T) {
	e := newTestEngine(t, Dependencies{}, Config{})
	e.db.MustSaveRecipe(e.user.ID, testutil.LongRideRecipe())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ProcessBatch(ctx, e.user, []model.Activity{testutil.RideActivity()})
	require.ErrorIs(t, err, context.Canceled)
}
