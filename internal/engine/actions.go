package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/recipe"
)

// Action execution errors.
var (
	ErrUnknownAction      = errors.New("unknown action type")
	ErrInvalidActionValue = errors.New("invalid action value")
	ErrGearNotFound       = errors.New("gear not found")
	ErrEmptyName          = errors.New("activity name would be empty")
)

// ActionExecutionError reports an action that could not be applied. The
// remaining actions still run.
type ActionExecutionError struct {
	Err   error
	Type  model.ActionType
	Index int
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %d (%s): %v", e.Index+1, e.Type, e.Err)
}

func (e *ActionExecutionError) Unwrap() error {
	return e.Err
}

// DispatchResult is the outcome of applying one recipe's actions.
type DispatchResult struct {
	Errors   []error
	Updated  []string
	Activity model.Activity
	Success  bool
}

// WebhookPayload is the body posted by webhook actions.
type WebhookPayload struct {
	UserID      string         `json:"userId"`
	RecipeID    string         `json:"recipeId"`
	RecipeTitle string         `json:"recipeTitle"`
	Activity    model.Activity `json:"activity"`
}

// accumulator carries the activity through the pipeline together with the
// fields changed so far.
type accumulator struct {
	activity model.Activity
	updated  []string
}

func (acc *accumulator) apply(activity model.Activity, fields []string) {
	acc.activity = activity
	for _, f := range fields {
		acc.updated = appendUnique(acc.updated, f)
		acc.activity.UpdatedFields = appendUnique(acc.activity.UpdatedFields, f)
	}
}

// step is the input of one handler: the action plus everything it may read.
type step struct {
	run      *dispatchRun
	action   model.Action
	activity model.Activity
}

// actionHandler returns the new activity and the fields it changed.
type actionHandler func(ctx context.Context, s step) (model.Activity, []string, error)

type dispatchRun struct {
	ev      *recipe.Evaluation
	counter func(ctx context.Context) (int, error)
	recipe  model.Recipe
}

// Dispatcher applies recipe actions in category order.
type Dispatcher struct {
	catalog  *recipe.Catalog
	webhooks WebhookSender
	metrics  Metrics
	logger   *slog.Logger
	handlers map[model.ActionType]actionHandler
}

// NewDispatcher creates a dispatcher. A nil webhook sender makes webhook
// actions fail.
func NewDispatcher(catalog *recipe.Catalog, webhooks WebhookSender, metrics Metrics, logger *slog.Logger) *Dispatcher {
	if catalog == nil {
		catalog = recipe.DefaultCatalog()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		catalog:  catalog,
		webhooks: webhooks,
		metrics:  metrics,
		logger:   logger,
	}
	d.handlers = map[model.ActionType]actionHandler{
		model.ActionCommute:             flagHandler(func(a *model.Activity) *bool { return &a.Commute }),
		model.ActionPrivate:             flagHandler(func(a *model.Activity) *bool { return &a.Private }),
		model.ActionHideHome:            flagHandler(func(a *model.Activity) *bool { return &a.HideHome }),
		model.ActionHideStatPace:        flagHandler(func(a *model.Activity) *bool { return &a.HideStatPace }),
		model.ActionHideStatSpeed:       flagHandler(func(a *model.Activity) *bool { return &a.HideStatSpeed }),
		model.ActionHideStatCalories:    flagHandler(func(a *model.Activity) *bool { return &a.HideStatCalories }),
		model.ActionHideStatHeartRate:   flagHandler(func(a *model.Activity) *bool { return &a.HideStatHR }),
		model.ActionHideStatPower:       flagHandler(func(a *model.Activity) *bool { return &a.HidePower }),
		model.ActionGear:                setGear,
		model.ActionSportType:           setSportType,
		model.ActionWorkoutType:         setWorkoutType,
		model.ActionMapStyle:            setMapStyle,
		model.ActionName:                textHandler(nameField, replaceText),
		model.ActionPrependName:         textHandler(nameField, prependText(" ")),
		model.ActionAppendName:          textHandler(nameField, appendText(" ")),
		model.ActionGenerateName:        textHandler(nameField, replaceText),
		model.ActionDescription:         textHandler(descriptionField, replaceText),
		model.ActionPrependDescription:  textHandler(descriptionField, prependText("\n")),
		model.ActionAppendDescription:   textHandler(descriptionField, appendText("\n")),
		model.ActionGenerateDescription: textHandler(descriptionField, replaceText),
		model.ActionWebhook:             d.sendWebhook,
	}
	return d
}

// Apply runs the recipe's actions against the evaluation's current activity.
// Failed actions are logged and make the result unsuccessful; they never
// stop the remaining actions. counter, when set, supplies the recipe's stats
// counter for templates.
func (d *Dispatcher) Apply(ctx context.Context, ev *recipe.Evaluation, r model.Recipe, counter func(ctx context.Context) (int, error)) DispatchResult {
	run := &dispatchRun{ev: ev, recipe: r, counter: counter}
	acc := &accumulator{activity: ev.Activity().Clone()}
	result := DispatchResult{Success: true}

	for _, i := range d.executionOrder(r.Actions) {
		action := r.Actions[i]

		activity, fields, err := d.execute(ctx, step{run: run, action: action, activity: acc.activity.Clone()})
		d.metrics.ActionExecuted(string(action.Type), err == nil)
		if err != nil {
			execErr := &ActionExecutionError{Index: i, Type: action.Type, Err: err}
			result.Errors = append(result.Errors, execErr)
			result.Success = false
			d.logger.Warn("action failed",
				"user_id", ev.User().ID,
				"recipe_id", r.ID,
				"activity_id", acc.activity.ID,
				"action", action.Type,
				"error", err)
			continue
		}
		acc.apply(activity, fields)
	}

	result.Activity = acc.activity
	result.Updated = acc.updated
	return result
}

func (d *Dispatcher) execute(ctx context.Context, s step) (model.Activity, []string, error) {
	handler, ok := d.handlers[s.action.Type]
	if !ok {
		return s.activity, nil, fmt.Errorf("%w: %q", ErrUnknownAction, s.action.Type)
	}
	return handler(ctx, s)
}

// executionOrder returns action indexes sorted by category, keeping the
// authored order within a category. Unknown types sort last.
func (d *Dispatcher) executionOrder(actions []model.Action) []int {
	order := make([]int, len(actions))
	for i := range order {
		order[i] = i
	}
	rank := func(a model.Action) int {
		spec, ok := d.catalog.Action(a.Type)
		if !ok {
			return int(recipe.ActionCategoryWebhook) + 1
		}
		return int(spec.Category)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rank(actions[order[i]]) < rank(actions[order[j]])
	})
	return order
}

// flagHandler sets the boolean field returned by field.
func flagHandler(field func(a *model.Activity) *bool) actionHandler {
	return func(_ context.Context, s step) (model.Activity, []string, error) {
		value := true
		if strings.TrimSpace(s.action.Value) != "" {
			v, err := strconv.ParseBool(strings.TrimSpace(s.action.Value))
			if err != nil {
				return s.activity, nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidActionValue, s.action.Value)
			}
			value = v
		}
		flag := field(&s.activity)
		if *flag == value {
			return s.activity, nil, nil
		}
		*flag = value
		return s.activity, []string{string(s.action.Type)}, nil
	}
}

func setGear(_ context.Context, s step) (model.Activity, []string, error) {
	gear, ok := s.run.ev.User().FindGear(strings.TrimSpace(s.action.Value))
	if !ok {
		return s.activity, nil, fmt.Errorf("%w: %q", ErrGearNotFound, s.action.Value)
	}
	if s.activity.GearID == gear.ID {
		return s.activity, nil, nil
	}
	s.activity.GearID = gear.ID
	return s.activity, []string{"gearId"}, nil
}

func setSportType(_ context.Context, s step) (model.Activity, []string, error) {
	sport := model.SportType(strings.TrimSpace(s.action.Value))
	if !sport.IsValid() {
		return s.activity, nil, fmt.Errorf("%w: %q is not a sport type", ErrInvalidActionValue, s.action.Value)
	}
	if s.activity.SportType == sport {
		return s.activity, nil, nil
	}
	s.activity.SportType = sport
	return s.activity, []string{"sportType"}, nil
}

func setWorkoutType(_ context.Context, s step) (model.Activity, []string, error) {
	wt, err := strconv.Atoi(strings.TrimSpace(s.action.Value))
	if err != nil || !model.IsValidWorkoutType(wt) {
		return s.activity, nil, fmt.Errorf("%w: %q is not a workout type", ErrInvalidActionValue, s.action.Value)
	}
	if !model.WorkoutTypeFits(s.activity.SportType, wt) {
		return s.activity, nil, fmt.Errorf("%w: workout type %d does not apply to %s", ErrInvalidActionValue, wt, s.activity.SportType)
	}
	if s.activity.WorkoutType != nil && *s.activity.WorkoutType == wt {
		return s.activity, nil, nil
	}
	s.activity.WorkoutType = &wt
	return s.activity, []string{"workoutType"}, nil
}

func setMapStyle(_ context.Context, s step) (model.Activity, []string, error) {
	style := strings.TrimSpace(s.action.Value)
	if !model.IsValidMapStyle(style) {
		return s.activity, nil, fmt.Errorf("%w: %q is not a map style", ErrInvalidActionValue, s.action.Value)
	}
	if s.activity.MapStyle == style {
		return s.activity, nil, nil
	}
	s.activity.MapStyle = style
	return s.activity, []string{"mapStyle"}, nil
}

type textField struct {
	get      func(a model.Activity) string
	set      func(a *model.Activity, v string)
	generate func(a model.Activity) string
	name     string
	required bool
}

var (
	nameField = textField{
		name:     "name",
		required: true,
		get:      func(a model.Activity) string { return a.Name },
		set:      func(a *model.Activity, v string) { a.Name = v },
		generate: generatedName,
	}
	descriptionField = textField{
		name:     "description",
		get:      func(a model.Activity) string { return a.Description },
		set:      func(a *model.Activity, v string) { a.Description = v },
		generate: generatedDescription,
	}
)

type textCombiner func(current, rendered string) string

func replaceText(_, rendered string) string { return rendered }

func prependText(sep string) textCombiner {
	return func(current, rendered string) string {
		if current == "" {
			return rendered
		}
		return rendered + sep + current
	}
}

func appendText(sep string) textCombiner {
	return func(current, rendered string) string {
		if current == "" {
			return rendered
		}
		return current + sep + rendered
	}
}

func textHandler(field textField, combine textCombiner) actionHandler {
	return func(ctx context.Context, s step) (model.Activity, []string, error) {
		data := &templateData{
			activity: s.activity,
			weather:  s.run.ev.Weather,
			counter:  s.run.counter,
		}
		if s.action.Type == model.ActionGenerateName || s.action.Type == model.ActionGenerateDescription {
			data.generated = field.generate(s.activity)
		}

		rendered, err := data.render(ctx, s.action.Value)
		if err != nil {
			return s.activity, nil, err
		}

		value := strings.TrimSpace(combine(field.get(s.activity), strings.TrimSpace(rendered)))
		if field.required && value == "" {
			return s.activity, nil, ErrEmptyName
		}
		if value == field.get(s.activity) {
			return s.activity, nil, nil
		}
		field.set(&s.activity, value)
		return s.activity, []string{field.name}, nil
	}
}

func (d *Dispatcher) sendWebhook(ctx context.Context, s step) (model.Activity, []string, error) {
	if d.webhooks == nil {
		return s.activity, nil, fmt.Errorf("webhook: %w", common.ErrCollaboratorUnset)
	}

	payload := WebhookPayload{
		UserID:      s.run.ev.User().ID,
		RecipeID:    s.run.recipe.ID,
		RecipeTitle: s.run.recipe.Title,
		Activity:    s.activity,
	}
	err := d.webhooks.Send(ctx, strings.TrimSpace(s.action.Value), payload)
	d.metrics.WebhookDelivered(err == nil)
	if err != nil {
		return s.activity, nil, err
	}

	d.logger.Debug("webhook delivered",
		"user_id", payload.UserID,
		"recipe_id", payload.RecipeID,
		"activity_id", s.activity.ID)
	return s.activity, nil, nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
