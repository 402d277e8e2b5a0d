package recipe

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// webhookURLPattern is the shape accepted for webhook action targets.
var webhookURLPattern = regexp.MustCompile(`^https?://(localhost|[^\s/?#:]+\.[^\s/?#:]+)(:\d+)?([/?#]\S*)?$`)

// ValidationError reports the first problem found in a recipe.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid recipe: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Limits bounds the sizes of recipe fields.
type Limits struct {
	MaxTitleLength         int
	MaxValueLength         int
	MaxFriendlyValueLength int
	MaxActionValueLength   int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxTitleLength:         100,
		MaxValueLength:         1000,
		MaxFriendlyValueLength: 200,
		MaxActionValueLength:   2000,
	}
}

// Validator checks recipes before they are persisted.
type Validator struct {
	catalog *Catalog
	logger  *slog.Logger
	limits  Limits
}

// NewValidator creates a validator. Zero limits fall back to DefaultLimits.
func NewValidator(catalog *Catalog, limits Limits, logger *slog.Logger) *Validator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultLimits()
	if limits.MaxTitleLength <= 0 {
		limits.MaxTitleLength = defaults.MaxTitleLength
	}
	if limits.MaxValueLength <= 0 {
		limits.MaxValueLength = defaults.MaxValueLength
	}
	if limits.MaxFriendlyValueLength <= 0 {
		limits.MaxFriendlyValueLength = defaults.MaxFriendlyValueLength
	}
	if limits.MaxActionValueLength <= 0 {
		limits.MaxActionValueLength = defaults.MaxActionValueLength
	}

	return &Validator{
		catalog: catalog,
		limits:  limits,
		logger:  logger,
	}
}

// Validate checks r and normalizes it in place: empty conditions and actions
// are dropped, unknown top-level fields are removed and default recipes lose
// their conditions. It returns a *ValidationError for the first violation.
func (v *Validator) Validate(r *model.Recipe) error {
	if r == nil {
		return invalid("recipe is missing")
	}

	title := strings.TrimSpace(r.Title)
	if title == "" {
		return invalid("missing title")
	}
	if n := utf8.RuneCountInString(title); n > v.limits.MaxTitleLength {
		return invalid("title is too long (%d characters, max %d)", n, v.limits.MaxTitleLength)
	}

	r.Actions = compactActions(r.Actions)
	if len(r.Actions) == 0 {
		return invalid("missing actions")
	}
	r.Conditions = compactConditions(r.Conditions)

	if len(r.Extra) > 0 {
		v.logger.Warn("removing unknown recipe fields",
			"recipe_id", r.ID,
			"fields", strings.Join(sortedKeys(r.Extra), ","))
		r.Extra = nil
	}

	if r.Op != "" && !r.Op.IsValid() {
		return invalid("invalid op %q", r.Op)
	}
	if r.SamePropertyOp != "" && !r.SamePropertyOp.IsValid() {
		return invalid("invalid samePropertyOp %q", r.SamePropertyOp)
	}

	if r.DefaultFor != "" {
		if !r.DefaultFor.IsValid() {
			return invalid("invalid defaultFor sport type %q", r.DefaultFor)
		}
		r.Order = 0
		r.Conditions = []model.Condition{}
	} else {
		if len(r.Conditions) == 0 {
			return invalid("missing conditions")
		}
		for i, c := range r.Conditions {
			if err := v.validateCondition(c); err != nil {
				return invalid("condition %d: %s", i+1, err.Error())
			}
		}
	}

	for i, a := range r.Actions {
		if err := v.validateAction(a); err != nil {
			return invalid("action %d: %s", i+1, err.Error())
		}
	}

	return nil
}

func (v *Validator) validateCondition(c model.Condition) error {
	prop, ok := v.catalog.Lookup(c.Property)
	if !ok {
		return fmt.Errorf("unknown property %q", c.Property)
	}
	if !prop.Allows(c.Operator) {
		return fmt.Errorf("operator %q is not valid for %s", c.Operator, c.Property)
	}
	if len(c.Extra) > 0 {
		return fmt.Errorf("unexpected fields %s", strings.Join(sortedKeys(c.Extra), ","))
	}

	value := strings.TrimSpace(c.Value)
	if value == "" {
		return fmt.Errorf("missing value for %s", c.Property)
	}
	if n := utf8.RuneCountInString(c.Value); n > v.limits.MaxValueLength {
		return fmt.Errorf("value is too long (%d characters, max %d)", n, v.limits.MaxValueLength)
	}
	if n := utf8.RuneCountInString(c.FriendlyValue); n > v.limits.MaxFriendlyValueLength {
		return fmt.Errorf("friendly value is too long (%d characters, max %d)", n, v.limits.MaxFriendlyValueLength)
	}

	var err error
	switch {
	case prop.Numeric():
		_, err = parseNumber(value)
	case prop.Category == CategoryBoolean:
		_, err = parseBool(value)
	case prop.Category == CategoryLocation:
		_, err = model.ParseLatLng(value)
	case prop.Category == CategoryWeekday:
		_, err = parseWeekday(value)
	case prop.Category == CategorySportType:
		if !model.SportType(value).IsValid() {
			err = fmt.Errorf("%q is not a sport type", value)
		}
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", c.Property, err)
	}
	return nil
}

func (v *Validator) validateAction(a model.Action) error {
	if _, ok := v.catalog.Action(a.Type); !ok {
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if len(a.Extra) > 0 {
		return fmt.Errorf("unexpected fields %s", strings.Join(sortedKeys(a.Extra), ","))
	}

	value := strings.TrimSpace(a.Value)
	if value == "" && a.Type != model.ActionCommute {
		return fmt.Errorf("missing value for %s", a.Type)
	}
	if n := utf8.RuneCountInString(a.Value); n > v.limits.MaxActionValueLength {
		return fmt.Errorf("value is too long (%d characters, max %d)", n, v.limits.MaxActionValueLength)
	}
	if n := utf8.RuneCountInString(a.FriendlyValue); n > v.limits.MaxFriendlyValueLength {
		return fmt.Errorf("friendly value is too long (%d characters, max %d)", n, v.limits.MaxFriendlyValueLength)
	}

	if a.Type == model.ActionWebhook && !IsWebhookURL(value) {
		return fmt.Errorf("invalid webhook URL %q", value)
	}
	return nil
}

// IsWebhookURL reports whether value is an absolute http(s) URL with a host.
func IsWebhookURL(value string) bool {
	if !webhookURLPattern.MatchString(value) {
		return false
	}
	u, err := url.Parse(value)
	return err == nil && u.Host != ""
}

func compactConditions(conditions []model.Condition) []model.Condition {
	out := make([]model.Condition, 0, len(conditions))
	for _, c := range conditions {
		if !c.IsEmpty() {
			out = append(out, c)
		}
	}
	return out
}

func compactActions(actions []model.Action) []model.Action {
	out := make([]model.Action, 0, len(actions))
	for _, a := range actions {
		if !a.IsEmpty() {
			out = append(out, a)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
