package recipe

import (
	"context"
	"log/slog"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// Matcher decides whether a recipe applies to an activity.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a matcher that logs unevaluable conditions to logger.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger}
}

// conditionGroup holds the conditions that share a property.
type conditionGroup struct {
	property   string
	conditions []model.Condition
}

// groupConditions groups conditions by property, keeping the order in
// which each property first appears.
func groupConditions(conditions []model.Condition) []conditionGroup {
	groups := make([]conditionGroup, 0, len(conditions))
	index := make(map[string]int, len(conditions))

	for _, c := range conditions {
		i, ok := index[c.Property]
		if !ok {
			i = len(groups)
			index[c.Property] = i
			groups = append(groups, conditionGroup{property: c.Property})
		}
		groups[i].conditions = append(groups[i].conditions, c)
	}
	return groups
}

// combine folds n results with op. AND starts true and stops at the first
// false; OR starts false and stops at the first true.
func combine(op model.LogicalOp, n int, eval func(i int) bool) bool {
	if op == model.LogicalOr {
		for i := 0; i < n; i++ {
			if eval(i) {
				return true
			}
		}
		return false
	}

	for i := 0; i < n; i++ {
		if !eval(i) {
			return false
		}
	}
	return true
}

// Operators returns the effective op and samePropertyOp of a recipe.
func Operators(r model.Recipe) (op, sameOp model.LogicalOp) {
	op = r.Op
	if !op.IsValid() {
		op = model.LogicalAnd
	}
	sameOp = r.SamePropertyOp
	if !sameOp.IsValid() {
		sameOp = op
	}
	return op, sameOp
}

// Matches reports whether the recipe applies to the activity under evaluation.
// Conditions that cannot be evaluated are logged and count as non-matches.
func (m *Matcher) Matches(ctx context.Context, ev *Evaluation, r model.Recipe) bool {
	if r.DefaultFor != "" {
		return ev.activity.SportType == r.DefaultFor
	}
	if len(r.Conditions) == 0 {
		return false
	}

	op, sameOp := Operators(r)
	groups := groupConditions(r.Conditions)

	return combine(op, len(groups), func(i int) bool {
		group := groups[i]
		return combine(sameOp, len(group.conditions), func(j int) bool {
			cond := group.conditions[j]
			matched, err := ev.Condition(ctx, cond)
			if err != nil {
				m.logger.Warn("condition evaluation failed",
					"user_id", ev.user.ID,
					"recipe_id", r.ID,
					"activity_id", ev.activity.ID,
					"property", cond.Property,
					"operator", cond.Operator,
					"error", err)
				return false
			}
			return matched
		})
	})
}
