package recipe

import (
	"strings"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

var operatorText = map[model.Operator]string{
	model.OpEqual:       "is",
	model.OpNotEqual:    "is not",
	model.OpLike:        "is like",
	model.OpNotLike:     "is not like",
	model.OpGreaterThan: "is greater than",
	model.OpLessThan:    "is less than",
}

// ConditionSummary renders a condition as text, preferring its friendly value.
func ConditionSummary(c model.Condition) string {
	label := c.Property
	if prop, ok := DefaultCatalog().Lookup(c.Property); ok {
		label = prop.Text
	}

	op, ok := operatorText[c.Operator]
	if !ok {
		op = string(c.Operator)
	}

	value := c.FriendlyValue
	if value == "" {
		value = c.Value
	}
	return label + " " + op + " " + value
}

// ActionSummary renders an action as text, preferring its friendly value.
func ActionSummary(a model.Action) string {
	label := string(a.Type)
	if spec, ok := DefaultCatalog().Action(a.Type); ok {
		label = spec.Text
	}

	value := a.FriendlyValue
	if value == "" {
		value = a.Value
	}
	if value == "" {
		return label
	}
	return label + ": " + value
}

// Summary renders the whole recipe as a single sentence.
func Summary(r model.Recipe) string {
	actions := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, ActionSummary(a))
	}
	then := strings.Join(actions, ", ")

	if r.DefaultFor != "" {
		return "Default for " + string(r.DefaultFor) + ": " + then
	}

	op, sameOp := Operators(r)
	groups := groupConditions(r.Conditions)
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		conds := make([]string, 0, len(g.conditions))
		for _, c := range g.conditions {
			conds = append(conds, ConditionSummary(c))
		}
		part := strings.Join(conds, " "+joiner(sameOp)+" ")
		if len(conds) > 1 && len(groups) > 1 {
			part = "(" + part + ")"
		}
		parts = append(parts, part)
	}

	return "If " + strings.Join(parts, " "+joiner(op)+" ") + ", then " + then
}

func joiner(op model.LogicalOp) string {
	if op == model.LogicalOr {
		return "or"
	}
	return "and"
}
