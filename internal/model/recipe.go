package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Recipe is a user-authored automation: when its conditions match an
// activity, its actions are applied to it.
type Recipe struct {
	Extra          map[string]json.RawMessage `json:"-"`
	ID             string                     `json:"id"`
	Title          string                     `json:"title"`
	Op             LogicalOp                  `json:"op,omitempty"`
	SamePropertyOp LogicalOp                  `json:"samePropertyOp,omitempty"`
	DefaultFor     SportType                  `json:"defaultFor,omitempty"`
	Conditions     []Condition                `json:"conditions"`
	Actions        []Action                   `json:"actions"`
	Order          int                        `json:"order"`
	KillSwitch     bool                       `json:"killSwitch,omitempty"`
	Disabled       bool                       `json:"disabled,omitempty"`
}

// Condition compares a single activity property against a value.
type Condition struct {
	Extra         map[string]json.RawMessage `json:"-"`
	Property      string                     `json:"property"`
	Operator      Operator                   `json:"operator"`
	Value         string                     `json:"value"`
	FriendlyValue string                     `json:"friendlyValue,omitempty"`
}

// IsEmpty reports whether the condition carries no data at all.
func (c Condition) IsEmpty() bool {
	return c.Property == "" && c.Operator == "" && c.Value == "" && len(c.Extra) == 0
}

// Action mutates or acts upon a matched activity.
type Action struct {
	Extra         map[string]json.RawMessage `json:"-"`
	Type          ActionType                 `json:"type"`
	Value         string                     `json:"value,omitempty"`
	FriendlyValue string                     `json:"friendlyValue,omitempty"`
}

// IsEmpty reports whether the action carries no data at all.
func (a Action) IsEmpty() bool {
	return a.Type == "" && a.Value == "" && len(a.Extra) == 0
}

// UnmarshalJSON decodes a recipe, keeping unknown top-level fields in Extra
// so validation can report and strip them.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type plain Recipe
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	extra, err := unknownFields(data, "id", "title", "op", "samePropertyOp", "defaultFor",
		"conditions", "actions", "order", "killSwitch", "disabled")
	if err != nil {
		return err
	}

	*r = Recipe(decoded)
	r.Extra = extra
	return nil
}

// UnmarshalJSON decodes a condition. Values may be strings, numbers or booleans.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value         json.RawMessage `json:"value"`
		Property      string          `json:"property"`
		Operator      Operator        `json:"operator"`
		FriendlyValue string          `json:"friendlyValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	value, err := scalarString(raw.Value)
	if err != nil {
		return fmt.Errorf("condition %q: %w", raw.Property, err)
	}

	extra, err := unknownFields(data, "property", "operator", "value", "friendlyValue")
	if err != nil {
		return err
	}

	*c = Condition{
		Property:      raw.Property,
		Operator:      raw.Operator,
		Value:         value,
		FriendlyValue: raw.FriendlyValue,
		Extra:         extra,
	}
	return nil
}

// UnmarshalJSON decodes an action. Values may be strings, numbers or booleans.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value         json.RawMessage `json:"value"`
		Type          ActionType      `json:"type"`
		FriendlyValue string          `json:"friendlyValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	value, err := scalarString(raw.Value)
	if err != nil {
		return fmt.Errorf("action %q: %w", raw.Type, err)
	}

	extra, err := unknownFields(data, "type", "value", "friendlyValue")
	if err != nil {
		return err
	}

	*a = Action{
		Type:          raw.Type,
		Value:         value,
		FriendlyValue: raw.FriendlyValue,
		Extra:         extra,
	}
	return nil
}

// unknownFields returns the object keys in data that are not listed in known.
func unknownFields(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	for _, k := range known {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// scalarString converts a JSON string, number or boolean to its string form.
func scalarString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}

	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("value must be a string, number or boolean")
	}
}
