package model

// Operator compares an activity property against a condition value.
type Operator string

// Condition operators.
const (
	OpEqual       Operator = "="
	OpNotEqual    Operator = "!="
	OpLike        Operator = "like"
	OpNotLike     Operator = "notlike"
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
)

// LogicalOp combines condition results.
type LogicalOp string

// Logical operators.
const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
)

// IsValid reports whether the logical operator is AND or OR.
func (o LogicalOp) IsValid() bool {
	return o == LogicalAnd || o == LogicalOr
}

// ActionType identifies what an action does to a matched activity.
type ActionType string

// Action types.
const (
	ActionCommute             ActionType = "commute"
	ActionPrivate             ActionType = "private"
	ActionHideHome            ActionType = "hideHome"
	ActionHideStatPace        ActionType = "hideStatPace"
	ActionHideStatSpeed       ActionType = "hideStatSpeed"
	ActionHideStatCalories    ActionType = "hideStatCalories"
	ActionHideStatHeartRate   ActionType = "hideStatHeartRate"
	ActionHideStatPower       ActionType = "hideStatPower"
	ActionGear                ActionType = "gear"
	ActionSportType           ActionType = "sportType"
	ActionWorkoutType         ActionType = "workoutType"
	ActionMapStyle            ActionType = "mapStyle"
	ActionName                ActionType = "name"
	ActionPrependName         ActionType = "prependName"
	ActionAppendName          ActionType = "appendName"
	ActionGenerateName        ActionType = "generateName"
	ActionDescription         ActionType = "description"
	ActionPrependDescription  ActionType = "prependDescription"
	ActionAppendDescription   ActionType = "appendDescription"
	ActionGenerateDescription ActionType = "generateDescription"
	ActionWebhook             ActionType = "webhook"
)
