package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		format func(string) string
		name   string
		icon   string
	}{
		{name: "success", format: FormatSuccess, icon: SuccessIcon},
		{name: "error", format: FormatError, icon: ErrorIcon},
		{name: "warning", format: FormatWarning, icon: WarningIcon},
		{name: "info", format: FormatInfo, icon: InfoIcon},
		{name: "title", format: FormatTitle, icon: RecipeIcon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("recipe saved")
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "recipe saved")
		})
	}
}

func TestFormatRecipeLine(t *testing.T) {
	enabled := FormatRecipeLine(2, "Commute tagger", "If commute, then set name", false)
	assert.Contains(t, enabled, "2.")
	assert.Contains(t, enabled, "Commute tagger")
	assert.Contains(t, enabled, "If commute, then set name")
	assert.Contains(t, enabled, SuccessIcon)

	disabled := FormatRecipeLine(1, "Old recipe", "", true)
	assert.Contains(t, disabled, DisabledIcon)
	assert.NotContains(t, disabled, "\n")
}

func TestRenderBox(t *testing.T) {
	out := RenderBox("Morning Ride", "name, gearId")
	assert.Contains(t, out, "Morning Ride")
	assert.Contains(t, out, "name, gearId")
}
