package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-recipe-must-flow/internal/cli"
	"github.com/Veraticus/the-recipe-must-flow/internal/engine"
	"github.com/spf13/cobra"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <user-id> <activity-file>",
		Short: "Run an athlete's recipes against one activity",
		Long: `Run every enabled recipe, in order, against the activity in the given JSON
or YAML file and print the resulting activity.

With --recipe only that recipe is evaluated. With --dry-run no stats are
recorded and no webhook is sent.`,
		Args: cobra.ExactArgs(2),
		RunE: runEvaluate,
	}

	cmd.Flags().String("recipe", "", "evaluate a single recipe by ID")
	cmd.Flags().Bool("json", false, "print the resulting activity as JSON")
	cmd.Flags().Bool("dry-run", false, "preview the result without recording stats or sending webhooks")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	recipeID, _ := cmd.Flags().GetString("recipe")
	asJSON, _ := cmd.Flags().GetBool("json")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	activity, err := readActivity(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.user(ctx, args[0])
	if err != nil {
		return err
	}

	eng := a.engine
	if dryRun {
		eng = a.previewEngine()
	}

	if recipeID != "" {
		matched, err := eng.Evaluate(ctx, *user, recipeID, &activity)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(activity)
		}
		if !matched {
			fmt.Println(cli.FormatInfo("Recipe " + recipeID + " did not match")) //nolint:forbidigo // User-facing output
			return nil
		}
		fmt.Println(cli.RenderBox(activity.Name, activitySummary(engine.Outcome{Fired: []string{recipeID}, Activity: activity}))) //nolint:forbidigo // User-facing output
		return nil
	}

	outcome, err := eng.Process(ctx, *user, &activity)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(outcome.Activity)
	}

	if !outcome.Matched() {
		fmt.Println(cli.FormatInfo("No recipe matched this activity")) //nolint:forbidigo // User-facing output
		return nil
	}
	fmt.Println(cli.RenderBox(outcome.Activity.Name, activitySummary(outcome))) //nolint:forbidigo // User-facing output
	for _, actionErr := range outcome.Errors {
		fmt.Println(cli.FormatWarning(actionErr.Error())) //nolint:forbidigo // User-facing output
	}
	return nil
}

// activitySummary describes what the fired recipes changed.
func activitySummary(outcome engine.Outcome) string {
	var b strings.Builder
	b.WriteString("Fired: " + strings.Join(outcome.Fired, ", "))
	if len(outcome.Failed) > 0 {
		b.WriteString("\nWith failed actions: " + strings.Join(outcome.Failed, ", "))
	}
	if outcome.StoppedBy != "" {
		b.WriteString("\nStopped by: " + outcome.StoppedBy)
	}
	if len(outcome.Activity.UpdatedFields) > 0 {
		b.WriteString("\nUpdated: " + strings.Join(outcome.Activity.UpdatedFields, ", "))
	}
	if outcome.Activity.Description != "" {
		b.WriteString("\n\n" + outcome.Activity.Description)
	}
	return b.String()
}
