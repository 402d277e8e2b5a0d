package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/Veraticus/the-recipe-must-flow/internal/cli"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Inspect recipe stats",
		Long:  `Show how often recipes fired, which keep failing, and reset recipe counters.`,
	}

	cmd.AddCommand(statsShowCmd())
	cmd.AddCommand(statsFailingCmd())
	cmd.AddCommand(statsResetCounterCmd())

	return cmd
}

func statsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show stats for every recipe of an athlete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.tracker.ListStats(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get recipe stats: %w", err)
			}
			if len(list) == 0 {
				fmt.Println(cli.InfoStyle.Render("No recipe has fired yet.")) //nolint:forbidigo // User-facing output
				return nil
			}

			fmt.Println(cli.FormatTitle("Recipe stats for " + args[0])) //nolint:forbidigo // User-facing output
			return writeStatsTable(list)
		},
	}
}

func statsFailingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failing",
		Short: "List recipes whose actions keep failing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.tracker.GetFailingRecipes(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get failing recipes: %w", err)
			}
			if len(list) == 0 {
				fmt.Println(cli.FormatSuccess("No failing recipes")) //nolint:forbidigo // User-facing output
				return nil
			}

			fmt.Println(cli.FormatWarning(fmt.Sprintf("%d recipes failed at least %d times in a row", len(list), a.tracker.FailureThreshold()))) //nolint:forbidigo // User-facing output
			return writeStatsTable(list)
		},
	}
}

func statsResetCounterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-counter <user-id> <recipe-id>",
		Short: "Reset the ${counter} value of a recipe",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, _ := cmd.Flags().GetInt("value")

			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.store.GetRecipe(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			if err := a.tracker.SetCounter(cmd.Context(), args[0], args[1], value); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Counter set to %d, next activity gets %d", value, value+1))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().Int("value", 0, "new counter value")

	return cmd
}

func writeStatsTable(list []model.RecipeStats) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("User"),
		cli.TableHeaderStyle.Render("Recipe"),
		cli.TableHeaderStyle.Render("Fired"),
		cli.TableHeaderStyle.Render("Counter"),
		cli.TableHeaderStyle.Render("Failures"),
		cli.TableHeaderStyle.Render("Last Fired")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, st := range list {
		recipeID := st.RecipeID
		if st.Archived {
			recipeID += " (deleted)"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			st.UserID,
			recipeID,
			st.ActivityCount,
			st.Counter,
			formatFailures(st.RecentFailures),
			formatLastFired(st)); err != nil {
			return fmt.Errorf("failed to write stats row: %w", err)
		}
	}

	return nil
}

func formatFailures(n int) string {
	if n == 0 {
		return "-"
	}
	return cli.ErrorStyle.Render(strconv.Itoa(n))
}

func formatLastFired(st model.RecipeStats) string {
	if st.DateLastTrigger.IsZero() {
		return "Never"
	}
	return st.DateLastTrigger.Format("2006-01-02")
}
