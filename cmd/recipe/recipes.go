package main

import (
	"fmt"

	"github.com/Veraticus/the-recipe-must-flow/internal/cli"
	"github.com/Veraticus/the-recipe-must-flow/internal/recipe"
	"github.com/spf13/cobra"
)

func recipesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "Manage an athlete's recipes",
		Long: `Add, list, inspect, enable, disable and delete recipes.

Recipe files are JSON or YAML documents with a title, conditions and actions.
Recipes run in the order they are listed.`,
	}

	cmd.AddCommand(recipesAddCmd())
	cmd.AddCommand(recipesListCmd())
	cmd.AddCommand(recipesShowCmd())
	cmd.AddCommand(recipesDeleteCmd())
	cmd.AddCommand(recipesToggleCmd("disable", true))
	cmd.AddCommand(recipesToggleCmd("enable", false))

	return cmd
}

func recipesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <user-id> <file>",
		Short: "Validate and save a recipe from a JSON or YAML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := recipe.DecodeFile(args[1])
			if err != nil {
				return err
			}

			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.user(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.engine.SaveRecipe(cmd.Context(), *user, r); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved recipe %q (%s)", r.Title, r.ID))) //nolint:forbidigo // User-facing output
			fmt.Println(cli.SubtleStyle.Render(recipe.Summary(*r)))                            //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func recipesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <user-id>",
		Short: "List recipes in evaluation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.user(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			recipes, err := a.store.GetRecipes(cmd.Context(), user.ID)
			if err != nil {
				return fmt.Errorf("failed to get recipes: %w", err)
			}

			if len(recipes) == 0 {
				fmt.Println(cli.InfoStyle.Render("No recipes yet. Use 'recipe recipes add' to create one.")) //nolint:forbidigo // User-facing output
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Recipes for %s (%d of %d)", user.ID, len(recipes), a.engine.RecipeLimit(*user)))) //nolint:forbidigo // User-facing output
			for i, r := range recipes {
				fmt.Println(cli.FormatRecipeLine(i+1, r.Title, recipe.Summary(r), r.Disabled)) //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}
}

func recipesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <user-id> <recipe-id>",
		Short: "Show a recipe with its stats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.store.GetRecipe(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(r)
			}

			body := recipe.Summary(*r)
			if st, statsErr := a.tracker.GetStats(cmd.Context(), args[0], args[1]); statsErr == nil {
				body += fmt.Sprintf("\n\nFired %d times, counter %d, %d recent failures",
					st.ActivityCount, st.Counter, st.RecentFailures)
				if !st.DateLastTrigger.IsZero() {
					body += "\nLast fired " + st.DateLastTrigger.Format("2006-01-02 15:04")
				}
			}
			if r.Disabled {
				body += "\n\n" + cli.WarningStyle.Render("Disabled")
			}

			fmt.Println(cli.RenderBox(r.Title, body)) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the stored recipe as JSON")

	return cmd
}

func recipesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id> <recipe-id>",
		Short: "Delete a recipe and archive its stats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.RemoveRecipe(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Deleted recipe " + args[1])) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func recipesToggleCmd(use string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id> <recipe-id>",
		Short: "Mark a recipe as " + use + "d",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.user(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r, err := a.store.GetRecipe(cmd.Context(), user.ID, args[1])
			if err != nil {
				return err
			}
			if r.Disabled == disabled {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("Recipe %q is already %sd", r.Title, use))) //nolint:forbidigo // User-facing output
				return nil
			}

			r.Disabled = disabled
			if err := a.engine.SaveRecipe(cmd.Context(), *user, r); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recipe %q %sd", r.Title, use))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}
