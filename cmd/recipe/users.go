package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/Veraticus/the-recipe-must-flow/internal/cli"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/spf13/cobra"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage athletes",
		Long:  `Create, inspect and delete the athletes whose activities recipes run against.`,
	}

	cmd.AddCommand(usersAddCmd())
	cmd.AddCommand(usersShowCmd())
	cmd.AddCommand(usersDeleteCmd())

	return cmd
}

func usersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Create or update an athlete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			pro, _ := cmd.Flags().GetBool("pro")

			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user := &model.User{ID: args[0], DisplayName: name, IsPro: pro}
			if existing, getErr := a.store.GetUser(cmd.Context(), args[0]); getErr == nil {
				user.Bikes = existing.Bikes
				user.Shoes = existing.Shoes
				if !cmd.Flags().Changed("name") {
					user.DisplayName = existing.DisplayName
				}
			}

			if err := a.store.SaveUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved athlete %s (limit %d recipes)", user.ID, a.engine.RecipeLimit(*user)))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name")
	cmd.Flags().Bool("pro", false, "athlete has a pro subscription")

	return cmd
}

func usersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show an athlete and their gear",
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
			count, err := a.store.CountRecipes(cmd.Context(), user.ID)
			if err != nil {
				return fmt.Errorf("failed to count recipes: %w", err)
			}

			title := cli.FormatTitle(user.DisplayName + " (" + user.ID + ")")
			fmt.Printf("%s\nRecipes: %d of %d\n\n", title, count, a.engine.RecipeLimit(*user)) //nolint:forbidigo // User-facing output

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() {
				if flushErr := w.Flush(); flushErr != nil {
					slog.Error("failed to flush table writer", "error", flushErr)
				}
			}()

			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Kind"),
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name")); err != nil {
				return fmt.Errorf("failed to write header: %w", err)
			}
			for _, gear := range append(append([]model.Gear{}, user.Bikes...), user.Shoes...) {
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", gear.Kind, gear.ID, gear.Name); err != nil {
					return fmt.Errorf("failed to write gear row: %w", err)
				}
			}
			return nil
		},
	}
}

func usersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an athlete with their recipes and stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.lifecycle.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Deleted athlete " + args[0])) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func gearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gear",
		Short: "Manage an athlete's bikes and shoes",
	}

	add := &cobra.Command{
		Use:   "add <user-id> <gear-id> <name>",
		Short: "Add or rename a bike or pair of shoes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")

			a, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.user(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := addGear(user, model.Gear{ID: args[1], Name: args[2], Kind: model.GearKind(kind)}); err != nil {
				return err
			}
			if err := a.store.SaveUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved %s %q for %s", kind, args[2], user.ID))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
	add.Flags().String("kind", string(model.GearBike), "gear kind (bike, shoes)")

	cmd.AddCommand(add)
	return cmd
}

// addGear inserts or renames gear on the list matching its kind.
func addGear(user *model.User, gear model.Gear) error {
	var list *[]model.Gear
	switch gear.Kind {
	case model.GearBike:
		list = &user.Bikes
	case model.GearShoes:
		list = &user.Shoes
	default:
		return fmt.Errorf("unknown gear kind %q", gear.Kind)
	}

	for i := range *list {
		if (*list)[i].ID == gear.ID {
			(*list)[i] = gear
			return nil
		}
	}
	*list = append(*list, gear)
	return nil
}
