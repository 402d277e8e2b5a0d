package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/Veraticus/the-recipe-must-flow/internal/cli"
	"github.com/Veraticus/the-recipe-must-flow/internal/engine"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <user-id> <activity-dir>",
		Short: "Run an athlete's recipes against a directory of activities",
		Long: `Process every JSON or YAML activity in a directory, oldest first, running
several activities at once. Interrupting keeps the stats of activities already
processed.`,
		Args: cobra.ExactArgs(2),
		RunE: runReplay,
	}
}

// replayTally counts what a replay did.
type replayTally struct {
	processed atomic.Int64
	matched   int
	failed    int
	errors    int
}

func (t *replayTally) add(results []engine.BatchResult) {
	for _, r := range results {
		t.processed.Add(1)
		if r.Err != nil {
			t.errors++
			continue
		}
		if r.Outcome.Matched() {
			t.matched++
		}
		if len(r.Outcome.Failed) > 0 {
			t.failed++
		}
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	activities, err := readActivities(args[1])
	if err != nil {
		return err
	}
	if len(activities) == 0 {
		fmt.Println(cli.FormatInfo("No activity files found in " + args[1])) //nolint:forbidigo // User-facing output
		return nil
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

	tally := &replayTally{}
	interrupts := cli.NewInterruptHandler(os.Stdout)
	ctx := interrupts.HandleInterrupts(cmd.Context(), func() string {
		return fmt.Sprintf("%d of %d activities processed", tally.processed.Load(), len(activities))
	})

	bar := progressbar.NewOptions(len(activities),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Replaying activities...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(os.Stderr); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)

	chunk := a.cfg.BatchConcurrency
	for start := 0; start < len(activities); start += chunk {
		end := min(start+chunk, len(activities))

		results, batchErr := a.engine.ProcessBatch(ctx, *user, activities[start:end])
		if batchErr != nil {
			if interrupts.WasInterrupted() {
				return nil
			}
			return batchErr
		}
		tally.add(results)
		if err := bar.Add(end - start); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Replayed %d activities: %d matched, %d with failed actions, %d errors", //nolint:forbidigo // User-facing output
		tally.processed.Load(), tally.matched, tally.failed, tally.errors)))
	return nil
}
