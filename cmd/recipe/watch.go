package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/alerting"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically report failing recipes and serve metrics",
		Long: `Run the failing-recipe watcher on the configured cron schedule
(alerting.schedule) and, when metrics.listen is set, serve Prometheus metrics
on /metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	cmd.Flags().Bool("once", false, "run a single sweep and exit")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	once, _ := cmd.Flags().GetBool("once")

	a, err := initApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := alerting.NewWatcher(a.cfg.Alerting(), a.tracker, alerting.Dependencies{
		Notifier: a.webhooks,
		Gauge:    a.metrics,
		Logger:   slog.Default(),
	})
	if err != nil {
		return err
	}

	if once {
		report, err := watcher.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(report)
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	if a.cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		server := &http.Server{
			Addr:              a.cfg.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			slog.Info("Serving metrics", "listen", a.cfg.MetricsListen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		slog.Info("Watching for failing recipes", "schedule", a.cfg.AlertingSchedule, "next_run", watcher.NextRun())
		watcher.Run(ctx)
		return nil
	})

	return g.Wait()
}
