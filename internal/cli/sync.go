package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/fipe"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/syncer"
)

const metricsPushTimeout = 10 * time.Second

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the pricing catalog into the store",
		Long: `Walk every selected vehicle type and persist its brands, models and
versions. Failures of single entities are reported and skipped.

Interrupting a run (Ctrl+C / SIGTERM) stops it after the current request and
prints the partial report.`,
		Example: `  fern sync
  fern sync --type cars --limit 5
  fern sync --brands "fiat,gwm"
  fern sync --test`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), app, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSlice("type", nil, "Vehicle types to sync (carros|motos|caminhoes or cars|motorcycles|trucks)")
	cmd.Flags().Int("limit", 0, "Maximum brands per vehicle type (0 = no limit)")
	cmd.Flags().Bool("test", false, "Test mode: first vehicle type only, at most 2 brands")
	cmd.Flags().StringSlice("brands", nil, "Brand allow-list (matched after normalization and aliases)")

	return cmd
}

func runSync(ctx context.Context, app *App, out io.Writer) error {
	cfg := app.Config
	runID := uuid.New().String()
	logger := app.Logger.WithField("run_id", runID)

	opts, err := syncOptions(app)
	if err != nil {
		return err
	}

	sourceCfg, err := cfg.Source()
	if err != nil {
		return err
	}

	deps, err := app.startDependencies(ctx, dependencyOptions{
		migrate: cfg.DBAutoMigrate,
		runID:   runID,
		lock:    true,
		publish: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			logger.WithError(err).Warn("Sync interrupted during startup; nothing was written")
			return nil
		}
		return fmt.Errorf("failed to start dependencies: %w", err)
	}
	defer func() {
		if err := deps.Stop(ctx); err != nil {
			logger.WithError(err).Error("Failed to stop dependencies")
		}
	}()

	source := fipe.NewClient(sourceCfg, httpclient.NewClient(cfg.HTTPClient(), logger), logger)
	store := repositories.NewGateway(deps.DB, logger)

	syncOpts := []syncer.Option{syncer.WithRunID(runID)}
	if deps.Producer != nil {
		syncOpts = append(syncOpts, syncer.WithPublisher(deps.Producer))
	}

	return executeSync(ctx, syncer.New(source, store, logger, syncOpts...), opts, syncRun{
		out:        out,
		logger:     logger,
		pushURL:    cfg.MetricsPushgatewayURL,
		metricsJob: cfg.AppName,
	})
}

// syncOptions turns configuration into the slice of the catalog to walk
func syncOptions(app *App) (syncer.Options, error) {
	cfg := app.Config

	types, err := cfg.SyncVehicleTypes()
	if err != nil {
		return syncer.Options{}, err
	}
	filter, err := cfg.BrandFilter()
	if err != nil {
		return syncer.Options{}, err
	}

	if cfg.TestMode {
		app.Logger.Infof("Test mode: syncing %s with at most %d brands", types[0], cfg.SyncBrandLimit())
	}

	return syncer.Options{
		VehicleTypes: types,
		Limit:        cfg.SyncBrandLimit(),
		Filter:       filter,
	}, nil
}

type syncRun struct {
	out        io.Writer
	logger     ectologger.Logger
	pushURL    string
	metricsJob string
}

// executeSync runs s, prints the report and pushes run metrics. An interrupted
// run is a clean exit.
func executeSync(ctx context.Context, s *syncer.Syncer, opts syncer.Options, r syncRun) error {
	report, err := s.Run(ctx, opts)
	if err != nil && !isInterruption(err) {
		return err
	}

	if report != nil {
		report.Render(r.out)

		outcome := "success"
		switch {
		case report.Interrupted:
			outcome = "interrupted"
		case len(report.Warnings) > 0:
			outcome = "partial"
		}
		metrics.RunDuration.Set(report.Duration().Seconds())
		metrics.LastRunTimestamp.WithLabelValues(outcome).Set(float64(report.FinishedAt.Unix()))
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
	defer cancel()
	if pushErr := metrics.Push(pushCtx, r.pushURL, r.metricsJob); pushErr != nil {
		r.logger.WithError(pushErr).Warn("Failed to push run metrics")
	}

	if err != nil {
		r.logger.Warn("Sync interrupted; the catalog is partially updated and the next run resumes idempotently")
	}
	return nil
}

func isInterruption(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
