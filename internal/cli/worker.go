package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"buckets/internal/amqp"
	"buckets/internal/config"
	"buckets/internal/log"
	"buckets/internal/services"
	"buckets/internal/sheets"
	"buckets/internal/sheets/google"
	sheetsmem "buckets/internal/sheets/memory"
	"buckets/internal/storage"
	"buckets/internal/worker"
)

type workerOptions struct {
	dryRun      bool
	resyncUsers []string
}

func newWorkerCommand() *cobra.Command {
	var opts workerOptions
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume week change events and export summaries to Google Sheets",
		Long: "Consume week change events from AMQP and rewrite the matching rows in the export spreadsheet.\n" +
			"The worker reads the SQLite database shared with the API server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Export into memory and log instead of writing to Google Sheets")
	cmd.Flags().StringSliceVar(&opts.resyncUsers, "resync", nil, "Re-export every week of these users at startup")
	return cmd
}

func runWorker(ctx context.Context, opts workerOptions) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkWorkerConfig(cfg, opts); err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	svc := services.NewBudgetService(store, services.WithLogger(logger), services.WithoutSummaryCache())

	var exporter sheets.WeekExporter
	if opts.dryRun {
		exporter = sheetsmem.New()
		logger.Info("Dry run: exports are kept in memory")
	} else {
		exporter, err = google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return fmt.Errorf("initialize Google Sheets client: %w", err)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	w := worker.NewExportWorker(svc, exporter, cfg.ExportBatchSize, logger)

	for _, user := range opts.resyncUsers {
		res, err := w.ExportAll(ctx, user)
		if err != nil {
			return fmt.Errorf("resync %s: %w", user, err)
		}
		logger.Info("Startup resync finished", log.FieldUserID, user, "weeks", res.Weeks, "failed", res.Failed)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting buckets worker", "queue", cfg.AMQPQueue, "concurrency", cfg.ExportBatchSize)
		err := client.Consume(gctx, w.HandleWeekChanged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		return err
	}
	logger.Info("Worker stopped gracefully")
	return nil
}

// checkWorkerConfig reports settings the worker cannot run without.
func checkWorkerConfig(cfg *config.Config, opts workerOptions) error {
	var errs []error
	if cfg.DataBackend != config.BackendSQLite {
		errs = append(errs, errors.New("worker requires DATA_BACKEND=sqlite to share data with the API server"))
	}
	if cfg.AMQPURL == "" {
		errs = append(errs, errors.New("worker requires AMQP_URL"))
	}
	if !opts.dryRun && !cfg.ExportEnabled() {
		errs = append(errs, errors.New("worker requires GOOGLE_SPREADSHEET_ID (or --dry-run)"))
	}
	return errors.Join(errs...)
}
