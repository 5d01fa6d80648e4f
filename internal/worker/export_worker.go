// Package worker keeps the spreadsheet export in step with budget changes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/ports"
	"buckets/internal/sheets"
)

const defaultConcurrency = 4

// SummarySource provides reconciled weeks. The budget service satisfies it.
type SummarySource interface {
	WeekSummary(ctx context.Context, userID string, date core.Date) (core.WeekSummary, error)
	ListWeeks(ctx context.Context, userID string) ([]core.WeeklyIncome, error)
}

// ExportWorker re-exports a week whenever it changes.
type ExportWorker struct {
	source      SummarySource
	exporter    sheets.WeekExporter
	concurrency int
	logger      *log.Logger
}

func NewExportWorker(source SummarySource, exporter sheets.WeekExporter, concurrency int, logger *log.Logger) *ExportWorker {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		source:      source,
		exporter:    exporter,
		concurrency: concurrency,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleWeekChanged exports the week named by ev. A week that no longer
// exists is exported empty so its rows disappear from the sheet.
func (w *ExportWorker) HandleWeekChanged(ctx context.Context, ev ports.WeekChanged) error {
	w.logger.InfoContext(ctx, "Processing week change",
		log.FieldUserID, ev.UserID,
		log.FieldWeekStart, ev.WeekStart.String(),
		log.FieldReason, ev.Reason)

	summary, err := w.source.WeekSummary(ctx, ev.UserID, ev.WeekStart)
	switch {
	case errors.Is(err, core.ErrNotFound):
		summary = core.WeekSummary{WeekStart: ev.WeekStart, WeekEnd: core.WeekEnd(ev.WeekStart)}
	case err != nil:
		return fmt.Errorf("load week: %w", err)
	}

	n, err := w.exporter.ExportWeek(ctx, ev.UserID, summary)
	if err != nil {
		return fmt.Errorf("export week: %w", err)
	}
	w.logger.InfoContext(ctx, "Week exported",
		log.FieldUserID, ev.UserID,
		log.FieldWeekStart, summary.WeekStart.String(),
		"rows", n)
	return nil
}

// ExportResult summarises an ExportAll run.
type ExportResult struct {
	Weeks  int
	Failed int
}

// ExportAll exports every week of a user. It recovers from lost messages
// or worker downtime; individual failures are logged and counted.
func (w *ExportWorker) ExportAll(ctx context.Context, userID string) (ExportResult, error) {
	weeks, err := w.source.ListWeeks(ctx, userID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list weeks: %w", err)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, wk := range weeks {
		ev := ports.WeekChanged{UserID: userID, WeekStart: wk.WeekStart, Reason: ports.ReasonResync}
		g.Go(func() error {
			if err := w.HandleWeekChanged(gctx, ev); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				w.logger.ErrorContext(gctx, "Failed to export week",
					log.FieldUserID, userID,
					log.FieldWeekStart, ev.WeekStart.String(),
					log.FieldError, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{Weeks: len(weeks), Failed: int(failed.Load())}
	w.logger.InfoContext(ctx, "User export completed",
		log.FieldUserID, userID,
		"weeks", res.Weeks,
		"errors", res.Failed)
	return res, nil
}
