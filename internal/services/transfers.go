package services

import (
	"context"
	"fmt"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/ports"
)

// CoverOverspend moves funds into an overspent bucket. The plan is computed
// against the state inside the same transaction that records it, so two
// concurrent requests cannot both spend the same leftover.
func (s *BudgetService) CoverOverspend(ctx context.Context, userID string, weekDate core.Date, req core.CoverRequest) (core.BucketTransfer, error) {
	if err := requireUser(userID); err != nil {
		return core.BucketTransfer{}, err
	}
	var transfer core.BucketTransfer
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		week, err := alignWeek(tx, userID, weekDate)
		if err != nil {
			return err
		}
		summary, err := loadSummary(tx, userID, week)
		if err != nil {
			return err
		}
		if transfer, err = core.PlanCoverOverspend(userID, summary, req, s.now()); err != nil {
			return err
		}
		transfer.ID, err = tx.InsertTransfer(transfer)
		return err
	})
	if err != nil {
		return core.BucketTransfer{}, fmt.Errorf("cover overspend: %w", err)
	}
	s.afterChange(ctx, log.OpTransfer, ports.ReasonTransfer, userID, transfer.WeekStart, string(transfer.To), transfer.Amount)
	return transfer, nil
}

// CoverSources lists the buckets able to cover target, largest available first.
func (s *BudgetService) CoverSources(ctx context.Context, userID string, weekDate core.Date, target core.Bucket) ([]core.LedgerRow, error) {
	if !target.Valid() {
		return nil, core.ErrUnknownBucket
	}
	summary, err := s.WeekSummary(ctx, userID, weekDate)
	if err != nil {
		return nil, err
	}
	return core.CoverSources(summary, target), nil
}

// Collect moves a bucket's leftover into its savings tracker.
func (s *BudgetService) Collect(ctx context.Context, userID string, weekDate core.Date, bucket core.Bucket) (core.BucketCollection, error) {
	if err := requireUser(userID); err != nil {
		return core.BucketCollection{}, err
	}
	var collection core.BucketCollection
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		week, err := alignWeek(tx, userID, weekDate)
		if err != nil {
			return err
		}
		summary, err := loadSummary(tx, userID, week)
		if err != nil {
			return err
		}
		if collection, err = core.PlanCollect(userID, summary, bucket, s.now()); err != nil {
			return err
		}
		collection.ID, err = tx.InsertCollection(collection)
		return err
	})
	if err != nil {
		return core.BucketCollection{}, fmt.Errorf("collect: %w", err)
	}
	s.afterChange(ctx, log.OpCollect, ports.ReasonCollect, userID, collection.WeekStart, collection.Bucket, collection.Amount)
	return collection, nil
}

// UndoResult reports what UndoCollect did.
type UndoResult struct {
	Undone     bool                   `json:"undone"`
	Collection *core.BucketCollection `json:"collection,omitempty"`
}

// UndoCollect marks the latest active collection of bucket as undone.
// Undoing when nothing is collected is not an error: Undone is false.
func (s *BudgetService) UndoCollect(ctx context.Context, userID string, weekDate core.Date, bucket core.Bucket) (UndoResult, error) {
	if err := requireUser(userID); err != nil {
		return UndoResult{}, err
	}
	if !bucket.Valid() {
		return UndoResult{}, core.ErrUnknownBucket
	}

	var result UndoResult
	var week core.Date
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		var err error
		if week, err = alignWeek(tx, userID, weekDate); err != nil {
			return err
		}
		rows, err := tx.ListCollections(userID, &week)
		if err != nil {
			return err
		}
		latest, ok := core.LatestActiveCollect(week, bucket, rows)
		if !ok {
			return nil
		}
		at := s.now()
		if err := tx.MarkCollectionUndone(userID, latest.ID, at); err != nil {
			return err
		}
		latest.UndoneAt = &at
		result = UndoResult{Undone: true, Collection: &latest}
		return nil
	})
	if err != nil {
		return UndoResult{}, fmt.Errorf("undo collect: %w", err)
	}
	if result.Undone {
		s.afterChange(ctx, log.OpUndo, ports.ReasonUndoCollect, userID, week, string(bucket), result.Collection.Amount)
	}
	return result, nil
}

// AddAdjustment records a manual signed change to a tracker or goal total.
// The target week is required.
func (s *BudgetService) AddAdjustment(ctx context.Context, userID string, adj core.Adjustment) (core.BucketCollection, error) {
	if err := requireUser(userID); err != nil {
		return core.BucketCollection{}, err
	}
	if err := adj.Validate(); err != nil {
		return core.BucketCollection{}, err
	}

	var row core.BucketCollection
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		week, err := alignWeek(tx, userID, adj.WeekStart)
		if err != nil {
			return err
		}
		adj.WeekStart = week
		if row, err = adj.Collection(userID, s.now()); err != nil {
			return err
		}
		row.ID, err = tx.InsertCollection(row)
		return err
	})
	if err != nil {
		return core.BucketCollection{}, fmt.Errorf("add adjustment: %w", err)
	}
	s.afterChange(ctx, log.OpAdjust, ports.ReasonAdjustment, userID, row.WeekStart, row.Bucket, row.Amount)
	return row, nil
}
