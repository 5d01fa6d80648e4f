package services

import (
	"context"
	"fmt"
	"strings"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/ports"
)

// TransactionInput is the user-supplied part of a transaction. When Bucket
// is set the category is locked to it and mappings no longer apply.
type TransactionInput struct {
	Date        core.Date    `json:"date"`
	Amount      core.Money   `json:"amount"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Bucket      *core.Bucket `json:"bucket,omitempty"`
}

func (in TransactionInput) validateBucket() error {
	if in.Bucket != nil && !in.Bucket.Valid() {
		return core.ErrUnknownBucket
	}
	return nil
}

// requireWeek checks that the week containing d has income recorded and
// returns its start.
func requireWeek(tx ports.Tx, userID string, d core.Date) (core.Date, error) {
	week, err := alignWeek(tx, userID, d)
	if err != nil {
		return core.Date{}, err
	}
	if _, err := tx.GetIncome(userID, week); err != nil {
		return core.Date{}, err
	}
	return week, nil
}

// AddTransaction records a transaction in the week starting at weekDate.
// The transaction date must fall inside that week.
func (s *BudgetService) AddTransaction(ctx context.Context, userID string, weekDate core.Date, in TransactionInput) (core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := in.validateBucket(); err != nil {
		return core.Transaction{}, err
	}

	category := strings.TrimSpace(in.Category)
	if in.Bucket != nil {
		category = core.LockCategory(*in.Bucket, category)
	}
	tr := core.Transaction{
		UserID:      userID,
		Date:        in.Date,
		Amount:      in.Amount,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now(),
	}
	if err := tr.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var week core.Date
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		var err error
		if week, err = requireWeek(tx, userID, weekDate); err != nil {
			return err
		}
		if !core.InWeek(week, tr.Date) {
			return core.ErrDateOutsideWeek
		}
		tr.ID, err = tx.InsertTransaction(tr)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.afterChange(ctx, log.OpCreate, ports.ReasonTransactionAdded, userID, week, "", tr.Amount)
	return tr, nil
}

// EditTransaction replaces a transaction's date, amount, label and
// description. A locked transaction keeps its bucket; asking for a
// different one is rejected. An unlocked transaction can be locked by
// supplying a bucket.
func (s *BudgetService) EditTransaction(ctx context.Context, userID string, id int64, in TransactionInput) (core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := in.validateBucket(); err != nil {
		return core.Transaction{}, err
	}

	var updated core.Transaction
	var oldWeek, newWeek core.Date
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		existing, err := tx.GetTransaction(userID, id)
		if err != nil {
			return err
		}

		stored := core.SplitStoredCategory(existing.Category)
		raw := strings.TrimSpace(in.Category)
		if raw == "" {
			raw = stored.Raw
		}
		var category string
		switch {
		case stored.Locked():
			if in.Bucket != nil && *in.Bucket != *stored.Bucket {
				return core.ErrLockedBucket
			}
			category = core.RelabelCategory(existing.Category, raw)
		case in.Bucket != nil:
			category = core.LockCategory(*in.Bucket, raw)
		default:
			category = raw
		}

		updated = existing
		updated.Date = in.Date
		updated.Amount = in.Amount
		updated.Category = category
		updated.Description = strings.TrimSpace(in.Description)
		if err := updated.Validate(); err != nil {
			return err
		}

		if oldWeek, err = alignWeek(tx, userID, existing.Date); err != nil {
			return err
		}
		if newWeek, err = requireWeek(tx, userID, updated.Date); err != nil {
			return err
		}
		return tx.UpdateTransaction(updated)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("edit transaction: %w", err)
	}

	if !oldWeek.Equal(newWeek) {
		s.invalidateWeek(userID, oldWeek)
	}
	s.afterChange(ctx, log.OpUpdate, ports.ReasonTransactionEdited, userID, newWeek, "", updated.Amount)
	return updated, nil
}

// DeleteTransaction removes a transaction.
func (s *BudgetService) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	var week core.Date
	var amount core.Money
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		existing, err := tx.GetTransaction(userID, id)
		if err != nil {
			return err
		}
		amount = existing.Amount
		if week, err = alignWeek(tx, userID, existing.Date); err != nil {
			return err
		}
		return tx.DeleteTransaction(userID, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.afterChange(ctx, log.OpDelete, ports.ReasonTransactionDeleted, userID, week, "", amount)
	return nil
}
