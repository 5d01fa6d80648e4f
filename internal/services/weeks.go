package services

import (
	"context"
	"fmt"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/ports"
)

// WeekAllocation is the result of recording a week's income.
type WeekAllocation struct {
	WeekStart   core.Date         `json:"week_start"`
	Income      core.Money        `json:"income"`
	Allocations []core.Allocation `json:"allocations"`
}

// Preferences returns the user's calendar settings, or the defaults.
func (s *BudgetService) Preferences(ctx context.Context, userID string) (core.UserPreferences, error) {
	if err := requireUser(userID); err != nil {
		return core.UserPreferences{}, err
	}
	var p core.UserPreferences
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		p, err = preferences(tx, userID)
		return err
	})
	return p, err
}

// SavePreferences stores the user's calendar settings. Week alignment of
// existing weeks is not rewritten.
func (s *BudgetService) SavePreferences(ctx context.Context, userID string, p core.UserPreferences) (core.UserPreferences, error) {
	if err := requireUser(userID); err != nil {
		return core.UserPreferences{}, err
	}
	p.UserID = userID
	if err := p.Validate(); err != nil {
		return core.UserPreferences{}, err
	}
	if err := s.store.Update(ctx, func(tx ports.Tx) error { return tx.UpsertPreferences(p) }); err != nil {
		return core.UserPreferences{}, fmt.Errorf("save preferences: %w", err)
	}
	s.invalidateUser(userID)
	return p, nil
}

// SetWeeklyIncome records income for the week containing date and rebuilds
// the week's budgets. Existing transfers for the week are discarded since
// they were made against the old allocation.
func (s *BudgetService) SetWeeklyIncome(ctx context.Context, userID string, date core.Date, income core.Money) (WeekAllocation, error) {
	if err := requireUser(userID); err != nil {
		return WeekAllocation{}, err
	}
	allocations, err := core.Allocate(income)
	if err != nil {
		return WeekAllocation{}, err
	}

	var week core.Date
	err = s.store.Update(ctx, func(tx ports.Tx) error {
		var err error
		if week, err = alignWeek(tx, userID, date); err != nil {
			return err
		}
		w := core.WeeklyIncome{UserID: userID, WeekStart: week, Amount: income, UpdatedAt: s.now()}
		if err := w.Validate(); err != nil {
			return err
		}
		if err := tx.UpsertIncome(w); err != nil {
			return err
		}
		if err := tx.DeleteBudgets(userID, week); err != nil {
			return err
		}
		if err := tx.DeleteTransfers(userID, week); err != nil {
			return err
		}
		for _, a := range allocations {
			b := core.Budget{UserID: userID, WeekStart: week, Bucket: a.Bucket, Amount: a.Amount}
			if _, err := tx.InsertBudget(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return WeekAllocation{}, fmt.Errorf("set weekly income: %w", err)
	}

	s.afterChange(ctx, log.OpAllocate, ports.ReasonIncomeSet, userID, week, "", income)
	return WeekAllocation{WeekStart: week, Income: income, Allocations: allocations}, nil
}

// DeleteWeek removes the week's income, budgets and transfers. Transactions
// and collections are kept.
func (s *BudgetService) DeleteWeek(ctx context.Context, userID string, date core.Date) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	var week core.Date
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		var err error
		if week, err = alignWeek(tx, userID, date); err != nil {
			return err
		}
		if err := tx.DeleteIncome(userID, week); err != nil {
			return err
		}
		if err := tx.DeleteBudgets(userID, week); err != nil {
			return err
		}
		return tx.DeleteTransfers(userID, week)
	})
	if err != nil {
		return fmt.Errorf("delete week: %w", err)
	}
	s.afterChange(ctx, log.OpDelete, ports.ReasonWeekDeleted, userID, week, "", core.Money{})
	return nil
}

// ListWeeks returns every week with recorded income, most recent first.
func (s *BudgetService) ListWeeks(ctx context.Context, userID string) ([]core.WeeklyIncome, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var weeks []core.WeeklyIncome
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		weeks, err = tx.ListIncomes(userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	return weeks, nil
}

// WeekSummary reconciles the week containing date. Results are cached until
// the next mutation of that week; concurrent loads of the same week share
// one store read. The returned value must not be modified.
func (s *BudgetService) WeekSummary(ctx context.Context, userID string, date core.Date) (core.WeekSummary, error) {
	if err := requireUser(userID); err != nil {
		return core.WeekSummary{}, err
	}

	var week core.Date
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		week, err = alignWeek(tx, userID, date)
		return err
	})
	if err != nil {
		return core.WeekSummary{}, err
	}

	if s.uncached {
		summary, err := s.loadSummary(ctx, userID, week)
		if err != nil {
			return core.WeekSummary{}, fmt.Errorf("week summary: %w", err)
		}
		return summary, nil
	}

	key := summaryKey(userID, week)
	if cached, ok := s.summaries.Get(key); ok {
		return cached, nil
	}

	v, err, _ := s.loads.Do(key, func() (any, error) {
		gen := s.generation.Load()
		summary, err := s.loadSummary(ctx, userID, week)
		if err != nil {
			return core.WeekSummary{}, err
		}
		if s.generation.Load() == gen {
			s.summaries.Set(key, summary)
		}
		return summary, nil
	})
	if err != nil {
		return core.WeekSummary{}, fmt.Errorf("week summary: %w", err)
	}
	return v.(core.WeekSummary), nil
}

// loadSummary summarizes the week from one consistent read.
func (s *BudgetService) loadSummary(ctx context.Context, userID string, week core.Date) (core.WeekSummary, error) {
	var data core.WeekData
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		data, err = loadWeekData(tx, userID, week)
		return err
	})
	if err != nil {
		return core.WeekSummary{}, err
	}
	return core.Summarize(data), nil
}

// loadWeekData reads everything Summarize needs. The week must have income.
func loadWeekData(tx ports.Tx, userID string, week core.Date) (core.WeekData, error) {
	income, err := tx.GetIncome(userID, week)
	if err != nil {
		return core.WeekData{}, err
	}
	data := core.WeekData{WeekStart: week, Income: &income}
	if data.Budgets, err = tx.ListBudgets(userID, week); err != nil {
		return core.WeekData{}, err
	}
	if data.Transactions, err = tx.ListTransactions(userID, week, core.WeekEnd(week)); err != nil {
		return core.WeekData{}, err
	}
	if data.Transfers, err = tx.ListTransfers(userID, week); err != nil {
		return core.WeekData{}, err
	}
	if data.Mappings, err = tx.ListMappings(userID); err != nil {
		return core.WeekData{}, err
	}
	if data.Collections, err = tx.ListCollections(userID, &week); err != nil {
		return core.WeekData{}, err
	}
	return data, nil
}

// loadSummary reconciles a week inside an open transaction, bypassing the cache.
func loadSummary(tx ports.Tx, userID string, week core.Date) (core.WeekSummary, error) {
	data, err := loadWeekData(tx, userID, week)
	if err != nil {
		return core.WeekSummary{}, err
	}
	return core.Summarize(data), nil
}
