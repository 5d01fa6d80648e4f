package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"buckets/internal/core"
	"buckets/internal/ports"
)

func TestUpdateIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	week := core.NewDate(2025, 3, 3)
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx ports.Tx) error {
		if err := tx.UpsertIncome(core.WeeklyIncome{UserID: "u1", WeekStart: week, Amount: core.Cents(100)}); err != nil {
			return err
		}
		if _, err := tx.InsertBudget(core.Budget{UserID: "u1", WeekStart: week, Bucket: core.BucketSave, Amount: core.Cents(15)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(ctx, func(tx ports.Tx) error {
		if _, err := tx.GetIncome("u1", week); !errors.Is(err, core.ErrWeekNotFound) {
			t.Fatalf("income leaked from failed update: %v", err)
		}
		budgets, _ := tx.ListBudgets("u1", week)
		if len(budgets) != 0 {
			t.Fatalf("budgets leaked from failed update: %+v", budgets)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	s := New()
	err := s.View(context.Background(), func(tx ports.Tx) error {
		return tx.UpsertMapping(core.CategoryMapping{UserID: "u1", Raw: "x", Bucket: core.BucketWants})
	})
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestDuplicateBudgetRejected(t *testing.T) {
	s := New()
	week := core.NewDate(2025, 3, 3)
	err := s.Update(context.Background(), func(tx ports.Tx) error {
		b := core.Budget{UserID: "u1", WeekStart: week, Bucket: core.BucketWants, Amount: core.Cents(1)}
		if _, err := tx.InsertBudget(b); err != nil {
			return err
		}
		_, err := tx.InsertBudget(b)
		return err
	})
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestCollectionsUndoAndIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	week := core.NewDate(2025, 3, 3)

	var id int64
	err := s.Update(ctx, func(tx ports.Tx) error {
		var err error
		id, err = tx.InsertCollection(core.BucketCollection{UserID: "u1", WeekStart: week, Bucket: "save", Amount: core.Cents(500)})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	// A snapshot taken before the undo must not observe it.
	var before []core.BucketCollection
	_ = s.View(ctx, func(tx ports.Tx) error {
		before, _ = tx.ListCollections("u1", &week)
		return nil
	})

	if err := s.Update(ctx, func(tx ports.Tx) error { return tx.MarkCollectionUndone("u1", id, time.Now()) }); err != nil {
		t.Fatal(err)
	}
	if !before[0].Active() || before[0].Kind != core.KindCollect {
		t.Fatalf("snapshot mutated: %+v", before[0])
	}

	_ = s.View(ctx, func(tx ports.Tx) error {
		rows, _ := tx.ListCollections("u1", nil)
		if len(rows) != 1 || rows[0].Active() {
			t.Fatalf("expected undone row, got %+v", rows)
		}
		other, _ := tx.ListCollections("u2", nil)
		if len(other) != 0 {
			t.Fatalf("rows visible to another user: %+v", other)
		}
		return nil
	})
}

func TestListIncomesNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	weeks := []core.Date{core.NewDate(2025, 3, 3), core.NewDate(2025, 3, 17), core.NewDate(2025, 3, 10)}
	_ = s.Update(ctx, func(tx ports.Tx) error {
		for _, w := range weeks {
			if err := tx.UpsertIncome(core.WeeklyIncome{UserID: "u1", WeekStart: w, Amount: core.Cents(100)}); err != nil {
				return err
			}
		}
		return nil
	})
	_ = s.View(ctx, func(tx ports.Tx) error {
		list, _ := tx.ListIncomes("u1")
		if len(list) != 3 || !list[0].WeekStart.Equal(weeks[1]) || !list[2].WeekStart.Equal(weeks[0]) {
			t.Fatalf("unexpected order %+v", list)
		}
		return nil
	})
}
