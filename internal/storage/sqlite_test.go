package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"buckets/internal/core"
	"buckets/internal/ports"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "buckets.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 2 || v2 != 2 {
		t.Fatalf("unexpected versions %d, %d", v1, v2)
	}
}

func TestIncomeBudgetsAndTransfers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	week := core.NewDate(2025, 3, 3)

	err := s.Update(ctx, func(tx ports.Tx) error {
		if err := tx.UpsertIncome(core.WeeklyIncome{UserID: "u1", WeekStart: week, Amount: core.Cents(10000)}); err != nil {
			return err
		}
		budgets, err := core.BuildBudgets("u1", week, core.Cents(10000))
		if err != nil {
			return err
		}
		for _, b := range budgets {
			if _, err := tx.InsertBudget(b); err != nil {
				return err
			}
		}
		_, err = tx.InsertTransfer(core.BucketTransfer{UserID: "u1", WeekStart: week, From: core.BucketSave, To: core.BucketWants, Amount: core.Cents(300)})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	// Upsert replaces the amount without adding a second row.
	if err := s.Update(ctx, func(tx ports.Tx) error {
		return tx.UpsertIncome(core.WeeklyIncome{UserID: "u1", WeekStart: week, Amount: core.Cents(20000)})
	}); err != nil {
		t.Fatal(err)
	}

	err = s.View(ctx, func(tx ports.Tx) error {
		incomes, err := tx.ListIncomes("u1")
		if err != nil {
			return err
		}
		if len(incomes) != 1 || incomes[0].Amount.Cents != 20000 || !incomes[0].WeekStart.Equal(week) {
			t.Fatalf("unexpected incomes %+v", incomes)
		}
		budgets, err := tx.ListBudgets("u1", week)
		if err != nil {
			return err
		}
		if len(budgets) != 5 || budgets[0].Bucket != core.BucketSave {
			t.Fatalf("unexpected budgets %+v", budgets)
		}
		transfers, err := tx.ListTransfers("u1", week)
		if err != nil {
			return err
		}
		if len(transfers) != 1 || transfers[0].To != core.BucketWants {
			t.Fatalf("unexpected transfers %+v", transfers)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Duplicate budget violates the unique constraint.
	err = s.Update(ctx, func(tx ports.Tx) error {
		_, err := tx.InsertBudget(core.Budget{UserID: "u1", WeekStart: week, Bucket: core.BucketSave, Amount: core.Cents(1)})
		return err
	})
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	week := core.NewDate(2025, 3, 3)
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx ports.Tx) error {
		if err := tx.UpsertIncome(core.WeeklyIncome{UserID: "u1", WeekStart: week, Amount: core.Cents(100)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(ctx, func(tx ports.Tx) error {
		_, err := tx.GetIncome("u1", week)
		return err
	})
	if !errors.Is(err, core.ErrWeekNotFound) {
		t.Fatalf("expected week not found after rollback, got %v", err)
	}
}

func TestTransactionsCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	week := core.NewDate(2025, 3, 3)

	var id int64
	err := s.Update(ctx, func(tx ports.Tx) error {
		var err error
		id, err = tx.InsertTransaction(core.Transaction{UserID: "u1", Date: week.AddDays(1), Amount: core.Cents(-450), Category: "wants::Dining", Description: "lunch"})
		if err != nil {
			return err
		}
		_, err = tx.InsertTransaction(core.Transaction{UserID: "u1", Date: week.AddDays(8), Amount: core.Cents(-1), Category: "x"})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update(ctx, func(tx ports.Tx) error {
		tr, err := tx.GetTransaction("u1", id)
		if err != nil {
			return err
		}
		tr.Category = core.RelabelCategory(tr.Category, "Restaurants")
		return tx.UpdateTransaction(tr)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(ctx, func(tx ports.Tx) error {
		list, err := tx.ListTransactions("u1", week, core.WeekEnd(week))
		if err != nil {
			return err
		}
		if len(list) != 1 || list[0].Category != "wants::Restaurants" || list[0].Amount.Cents != -450 {
			t.Fatalf("unexpected transactions %+v", list)
		}
		if _, err := tx.GetTransaction("u2", id); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("other users must not see the transaction, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update(ctx, func(tx ports.Tx) error { return tx.DeleteTransaction("u1", id) })
	if err != nil {
		t.Fatal(err)
	}
	err = s.Update(ctx, func(tx ports.Tx) error { return tx.DeleteTransaction("u1", id) })
	if !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMappingsAndPreferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	notice := 5

	err := s.Update(ctx, func(tx ports.Tx) error {
		if err := tx.UpsertMapping(core.CategoryMapping{UserID: "u1", Raw: "Dining", Bucket: core.BucketWants}); err != nil {
			return err
		}
		if err := tx.UpsertMapping(core.CategoryMapping{UserID: "u1", Raw: " dining ", Bucket: core.BucketExpenses}); err != nil {
			return err
		}
		return tx.UpsertPreferences(core.UserPreferences{UserID: "u1", WeekStartDOW: 0, NoticeDOW: &notice})
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(ctx, func(tx ports.Tx) error {
		m, err := tx.ListMappings("u1")
		if err != nil {
			return err
		}
		if len(m) != 1 || m[0].Bucket != core.BucketExpenses {
			t.Fatalf("unexpected mappings %+v", m)
		}
		p, err := tx.GetPreferences("u1")
		if err != nil {
			return err
		}
		if p.WeekStartDOW != 0 || p.NoticeDOW == nil || *p.NoticeDOW != 5 {
			t.Fatalf("unexpected preferences %+v", p)
		}
		if _, err := tx.GetPreferences("u2"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update(ctx, func(tx ports.Tx) error { return tx.DeleteMapping("u1", "DINING") })
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectionsAndGoals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	week := core.NewDate(2025, 3, 3)

	var id int64
	err := s.Update(ctx, func(tx ports.Tx) error {
		var err error
		id, err = tx.InsertCollection(core.BucketCollection{UserID: "u1", WeekStart: week, Bucket: "save", Kind: core.KindCollect, Amount: core.Cents(1500)})
		if err != nil {
			return err
		}
		if _, err := tx.InsertCollection(core.BucketCollection{UserID: "u1", WeekStart: week.AddDays(7), Bucket: "car", Kind: core.KindAdjustment, Amount: core.Cents(-200)}); err != nil {
			return err
		}
		for _, g := range core.DefaultGoals("u1") {
			if _, err := tx.InsertGoal(g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	if err := s.Update(ctx, func(tx ports.Tx) error { return tx.MarkCollectionUndone("u1", id, now) }); err != nil {
		t.Fatal(err)
	}
	err = s.Update(ctx, func(tx ports.Tx) error { return tx.MarkCollectionUndone("u1", id, now) })
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("undoing twice should report not found, got %v", err)
	}

	err = s.View(ctx, func(tx ports.Tx) error {
		weekRows, err := tx.ListCollections("u1", &week)
		if err != nil {
			return err
		}
		if len(weekRows) != 1 || weekRows[0].Active() {
			t.Fatalf("unexpected week collections %+v", weekRows)
		}
		all, err := tx.ListCollections("u1", nil)
		if err != nil {
			return err
		}
		if len(all) != 2 || all[1].Kind != core.KindAdjustment || all[1].Amount.Cents != -200 {
			t.Fatalf("unexpected collections %+v", all)
		}

		goals, err := tx.ListGoals("u1")
		if err != nil {
			return err
		}
		if len(goals) != 2 || goals[0].Key != core.GoalKeySavings || !goals[0].Active {
			t.Fatalf("unexpected goals %+v", goals)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update(ctx, func(tx ports.Tx) error {
		g, err := tx.GetGoal("u1", core.GoalKeySavings)
		if err != nil {
			return err
		}
		g.Target = core.Cents(80000)
		return tx.UpdateGoal(g)
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Update(ctx, func(tx ports.Tx) error { return tx.DeleteGoal("u1", "missing") })
	if !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected goal not found, got %v", err)
	}
}
