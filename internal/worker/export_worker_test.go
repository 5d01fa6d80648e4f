package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/memory"
	"buckets/internal/ports"
	sheetsmem "buckets/internal/sheets/memory"
	"buckets/internal/services"
)

func discardLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

type failingExporter struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *failingExporter) ExportWeek(_ context.Context, _ string, s core.WeekSummary) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[s.WeekStart.String()] {
		return 0, errors.New("quota exceeded")
	}
	return len(s.Rows), nil
}

func newService(t *testing.T) *services.BudgetService {
	t.Helper()
	svc := services.NewBudgetService(memory.New(), services.WithLogger(discardLogger()))
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestHandleWeekChanged(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	week := core.NewDate(2025, 1, 6)
	if _, err := svc.SetWeeklyIncome(ctx, "u1", week, core.Cents(10000)); err != nil {
		t.Fatalf("SetWeeklyIncome: %v", err)
	}

	exp := sheetsmem.New()
	w := NewExportWorker(svc, exp, 2, discardLogger())

	ev := ports.WeekChanged{UserID: "u1", WeekStart: week, Reason: ports.ReasonIncomeSet}
	if err := w.HandleWeekChanged(ctx, ev); err != nil {
		t.Fatalf("HandleWeekChanged: %v", err)
	}
	rows, _ := exp.ReadWeek(ctx, "u1", week)
	if len(rows) != len(core.AllBuckets()) {
		t.Fatalf("exported %d rows, want %d", len(rows), len(core.AllBuckets()))
	}

	if err := svc.DeleteWeek(ctx, "u1", week); err != nil {
		t.Fatalf("DeleteWeek: %v", err)
	}
	ev.Reason = ports.ReasonWeekDeleted
	if err := w.HandleWeekChanged(ctx, ev); err != nil {
		t.Fatalf("HandleWeekChanged after delete: %v", err)
	}
	rows, _ = exp.ReadWeek(ctx, "u1", week)
	if len(rows) != 0 {
		t.Errorf("deleted week still has %d rows", len(rows))
	}
}

func TestHandleWeekChangedSeesWritesFromAnotherProcess(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	api := services.NewBudgetService(store, services.WithLogger(discardLogger()))
	reader := services.NewBudgetService(store, services.WithLogger(discardLogger()), services.WithoutSummaryCache())

	week := core.NewDate(2025, 1, 6)
	if _, err := api.SetWeeklyIncome(ctx, "u1", week, core.Cents(10000)); err != nil {
		t.Fatalf("SetWeeklyIncome: %v", err)
	}
	exp := sheetsmem.New()
	w := NewExportWorker(reader, exp, 1, discardLogger())
	ev := ports.WeekChanged{UserID: "u1", WeekStart: week, Reason: ports.ReasonIncomeSet}
	if err := w.HandleWeekChanged(ctx, ev); err != nil {
		t.Fatalf("HandleWeekChanged: %v", err)
	}

	wants := core.BucketWants
	if _, err := api.AddTransaction(ctx, "u1", week, services.TransactionInput{
		Date: week, Amount: core.Cents(-700), Category: "Lunch", Bucket: &wants,
	}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := w.HandleWeekChanged(ctx, ev); err != nil {
		t.Fatalf("HandleWeekChanged: %v", err)
	}

	rows, _ := exp.ReadWeek(ctx, "u1", week)
	found := false
	for _, r := range rows {
		if r.Bucket != core.BucketWants {
			continue
		}
		found = true
		if r.Spent.Cents != 700 {
			t.Fatalf("exported wants spent = %s, want 7.00", r.Spent)
		}
	}
	if !found {
		t.Fatal("no wants row exported")
	}
}

func TestHandleWeekChangedExportError(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	week := core.NewDate(2025, 1, 6)
	if _, err := svc.SetWeeklyIncome(ctx, "u1", week, core.Cents(100)); err != nil {
		t.Fatalf("SetWeeklyIncome: %v", err)
	}

	w := NewExportWorker(svc, &failingExporter{fail: map[string]bool{week.String(): true}}, 1, discardLogger())
	err := w.HandleWeekChanged(ctx, ports.WeekChanged{UserID: "u1", WeekStart: week})
	if err == nil {
		t.Fatal("expected export error to be returned for requeue")
	}
}

func TestExportAll(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	first := core.NewDate(2025, 1, 6)
	for i := 0; i < 5; i++ {
		if _, err := svc.SetWeeklyIncome(ctx, "u1", first.AddDays(7*i), core.Cents(1000)); err != nil {
			t.Fatalf("SetWeeklyIncome: %v", err)
		}
	}

	exp := &failingExporter{fail: map[string]bool{first.AddDays(14).String(): true}}
	w := NewExportWorker(svc, exp, 3, discardLogger())

	res, err := w.ExportAll(ctx, "u1")
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if res.Weeks != 5 || res.Failed != 1 {
		t.Errorf("result = %+v, want 5 weeks with 1 failure", res)
	}
	if exp.calls != 5 {
		t.Errorf("export calls = %d, want 5", exp.calls)
	}
}

func TestExportAllCancelled(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewExportWorker(svc, sheetsmem.New(), 0, discardLogger())
	if _, err := w.ExportAll(ctx, "u1"); err == nil {
		t.Fatal("expected cancellation error")
	}
}
