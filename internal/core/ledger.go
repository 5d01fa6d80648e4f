package core

import "sort"

// WeekData is everything needed to reconcile one user-week.
// Slices may contain rows from other weeks; Summarize filters them.
type WeekData struct {
	WeekStart    Date
	Income       *WeeklyIncome
	Budgets      []Budget
	Transactions []Transaction
	Transfers    []BucketTransfer
	Mappings     []CategoryMapping
	Collections  []BucketCollection
}

// LedgerRow is the reconciliation of one bucket for the week.
type LedgerRow struct {
	Bucket       Bucket `json:"bucket"`
	Label        string `json:"label"`
	Allocated    Money  `json:"allocated"`
	TransfersIn  Money  `json:"transfers_in"`
	TransfersOut Money  `json:"transfers_out"`
	Budgeted     Money  `json:"budgeted"`
	Spent        Money  `json:"spent"`
	Income       Money  `json:"income"`
	Variance     Money  `json:"variance"`
	Collected    bool   `json:"collected"`
	Available    Money  `json:"available"`
}

// Overspent reports whether spending exceeded the budget.
func (r LedgerRow) Overspent() bool {
	return r.Variance.IsNegative()
}

// UnmappedGroup aggregates transactions whose category has no bucket.
type UnmappedGroup struct {
	Raw    string `json:"raw"`
	Count  int    `json:"count"`
	Spent  Money  `json:"spent"`
	Income Money  `json:"income"`
}

// Totals sums the ledger rows.
type Totals struct {
	Budgeted   Money `json:"budgeted"`
	Spent      Money `json:"spent"`
	Difference Money `json:"difference"`
}

// WeekSummary is the derived view of a week. It is never stored.
type WeekSummary struct {
	WeekStart Date            `json:"week_start"`
	WeekEnd   Date            `json:"week_end"`
	Income    Money           `json:"income"`
	Rows      []LedgerRow     `json:"rows"`
	Totals    Totals          `json:"totals"`
	Unmapped  []UnmappedGroup `json:"unmapped"`
}

// Row returns the ledger row for b.
func (s WeekSummary) Row(b Bucket) (LedgerRow, bool) {
	for _, r := range s.Rows {
		if r.Bucket == b {
			return r, true
		}
	}
	return LedgerRow{}, false
}

// Summarize reconciles a week. Spending is the sum of negative transaction
// magnitudes; positive transactions are reported as income and never offset
// spending. Transactions dated outside the week are ignored.
func Summarize(d WeekData) WeekSummary {
	start := d.WeekStart
	rows := make(map[Bucket]*LedgerRow, len(bucketOrder))
	for _, b := range bucketOrder {
		rows[b] = &LedgerRow{Bucket: b, Label: b.Label()}
	}

	for _, b := range d.Budgets {
		if r, ok := rows[b.Bucket]; ok && b.WeekStart.Equal(start) {
			r.Allocated = r.Allocated.Add(b.Amount)
		}
	}
	for _, t := range d.Transfers {
		if !t.WeekStart.Equal(start) {
			continue
		}
		if r, ok := rows[t.From]; ok {
			r.TransfersOut = r.TransfersOut.Add(t.Amount)
		}
		if r, ok := rows[t.To]; ok {
			r.TransfersIn = r.TransfersIn.Add(t.Amount)
		}
	}

	classifier := NewClassifier(d.Mappings)
	unmapped := make(map[string]*UnmappedGroup)
	var unmappedOrder []string
	for _, t := range d.Transactions {
		if !InWeek(start, t.Date) {
			continue
		}
		if b, ok := classifier.Classify(t.Category); ok {
			r := rows[b]
			if t.Amount.IsNegative() {
				r.Spent = r.Spent.Add(t.Amount.Abs())
			} else {
				r.Income = r.Income.Add(t.Amount)
			}
			continue
		}
		raw := SplitStoredCategory(t.Category).Raw
		key := NormalizeLabel(raw)
		g, ok := unmapped[key]
		if !ok {
			g = &UnmappedGroup{Raw: raw}
			unmapped[key] = g
			unmappedOrder = append(unmappedOrder, key)
		}
		g.Count++
		if t.Amount.IsNegative() {
			g.Spent = g.Spent.Add(t.Amount.Abs())
		} else {
			g.Income = g.Income.Add(t.Amount)
		}
	}

	collected := CollectedBuckets(start, d.Collections)

	summary := WeekSummary{WeekStart: start, WeekEnd: WeekEnd(start)}
	if d.Income != nil {
		summary.Income = d.Income.Amount
	}
	for _, b := range bucketOrder {
		r := rows[b]
		r.Budgeted = r.Allocated.Add(r.TransfersIn).Sub(r.TransfersOut)
		r.Variance = r.Budgeted.Sub(r.Spent)
		r.Collected = collected[b]
		r.Available = AvailableFrom(*r)
		summary.Rows = append(summary.Rows, *r)
		summary.Totals.Budgeted = summary.Totals.Budgeted.Add(r.Budgeted)
		summary.Totals.Spent = summary.Totals.Spent.Add(r.Spent)
	}
	summary.Totals.Difference = summary.Totals.Budgeted.Sub(summary.Totals.Spent)

	summary.Unmapped = make([]UnmappedGroup, 0, len(unmappedOrder))
	for _, k := range unmappedOrder {
		summary.Unmapped = append(summary.Unmapped, *unmapped[k])
	}
	sort.SliceStable(summary.Unmapped, func(i, j int) bool {
		return summary.Unmapped[i].Spent.Cents > summary.Unmapped[j].Spent.Cents
	})
	return summary
}

// CollectedBuckets returns the buckets with an active collection for the week.
func CollectedBuckets(weekStart Date, collections []BucketCollection) map[Bucket]bool {
	out := make(map[Bucket]bool)
	for _, c := range collections {
		if c.Kind != KindCollect || !c.Active() || !c.WeekStart.Equal(weekStart) {
			continue
		}
		if b := Bucket(c.Bucket); b.Valid() {
			out[b] = true
		}
	}
	return out
}
