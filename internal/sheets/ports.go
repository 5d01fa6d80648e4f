// Package sheets exports reconciled weeks to a spreadsheet.
package sheets

import (
	"context"

	"buckets/internal/core"
)

// Header is the first row of the export sheet.
var Header = []string{"User", "Week", "Bucket", "Budgeted", "Spent", "Income", "Variance", "Collected", "Exported At"}

// Row is one exported ledger row.
type Row struct {
	UserID    string
	WeekStart core.Date
	Bucket    core.Bucket
	Budgeted  core.Money
	Spent     core.Money
	Income    core.Money
	Variance  core.Money
	Collected bool
}

// Ports for outbound adapters.
type (
	// WeekExporter replaces every exported row of a user's week.
	WeekExporter interface {
		ExportWeek(ctx context.Context, userID string, s core.WeekSummary) (rows int, err error)
	}

	// WeekReader reads back what was exported for a user's week.
	WeekReader interface {
		ReadWeek(ctx context.Context, userID string, week core.Date) ([]Row, error)
	}
)

// RowsFor flattens a summary into export rows, one per bucket.
func RowsFor(userID string, s core.WeekSummary) []Row {
	out := make([]Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		out = append(out, Row{
			UserID:    userID,
			WeekStart: s.WeekStart,
			Bucket:    r.Bucket,
			Budgeted:  r.Budgeted,
			Spent:     r.Spent,
			Income:    r.Income,
			Variance:  r.Variance,
			Collected: r.Collected,
		})
	}
	return out
}
