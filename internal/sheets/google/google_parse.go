package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"buckets/internal/core"
	ports "buckets/internal/sheets"
)

const (
	colUser = iota
	colWeek
	colBucket
	colBudgeted
	colSpent
	colIncome
	colVariance
	colCollected
	colExportedAt
	numCols
)

func headerRow() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

func encodeRow(r ports.Row, exportedAt time.Time) []any {
	collected := "no"
	if r.Collected {
		collected = "yes"
	}
	return []any{
		r.UserID,
		r.WeekStart.String(),
		string(r.Bucket),
		r.Budgeted.Float(),
		r.Spent.Float(),
		r.Income.Float(),
		r.Variance.Float(),
		collected,
		exportedAt.UTC().Format(time.RFC3339),
	}
}

// decodeRow parses a sheet row. Rows that are not ledger rows, such as the
// header, report false.
func decodeRow(cols []string) (ports.Row, bool) {
	if len(cols) < colCollected+1 {
		return ports.Row{}, false
	}
	week, err := core.ParseDate(cols[colWeek])
	if err != nil {
		return ports.Row{}, false
	}
	bucket, err := core.ParseBucket(cols[colBucket])
	if err != nil {
		return ports.Row{}, false
	}
	r := ports.Row{
		UserID:    cols[colUser],
		WeekStart: week,
		Bucket:    bucket,
		Collected: strings.EqualFold(cols[colCollected], "yes"),
	}
	for _, f := range []struct {
		col int
		dst *core.Money
	}{
		{colBudgeted, &r.Budgeted},
		{colSpent, &r.Spent},
		{colIncome, &r.Income},
		{colVariance, &r.Variance},
	} {
		m, ok := parseEuros(cols[f.col])
		if !ok {
			return ports.Row{}, false
		}
		*f.dst = m
	}
	return r, true
}

// mergeRows drops every existing row of the user's week and appends fresh.
// The header is always the first row of the result.
func mergeRows(existing [][]any, userID, week string, fresh [][]any) [][]any {
	out := [][]any{headerRow()}
	for i, row := range existing {
		cols := toStrings(row)
		if i == 0 && len(cols) > 0 && strings.EqualFold(cols[0], ports.Header[0]) {
			continue
		}
		if len(cols) > colWeek && cols[colUser] == userID && cols[colWeek] == week {
			continue
		}
		if len(cols) == 0 {
			continue
		}
		out = append(out, row)
	}
	return append(out, fresh...)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

// parseEuros accepts plain or comma-decimal amounts as rendered by Sheets.
func parseEuros(s string) (core.Money, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	m, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, false
	}
	return m, true
}
