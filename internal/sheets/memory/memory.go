// Package memory is an in-process sheets exporter for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"buckets/internal/core"
	ports "buckets/internal/sheets"
)

type weekKey struct {
	user string
	week string
}

type Exporter struct {
	mu      sync.Mutex
	rows    map[weekKey][]ports.Row
	exports int
}

var (
	_ ports.WeekExporter = (*Exporter)(nil)
	_ ports.WeekReader   = (*Exporter)(nil)
)

func New() *Exporter {
	return &Exporter{rows: make(map[weekKey][]ports.Row)}
}

// ExportWeek replaces the stored rows of the week.
func (e *Exporter) ExportWeek(ctx context.Context, userID string, s core.WeekSummary) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rows := ports.RowsFor(userID, s)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows[weekKey{userID, s.WeekStart.String()}] = rows
	e.exports++
	return len(rows), nil
}

func (e *Exporter) ReadWeek(_ context.Context, userID string, week core.Date) ([]ports.Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ports.Row(nil), e.rows[weekKey{userID, week.String()}]...), nil
}

// Weeks lists exported week starts for a user, oldest first.
func (e *Exporter) Weeks(userID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for k := range e.rows {
		if k.user == userID {
			out = append(out, k.week)
		}
	}
	sort.Strings(out)
	return out
}

// Exports counts ExportWeek calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
