package core

import (
	"math"
	"strings"
)

const (
	GoalKeySavings      = "savings"
	GoalKeyStudentLoans = "student_loans"
)

// FallbackTargets apply when a permanent goal has no stored target.
var FallbackTargets = map[string]Money{
	GoalKeySavings:      Cents(50000),
	GoalKeyStudentLoans: Cents(200000),
}

// GoalProgress is the derived state of a progress ring.
type GoalProgress struct {
	Current   Money   `json:"current"`
	Target    Money   `json:"target"`
	Remaining Money   `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// Progress computes completion against target. Percent is clamped to
// [0, 100] and a non-positive target yields 0.
func Progress(current, target Money) GoalProgress {
	p := GoalProgress{
		Current:   current,
		Target:    target,
		Remaining: MaxMoney(target.Sub(current), Money{}),
	}
	if target.Cents <= 0 {
		return p
	}
	pct := float64(current.Cents) / float64(target.Cents) * 100
	p.Percent = math.Max(0, math.Min(100, pct))
	return p
}

// TrackerTotals aggregates active collections by tracker and by exact label.
type TrackerTotals struct {
	ByTracker map[Tracker]Money
	ByLabel   map[string]Money
}

// SumTrackers totals all active collections and adjustments.
func SumTrackers(collections []BucketCollection) TrackerTotals {
	t := TrackerTotals{ByTracker: make(map[Tracker]Money), ByLabel: make(map[string]Money)}
	for _, c := range collections {
		if !c.Active() {
			continue
		}
		tr := ClassifyTracker(c.Bucket)
		t.ByTracker[tr] = t.ByTracker[tr].Add(c.Amount)
		label := strings.TrimSpace(c.Bucket)
		t.ByLabel[label] = t.ByLabel[label].Add(c.Amount)
	}
	return t
}

// CurrentFor returns the total that backs a goal. Tracker keys use the
// classified totals; custom goals only count rows with their exact key.
func (t TrackerTotals) CurrentFor(key string) Money {
	switch Tracker(key) {
	case TrackerSavings, TrackerStudentLoans, TrackerEmergency, TrackerExtraMoney:
		return t.ByTracker[Tracker(key)]
	}
	return t.ByLabel[key]
}

// IsPermanentGoal reports whether key names a goal that cannot be deleted.
func IsPermanentGoal(key string) bool {
	_, ok := FallbackTargets[key]
	return ok
}

// Deletable reports whether the goal may be removed.
func (g Goal) Deletable() bool {
	return !IsPermanentGoal(g.Key)
}

// DefaultGoals are seeded for a user on first view.
func DefaultGoals(userID string) []Goal {
	return []Goal{
		{UserID: userID, Key: GoalKeySavings, Title: "Savings", Target: FallbackTargets[GoalKeySavings], RingColor: "#22c55e", SortOrder: 0, Active: true},
		{UserID: userID, Key: GoalKeyStudentLoans, Title: "Student Loans", Target: FallbackTargets[GoalKeyStudentLoans], RingColor: "#3b82f6", SortOrder: 1, Active: true},
	}
}

// GoalView pairs a goal with its progress.
type GoalView struct {
	Goal     Goal         `json:"goal"`
	Progress GoalProgress `json:"progress"`
}

// GoalViews computes progress for active goals, in sort order.
func GoalViews(goals []Goal, totals TrackerTotals) []GoalView {
	out := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		if !g.Active {
			continue
		}
		target := g.Target
		if target.Cents <= 0 {
			target = FallbackTargets[g.Key]
		}
		out = append(out, GoalView{Goal: g, Progress: Progress(totals.CurrentFor(g.Key), target)})
	}
	return out
}
