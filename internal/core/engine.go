package core

import (
	"sort"
	"strings"
	"time"
)

// AvailableFrom is what a bucket can give away: its positive variance,
// or nothing once its leftover has been collected.
func AvailableFrom(r LedgerRow) Money {
	if r.Collected || r.Variance.Cents <= 0 {
		return Money{}
	}
	return r.Variance
}

// CoverRequest asks to move funds from one bucket into an overspent one.
// A nil Amount means "as much as possible".
type CoverRequest struct {
	From   Bucket `json:"from"`
	To     Bucket `json:"to"`
	Amount *Money `json:"amount,omitempty"`
}

// PlanCoverOverspend computes the transfer that covers the deficit of
// req.To from req.From. The amount is the smallest of the requested
// amount, the deficit and what the source has available.
func PlanCoverOverspend(userID string, s WeekSummary, req CoverRequest, now time.Time) (BucketTransfer, error) {
	if err := validateUser(userID); err != nil {
		return BucketTransfer{}, err
	}
	if !req.From.Valid() || !req.To.Valid() {
		return BucketTransfer{}, ErrUnknownBucket
	}
	if req.From == req.To {
		return BucketTransfer{}, ErrSameBucket
	}
	if req.Amount != nil && req.Amount.Cents <= 0 {
		return BucketTransfer{}, ErrInvalidAmount
	}
	target, _ := s.Row(req.To)
	if !target.Overspent() {
		return BucketTransfer{}, ErrNotOverspent
	}
	source, _ := s.Row(req.From)
	available := AvailableFrom(source)
	if !available.IsPositive() {
		return BucketTransfer{}, ErrNothingAvailable
	}

	amount := MinMoney(target.Variance.Abs(), available)
	if req.Amount != nil {
		amount = MinMoney(amount, *req.Amount)
	}
	return BucketTransfer{
		UserID:    userID,
		WeekStart: s.WeekStart,
		From:      req.From,
		To:        req.To,
		Amount:    amount,
		CreatedAt: now,
	}, nil
}

// CoverSources lists buckets that could cover target, largest available first.
func CoverSources(s WeekSummary, target Bucket) []LedgerRow {
	var out []LedgerRow
	for _, r := range s.Rows {
		if r.Bucket == target || !AvailableFrom(r).IsPositive() {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Available.Cents > out[j].Available.Cents
	})
	return out
}

// PlanCollect computes the collection that moves a bucket's leftover into
// its savings tracker.
func PlanCollect(userID string, s WeekSummary, b Bucket, now time.Time) (BucketCollection, error) {
	if err := validateUser(userID); err != nil {
		return BucketCollection{}, err
	}
	if !b.Valid() {
		return BucketCollection{}, ErrUnknownBucket
	}
	row, _ := s.Row(b)
	if row.Collected {
		return BucketCollection{}, ErrAlreadyCollected
	}
	if row.Variance.Cents <= 0 {
		return BucketCollection{}, ErrNothingToCollect
	}
	return BucketCollection{
		UserID:    userID,
		WeekStart: s.WeekStart,
		Bucket:    string(b),
		Kind:      KindCollect,
		Amount:    row.Variance,
		CreatedAt: now,
	}, nil
}

// LatestActiveCollect returns the most recent active collection of b in the week.
func LatestActiveCollect(weekStart Date, b Bucket, collections []BucketCollection) (BucketCollection, bool) {
	var latest BucketCollection
	found := false
	for _, c := range collections {
		if c.Kind != KindCollect || !c.Active() || c.Bucket != string(b) || !c.WeekStart.Equal(weekStart) {
			continue
		}
		if !found || c.CreatedAt.After(latest.CreatedAt) || (c.CreatedAt.Equal(latest.CreatedAt) && c.ID > latest.ID) {
			latest = c
			found = true
		}
	}
	return latest, found
}

// Direction of a manual tracker adjustment.
type Direction string

const (
	DirectionAdd      Direction = "add"
	DirectionSubtract Direction = "subtract"
)

// Adjustment is a manual change to a tracker or goal total.
type Adjustment struct {
	WeekStart Date      `json:"week_start"`
	Label     string    `json:"label"`
	Magnitude Money     `json:"amount"`
	Direction Direction `json:"direction"`
}

func (a Adjustment) Validate() error {
	if err := a.WeekStart.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Label) == "" {
		return ErrEmptyCategory
	}
	if a.Magnitude.Cents <= 0 {
		return ErrInvalidAmount
	}
	switch a.Direction {
	case DirectionAdd, DirectionSubtract:
	default:
		return ErrInvalidDirection
	}
	return nil
}

// Collection converts the adjustment into a signed collection row.
// Adjustments never mark a bucket collected.
func (a Adjustment) Collection(userID string, now time.Time) (BucketCollection, error) {
	if err := validateUser(userID); err != nil {
		return BucketCollection{}, err
	}
	if err := a.Validate(); err != nil {
		return BucketCollection{}, err
	}
	amount := a.Magnitude
	if a.Direction == DirectionSubtract {
		amount = amount.Neg()
	}
	return BucketCollection{
		UserID:    userID,
		WeekStart: a.WeekStart,
		Bucket:    strings.TrimSpace(a.Label),
		Kind:      KindAdjustment,
		Amount:    amount,
		CreatedAt: now,
	}, nil
}
