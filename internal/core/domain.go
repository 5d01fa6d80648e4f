package core

import (
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// MaxDescriptionLength bounds free-text fields on transactions and goals.
const MaxDescriptionLength = 200

type (
	// Date is a calendar day in UTC. Time of day is always midnight.
	Date struct {
		time.Time
	}

	// WeeklyIncome is the income recorded for one user-week. At most one per (user, week).
	WeeklyIncome struct {
		UserID    string    `json:"-"`
		WeekStart Date      `json:"week_start"`
		Amount    Money     `json:"amount"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// Budget is the amount allocated to one bucket for a week.
	Budget struct {
		ID        int64  `json:"id"`
		UserID    string `json:"-"`
		WeekStart Date   `json:"week_start"`
		Bucket    Bucket `json:"bucket"`
		Amount    Money  `json:"amount"`
	}

	// Transaction is a dated spend (negative) or income (positive) entry.
	// Category holds the stored category string, optionally lock-prefixed.
	Transaction struct {
		ID          int64     `json:"id"`
		UserID      string    `json:"-"`
		Date        Date      `json:"date"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// BucketTransfer moves budget from one bucket to another within a week.
	BucketTransfer struct {
		ID        int64     `json:"id"`
		UserID    string    `json:"-"`
		WeekStart Date      `json:"week_start"`
		From      Bucket    `json:"from"`
		To        Bucket    `json:"to"`
		Amount    Money     `json:"amount"`
		CreatedAt time.Time `json:"created_at"`
	}

	// CategoryMapping binds a raw category label to a bucket.
	CategoryMapping struct {
		UserID string `json:"-"`
		Raw    string `json:"raw"`
		Bucket Bucket `json:"bucket"`
	}

	// CollectionKind separates end-of-week collections from manual tracker adjustments.
	CollectionKind string

	// BucketCollection records leftover moved into a savings tracker, or a
	// manual signed adjustment. Bucket holds a bucket key for collections and
	// a tracker or goal label for adjustments.
	BucketCollection struct {
		ID        int64          `json:"id"`
		UserID    string         `json:"-"`
		WeekStart Date           `json:"week_start"`
		Bucket    string         `json:"bucket"`
		Kind      CollectionKind `json:"kind"`
		Amount    Money          `json:"amount"`
		CreatedAt time.Time      `json:"created_at"`
		UndoneAt  *time.Time     `json:"undone_at,omitempty"`
	}

	// Goal is a savings target shown as a progress ring.
	Goal struct {
		ID        int64     `json:"id"`
		UserID    string    `json:"-"`
		Key       string    `json:"key"`
		Title     string    `json:"title"`
		Target    Money     `json:"target"`
		RingColor string    `json:"ring_color"`
		SortOrder int       `json:"sort_order"`
		Active    bool      `json:"active"`
		CreatedAt time.Time `json:"created_at"`
	}
)

const (
	KindCollect    CollectionKind = "collect"
	KindAdjustment CollectionKind = "adjustment"
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUser
	}
	return nil
}

func (w WeeklyIncome) Validate() error {
	if err := validateUser(w.UserID); err != nil {
		return err
	}
	if err := w.WeekStart.Validate(); err != nil {
		return err
	}
	if w.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validateUser(t.UserID); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(SplitStoredCategory(t.Category).Raw) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > MaxDescriptionLength {
		return ErrDescriptionLength
	}
	return nil
}

func (b BucketTransfer) Validate() error {
	if err := validateUser(b.UserID); err != nil {
		return err
	}
	if !b.From.Valid() || !b.To.Valid() {
		return ErrUnknownBucket
	}
	if b.From == b.To {
		return ErrSameBucket
	}
	if b.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m CategoryMapping) Validate() error {
	if err := validateUser(m.UserID); err != nil {
		return err
	}
	if NormalizeLabel(m.Raw) == "" {
		return ErrEmptyCategory
	}
	if !m.Bucket.Valid() {
		return ErrUnknownBucket
	}
	return nil
}

// Active reports whether the collection has not been undone.
func (c BucketCollection) Active() bool {
	return c.UndoneAt == nil
}

func (g Goal) Validate() error {
	if err := validateUser(g.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(g.Key) == "" {
		return ErrEmptyGoalKey
	}
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyGoalTitle
	}
	if len(g.Title) > MaxDescriptionLength {
		return ErrDescriptionLength
	}
	if g.Target.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
