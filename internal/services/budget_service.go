// Package services orchestrates the budget engine, the store and event publishing.
package services

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"buckets/internal/cache"
	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/ports"
)

const (
	defaultSummaryCacheSize = 256
	defaultSummaryCacheTTL  = 5 * time.Minute
)

// BudgetService exposes every user-facing budget operation. Each mutation
// runs in a single store transaction and is followed by a best-effort
// WeekChanged event.
type BudgetService struct {
	store     ports.Store
	publisher ports.Publisher
	summaries *cache.LRUCache[core.WeekSummary]
	uncached  bool
	loads     singleflight.Group
	// generation is bumped on every invalidation so in-flight loads that
	// started earlier do not repopulate the cache with stale data.
	generation atomic.Uint64
	logger     *log.Logger
	events     *log.StructuredLogger
	now        func() time.Time
}

// Option configures a BudgetService.
type Option func(*BudgetService)

// WithPublisher sets the event publisher. Without one, events are dropped.
func WithPublisher(p ports.Publisher) Option {
	return func(s *BudgetService) { s.publisher = p }
}

// WithSummaryCache replaces the default week summary cache.
func WithSummaryCache(c *cache.LRUCache[core.WeekSummary]) Option {
	return func(s *BudgetService) { s.summaries = c }
}

// WithoutSummaryCache makes WeekSummary read the store every time. Processes
// that do not see every mutation, like the export worker, need it.
func WithoutSummaryCache() Option {
	return func(s *BudgetService) { s.uncached = true }
}

func WithLogger(l *log.Logger) Option {
	return func(s *BudgetService) { s.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *BudgetService) { s.now = now }
}

func NewBudgetService(store ports.Store, opts ...Option) *BudgetService {
	s := &BudgetService{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.summaries == nil {
		s.summaries = cache.NewLRUCache[core.WeekSummary](defaultSummaryCacheSize, defaultSummaryCacheTTL)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentBudget)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// SummaryCacheStats reports the week summary cache counters.
func (s *BudgetService) SummaryCacheStats() cache.Stats {
	return s.summaries.Stats()
}

// Ping checks that the store is reachable.
func (s *BudgetService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the store.
func (s *BudgetService) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// userKeyPrefix length-prefixes the user id so no other id can share it.
func userKeyPrefix(userID string) string {
	return strconv.Itoa(len(userID)) + ":" + userID + "|"
}

func summaryKey(userID string, week core.Date) string {
	return userKeyPrefix(userID) + week.String()
}

func (s *BudgetService) invalidateWeek(userID string, week core.Date) {
	s.generation.Add(1)
	key := summaryKey(userID, week)
	s.summaries.Delete(key)
	s.loads.Forget(key)
}

func (s *BudgetService) invalidateUser(userID string) {
	s.generation.Add(1)
	s.summaries.DeletePrefix(userKeyPrefix(userID))
}

// afterChange invalidates the cached summary, logs the change and publishes
// the event. Publishing failures are logged and never returned.
func (s *BudgetService) afterChange(ctx context.Context, op, reason, userID string, week core.Date, bucket string, amount core.Money) {
	s.invalidateWeek(userID, week)
	s.events.LogWeekChange(ctx, op, userID, week.String(), bucket, amount.Cents)

	if s.publisher == nil {
		return
	}
	ev := ports.WeekChanged{UserID: userID, WeekStart: week, Reason: reason, Timestamp: s.now().UTC()}
	if err := s.publisher.PublishWeekChanged(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish week change",
			log.FieldUserID, userID,
			log.FieldWeekStart, week.String(),
			log.FieldReason, reason,
			log.FieldError, err)
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return core.ErrAuthExpired
	}
	return nil
}

// preferences loads the user's preferences inside tx, falling back to defaults.
func preferences(tx ports.Tx, userID string) (core.UserPreferences, error) {
	p, err := tx.GetPreferences(userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultPreferences(userID), nil
	}
	return p, err
}

// alignWeek maps any date to the start of its week for the user.
func alignWeek(tx ports.Tx, userID string, d core.Date) (core.Date, error) {
	if err := d.Validate(); err != nil {
		return core.Date{}, err
	}
	p, err := preferences(tx, userID)
	if err != nil {
		return core.Date{}, err
	}
	return p.WeekStartFor(d), nil
}
