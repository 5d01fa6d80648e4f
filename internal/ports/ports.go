// Package ports declares the outbound interfaces the budget service depends on.
package ports

import (
	"context"
	"time"

	"buckets/internal/core"
)

// Store is the persistence boundary. Update runs fn in a read-write
// transaction that commits only if fn returns nil; View runs fn against a
// consistent read snapshot.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of table operations available inside a transaction.
// Lookups of a single row return an error wrapping core.ErrNotFound when
// the row does not exist.
type Tx interface {
	GetPreferences(userID string) (core.UserPreferences, error)
	UpsertPreferences(p core.UserPreferences) error

	GetIncome(userID string, week core.Date) (core.WeeklyIncome, error)
	// ListIncomes returns the user's weeks, most recent first.
	ListIncomes(userID string) ([]core.WeeklyIncome, error)
	UpsertIncome(w core.WeeklyIncome) error
	DeleteIncome(userID string, week core.Date) error

	ListBudgets(userID string, week core.Date) ([]core.Budget, error)
	InsertBudget(b core.Budget) (int64, error)
	DeleteBudgets(userID string, week core.Date) error

	// ListTransactions returns transactions dated within [from, to], inclusive.
	ListTransactions(userID string, from, to core.Date) ([]core.Transaction, error)
	GetTransaction(userID string, id int64) (core.Transaction, error)
	InsertTransaction(t core.Transaction) (int64, error)
	UpdateTransaction(t core.Transaction) error
	DeleteTransaction(userID string, id int64) error

	ListTransfers(userID string, week core.Date) ([]core.BucketTransfer, error)
	InsertTransfer(t core.BucketTransfer) (int64, error)
	DeleteTransfers(userID string, week core.Date) error

	ListMappings(userID string) ([]core.CategoryMapping, error)
	UpsertMapping(m core.CategoryMapping) error
	DeleteMapping(userID, raw string) error

	// ListCollections returns collection rows, undone ones included.
	// A nil week returns every week.
	ListCollections(userID string, week *core.Date) ([]core.BucketCollection, error)
	InsertCollection(c core.BucketCollection) (int64, error)
	MarkCollectionUndone(userID string, id int64, at time.Time) error

	ListGoals(userID string) ([]core.Goal, error)
	GetGoal(userID, key string) (core.Goal, error)
	InsertGoal(g core.Goal) (int64, error)
	UpdateGoal(g core.Goal) error
	DeleteGoal(userID, key string) error
}

// Change reasons carried by WeekChanged.
const (
	ReasonIncomeSet          = "income_set"
	ReasonWeekDeleted        = "week_deleted"
	ReasonTransactionAdded   = "transaction_added"
	ReasonTransactionEdited  = "transaction_edited"
	ReasonTransactionDeleted = "transaction_deleted"
	ReasonTransfer           = "transfer"
	ReasonCollect            = "collect"
	ReasonUndoCollect        = "undo_collect"
	ReasonAdjustment         = "adjustment"
	ReasonMappingChanged     = "mapping_changed"
	ReasonResync             = "resync"
)

// WeekChanged is emitted after a mutation that affects a week's summary.
type WeekChanged struct {
	UserID    string
	WeekStart core.Date
	Reason    string
	Timestamp time.Time
}

// Publisher delivers week change events to downstream consumers.
type Publisher interface {
	PublishWeekChanged(ctx context.Context, ev WeekChanged) error
}
