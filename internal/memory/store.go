// Package memory provides an in-process ports.Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"buckets/internal/core"
	"buckets/internal/ports"
)

type weekKey struct {
	user string
	week string
}

type mappingKey struct {
	user string
	raw  string
}

type state struct {
	prefs        map[string]core.UserPreferences
	incomes      map[weekKey]core.WeeklyIncome
	mappings     map[mappingKey]core.CategoryMapping
	budgets      []core.Budget
	transactions []core.Transaction
	transfers    []core.BucketTransfer
	collections  []core.BucketCollection
	goals        []core.Goal
	nextID       int64
}

func newState() *state {
	return &state{
		prefs:    make(map[string]core.UserPreferences),
		incomes:  make(map[weekKey]core.WeeklyIncome),
		mappings: make(map[mappingKey]core.CategoryMapping),
	}
}

// clone copies every table. Rows are values and pointer fields are never
// mutated in place, so a shallow copy of each row is enough.
func (s *state) clone() *state {
	c := &state{
		prefs:        make(map[string]core.UserPreferences, len(s.prefs)),
		incomes:      make(map[weekKey]core.WeeklyIncome, len(s.incomes)),
		mappings:     make(map[mappingKey]core.CategoryMapping, len(s.mappings)),
		budgets:      append([]core.Budget(nil), s.budgets...),
		transactions: append([]core.Transaction(nil), s.transactions...),
		transfers:    append([]core.BucketTransfer(nil), s.transfers...),
		collections:  append([]core.BucketCollection(nil), s.collections...),
		goals:        append([]core.Goal(nil), s.goals...),
		nextID:       s.nextID,
	}
	for k, v := range s.prefs {
		c.prefs[k] = v
	}
	for k, v := range s.incomes {
		c.incomes[k] = v
	}
	for k, v := range s.mappings {
		c.mappings[k] = v
	}
	return c
}

// Store keeps all data in memory. Update works on a copy that replaces the
// live state only when the callback succeeds.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) Update(ctx context.Context, fn func(ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	working := s.state.clone()
	if err := fn(&memTx{st: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{st: s.state, readOnly: true})
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

type memTx struct {
	st       *state
	readOnly bool
}

var errReadOnly = fmt.Errorf("write in read-only transaction: %w", core.ErrPersistence)

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *memTx) nextID() int64 {
	t.st.nextID++
	return t.st.nextID
}

func now(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (t *memTx) GetPreferences(userID string) (core.UserPreferences, error) {
	p, ok := t.st.prefs[userID]
	if !ok {
		return core.UserPreferences{}, fmt.Errorf("preferences: %w", core.ErrNotFound)
	}
	return p, nil
}

func (t *memTx) UpsertPreferences(p core.UserPreferences) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.prefs[p.UserID] = p
	return nil
}

func (t *memTx) GetIncome(userID string, week core.Date) (core.WeeklyIncome, error) {
	w, ok := t.st.incomes[weekKey{userID, week.String()}]
	if !ok {
		return core.WeeklyIncome{}, core.ErrWeekNotFound
	}
	return w, nil
}

func (t *memTx) ListIncomes(userID string) ([]core.WeeklyIncome, error) {
	var out []core.WeeklyIncome
	for k, w := range t.st.incomes {
		if k.user == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart.Time) })
	return out, nil
}

func (t *memTx) UpsertIncome(w core.WeeklyIncome) error {
	if err := t.writable(); err != nil {
		return err
	}
	w.UpdatedAt = now(w.UpdatedAt)
	t.st.incomes[weekKey{w.UserID, w.WeekStart.String()}] = w
	return nil
}

func (t *memTx) DeleteIncome(userID string, week core.Date) error {
	if err := t.writable(); err != nil {
		return err
	}
	k := weekKey{userID, week.String()}
	if _, ok := t.st.incomes[k]; !ok {
		return core.ErrWeekNotFound
	}
	delete(t.st.incomes, k)
	return nil
}

func (t *memTx) ListBudgets(userID string, week core.Date) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range t.st.budgets {
		if b.UserID == userID && b.WeekStart.Equal(week) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) InsertBudget(b core.Budget) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	for _, existing := range t.st.budgets {
		if existing.UserID == b.UserID && existing.WeekStart.Equal(b.WeekStart) && existing.Bucket == b.Bucket {
			return 0, fmt.Errorf("insert budget: duplicate %s for %s: %w", b.Bucket, b.WeekStart, core.ErrPersistence)
		}
	}
	b.ID = t.nextID()
	t.st.budgets = append(t.st.budgets, b)
	return b.ID, nil
}

func (t *memTx) DeleteBudgets(userID string, week core.Date) error {
	if err := t.writable(); err != nil {
		return err
	}
	kept := t.st.budgets[:0:0]
	for _, b := range t.st.budgets {
		if !(b.UserID == userID && b.WeekStart.Equal(week)) {
			kept = append(kept, b)
		}
	}
	t.st.budgets = kept
	return nil
}

func (t *memTx) ListTransactions(userID string, from, to core.Date) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tr := range t.st.transactions {
		if tr.UserID == userID && !tr.Date.Before(from.Time) && !tr.Date.After(to.Time) {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (t *memTx) GetTransaction(userID string, id int64) (core.Transaction, error) {
	for _, tr := range t.st.transactions {
		if tr.UserID == userID && tr.ID == id {
			return tr, nil
		}
	}
	return core.Transaction{}, core.ErrTransactionNotFound
}

func (t *memTx) InsertTransaction(tr core.Transaction) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	tr.ID = t.nextID()
	tr.CreatedAt = now(tr.CreatedAt)
	t.st.transactions = append(t.st.transactions, tr)
	return tr.ID, nil
}

func (t *memTx) UpdateTransaction(tr core.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i, existing := range t.st.transactions {
		if existing.UserID == tr.UserID && existing.ID == tr.ID {
			tr.CreatedAt = existing.CreatedAt
			t.st.transactions[i] = tr
			return nil
		}
	}
	return core.ErrTransactionNotFound
}

func (t *memTx) DeleteTransaction(userID string, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i, tr := range t.st.transactions {
		if tr.UserID == userID && tr.ID == id {
			t.st.transactions = append(t.st.transactions[:i:i], t.st.transactions[i+1:]...)
			return nil
		}
	}
	return core.ErrTransactionNotFound
}

func (t *memTx) ListTransfers(userID string, week core.Date) ([]core.BucketTransfer, error) {
	var out []core.BucketTransfer
	for _, tr := range t.st.transfers {
		if tr.UserID == userID && tr.WeekStart.Equal(week) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (t *memTx) InsertTransfer(tr core.BucketTransfer) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	tr.ID = t.nextID()
	tr.CreatedAt = now(tr.CreatedAt)
	t.st.transfers = append(t.st.transfers, tr)
	return tr.ID, nil
}

func (t *memTx) DeleteTransfers(userID string, week core.Date) error {
	if err := t.writable(); err != nil {
		return err
	}
	kept := t.st.transfers[:0:0]
	for _, tr := range t.st.transfers {
		if !(tr.UserID == userID && tr.WeekStart.Equal(week)) {
			kept = append(kept, tr)
		}
	}
	t.st.transfers = kept
	return nil
}

func (t *memTx) ListMappings(userID string) ([]core.CategoryMapping, error) {
	var out []core.CategoryMapping
	for k, m := range t.st.mappings {
		if k.user == userID {
			out = append(out, m)
		}
	}
	core.SortMappings(out)
	return out, nil
}

func (t *memTx) UpsertMapping(m core.CategoryMapping) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.mappings[mappingKey{m.UserID, core.NormalizeLabel(m.Raw)}] = m
	return nil
}

func (t *memTx) DeleteMapping(userID, raw string) error {
	if err := t.writable(); err != nil {
		return err
	}
	k := mappingKey{userID, core.NormalizeLabel(raw)}
	if _, ok := t.st.mappings[k]; !ok {
		return core.ErrMappingNotFound
	}
	delete(t.st.mappings, k)
	return nil
}

func (t *memTx) ListCollections(userID string, week *core.Date) ([]core.BucketCollection, error) {
	var out []core.BucketCollection
	for _, c := range t.st.collections {
		if c.UserID != userID {
			continue
		}
		if week != nil && !c.WeekStart.Equal(*week) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (t *memTx) InsertCollection(c core.BucketCollection) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	c.ID = t.nextID()
	c.CreatedAt = now(c.CreatedAt)
	if c.Kind == "" {
		c.Kind = core.KindCollect
	}
	t.st.collections = append(t.st.collections, c)
	return c.ID, nil
}

func (t *memTx) MarkCollectionUndone(userID string, id int64, at time.Time) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i, c := range t.st.collections {
		if c.UserID == userID && c.ID == id && c.Active() {
			undone := at
			t.st.collections[i].UndoneAt = &undone
			return nil
		}
	}
	return fmt.Errorf("collection %d: %w", id, core.ErrNotFound)
}

func (t *memTx) ListGoals(userID string) ([]core.Goal, error) {
	var out []core.Goal
	for _, g := range t.st.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (t *memTx) GetGoal(userID, key string) (core.Goal, error) {
	for _, g := range t.st.goals {
		if g.UserID == userID && g.Key == key {
			return g, nil
		}
	}
	return core.Goal{}, core.ErrGoalNotFound
}

func (t *memTx) InsertGoal(g core.Goal) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	if _, err := t.GetGoal(g.UserID, g.Key); err == nil {
		return 0, fmt.Errorf("insert goal: duplicate key %q: %w", g.Key, core.ErrPersistence)
	}
	g.ID = t.nextID()
	g.CreatedAt = now(g.CreatedAt)
	t.st.goals = append(t.st.goals, g)
	return g.ID, nil
}

func (t *memTx) UpdateGoal(g core.Goal) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i, existing := range t.st.goals {
		if existing.UserID == g.UserID && existing.Key == g.Key {
			g.ID = existing.ID
			g.CreatedAt = existing.CreatedAt
			t.st.goals[i] = g
			return nil
		}
	}
	return core.ErrGoalNotFound
}

func (t *memTx) DeleteGoal(userID, key string) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i, g := range t.st.goals {
		if g.UserID == userID && g.Key == key {
			t.st.goals = append(t.st.goals[:i:i], t.st.goals[i+1:]...)
			return nil
		}
	}
	return core.ErrGoalNotFound
}
