package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"buckets/internal/core"
)

// sqliteTx implements ports.Tx on a single sql.Tx.
type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqliteTx) exec(op, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return nil, persistErr(op, err)
	}
	return res, nil
}

func (t *sqliteTx) insert(op, query string, args ...any) (int64, error) {
	res, err := t.exec(op, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr(op, err)
	}
	return id, nil
}

// mustAffect turns a zero-row update or delete into notFound.
func mustAffect(res sql.Result, op string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (t *sqliteTx) GetPreferences(userID string) (core.UserPreferences, error) {
	p := core.UserPreferences{UserID: userID}
	var notice sql.NullInt64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT week_start_dow, notice_dow FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&p.WeekStartDOW, &notice)
	if err != nil {
		return core.UserPreferences{}, persistErr("get preferences", err)
	}
	if notice.Valid {
		n := int(notice.Int64)
		p.NoticeDOW = &n
	}
	return p, nil
}

func (t *sqliteTx) UpsertPreferences(p core.UserPreferences) error {
	var notice sql.NullInt64
	if p.NoticeDOW != nil {
		notice = sql.NullInt64{Int64: int64(*p.NoticeDOW), Valid: true}
	}
	_, err := t.exec("upsert preferences", `
		INSERT INTO user_preferences (user_id, week_start_dow, notice_dow, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			week_start_dow = excluded.week_start_dow,
			notice_dow = excluded.notice_dow,
			updated_at = excluded.updated_at`,
		p.UserID, p.WeekStartDOW, notice, formatTime(time.Now()))
	return err
}

func (t *sqliteTx) GetIncome(userID string, week core.Date) (core.WeeklyIncome, error) {
	w := core.WeeklyIncome{UserID: userID, WeekStart: week}
	var updated string
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT amount_cents, updated_at FROM weekly_incomes WHERE user_id = ? AND week_start = ?`,
		userID, week.String(),
	).Scan(&w.Amount.Cents, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WeeklyIncome{}, core.ErrWeekNotFound
	}
	if err != nil {
		return core.WeeklyIncome{}, persistErr("get income", err)
	}
	w.UpdatedAt = parseTime(updated)
	return w, nil
}

func (t *sqliteTx) ListIncomes(userID string) ([]core.WeeklyIncome, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT week_start, amount_cents, updated_at FROM weekly_incomes WHERE user_id = ? ORDER BY week_start DESC`,
		userID)
	if err != nil {
		return nil, persistErr("list incomes", err)
	}
	defer rows.Close()

	var out []core.WeeklyIncome
	for rows.Next() {
		var week, updated string
		w := core.WeeklyIncome{UserID: userID}
		if err := rows.Scan(&week, &w.Amount.Cents, &updated); err != nil {
			return nil, persistErr("scan income", err)
		}
		w.WeekStart = parseDate(week)
		w.UpdatedAt = parseTime(updated)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list incomes", err)
	}
	return out, nil
}

func (t *sqliteTx) UpsertIncome(w core.WeeklyIncome) error {
	updated := w.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := t.exec("upsert income", `
		INSERT INTO weekly_incomes (user_id, week_start, amount_cents, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, week_start) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			updated_at = excluded.updated_at`,
		w.UserID, w.WeekStart.String(), w.Amount.Cents, formatTime(updated))
	return err
}

func (t *sqliteTx) DeleteIncome(userID string, week core.Date) error {
	res, err := t.exec("delete income",
		`DELETE FROM weekly_incomes WHERE user_id = ? AND week_start = ?`, userID, week.String())
	if err != nil {
		return err
	}
	return mustAffect(res, "delete income", core.ErrWeekNotFound)
}

func (t *sqliteTx) ListBudgets(userID string, week core.Date) ([]core.Budget, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, bucket, amount_cents FROM budgets WHERE user_id = ? AND week_start = ? ORDER BY id`,
		userID, week.String())
	if err != nil {
		return nil, persistErr("list budgets", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b := core.Budget{UserID: userID, WeekStart: week}
		if err := rows.Scan(&b.ID, &b.Bucket, &b.Amount.Cents); err != nil {
			return nil, persistErr("scan budget", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list budgets", err)
	}
	return out, nil
}

func (t *sqliteTx) InsertBudget(b core.Budget) (int64, error) {
	return t.insert("insert budget",
		`INSERT INTO budgets (user_id, week_start, bucket, amount_cents) VALUES (?, ?, ?, ?)`,
		b.UserID, b.WeekStart.String(), string(b.Bucket), b.Amount.Cents)
}

func (t *sqliteTx) DeleteBudgets(userID string, week core.Date) error {
	_, err := t.exec("delete budgets",
		`DELETE FROM budgets WHERE user_id = ? AND week_start = ?`, userID, week.String())
	return err
}

const transactionColumns = `id, date, amount_cents, category, description, created_at`

func scanTransaction(sc interface{ Scan(...any) error }, userID string) (core.Transaction, error) {
	tr := core.Transaction{UserID: userID}
	var date, created string
	if err := sc.Scan(&tr.ID, &date, &tr.Amount.Cents, &tr.Category, &tr.Description, &created); err != nil {
		return core.Transaction{}, err
	}
	tr.Date = parseDate(date)
	tr.CreatedAt = parseTime(created)
	return tr, nil
}

func (t *sqliteTx) ListTransactions(userID string, from, to core.Date) ([]core.Transaction, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, id`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, persistErr("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tr, err := scanTransaction(rows, userID)
		if err != nil {
			return nil, persistErr("scan transaction", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list transactions", err)
	}
	return out, nil
}

func (t *sqliteTx) GetTransaction(userID string, id int64) (core.Transaction, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	tr, err := scanTransaction(row, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, persistErr("get transaction", err)
	}
	return tr, nil
}

func (t *sqliteTx) InsertTransaction(tr core.Transaction) (int64, error) {
	created := tr.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return t.insert("insert transaction",
		`INSERT INTO transactions (user_id, date, amount_cents, category, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tr.UserID, tr.Date.String(), tr.Amount.Cents, tr.Category, tr.Description, formatTime(created))
}

func (t *sqliteTx) UpdateTransaction(tr core.Transaction) error {
	res, err := t.exec("update transaction",
		`UPDATE transactions SET date = ?, amount_cents = ?, category = ?, description = ?
		 WHERE user_id = ? AND id = ?`,
		tr.Date.String(), tr.Amount.Cents, tr.Category, tr.Description, tr.UserID, tr.ID)
	if err != nil {
		return err
	}
	return mustAffect(res, "update transaction", core.ErrTransactionNotFound)
}

func (t *sqliteTx) DeleteTransaction(userID string, id int64) error {
	res, err := t.exec("delete transaction",
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "delete transaction", core.ErrTransactionNotFound)
}

func (t *sqliteTx) ListTransfers(userID string, week core.Date) ([]core.BucketTransfer, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, from_bucket, to_bucket, amount_cents, created_at FROM bucket_transfers
		 WHERE user_id = ? AND week_start = ? ORDER BY id`,
		userID, week.String())
	if err != nil {
		return nil, persistErr("list transfers", err)
	}
	defer rows.Close()

	var out []core.BucketTransfer
	for rows.Next() {
		tr := core.BucketTransfer{UserID: userID, WeekStart: week}
		var created string
		if err := rows.Scan(&tr.ID, &tr.From, &tr.To, &tr.Amount.Cents, &created); err != nil {
			return nil, persistErr("scan transfer", err)
		}
		tr.CreatedAt = parseTime(created)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list transfers", err)
	}
	return out, nil
}

func (t *sqliteTx) InsertTransfer(tr core.BucketTransfer) (int64, error) {
	created := tr.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return t.insert("insert transfer",
		`INSERT INTO bucket_transfers (user_id, week_start, from_bucket, to_bucket, amount_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tr.UserID, tr.WeekStart.String(), string(tr.From), string(tr.To), tr.Amount.Cents, formatTime(created))
}

func (t *sqliteTx) DeleteTransfers(userID string, week core.Date) error {
	_, err := t.exec("delete transfers",
		`DELETE FROM bucket_transfers WHERE user_id = ? AND week_start = ?`, userID, week.String())
	return err
}

func (t *sqliteTx) ListMappings(userID string) ([]core.CategoryMapping, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT raw, bucket FROM category_mappings WHERE user_id = ? ORDER BY raw_key`, userID)
	if err != nil {
		return nil, persistErr("list mappings", err)
	}
	defer rows.Close()

	var out []core.CategoryMapping
	for rows.Next() {
		m := core.CategoryMapping{UserID: userID}
		if err := rows.Scan(&m.Raw, &m.Bucket); err != nil {
			return nil, persistErr("scan mapping", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list mappings", err)
	}
	return out, nil
}

func (t *sqliteTx) UpsertMapping(m core.CategoryMapping) error {
	_, err := t.exec("upsert mapping", `
		INSERT INTO category_mappings (user_id, raw_key, raw, bucket)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, raw_key) DO UPDATE SET
			raw = excluded.raw,
			bucket = excluded.bucket`,
		m.UserID, core.NormalizeLabel(m.Raw), m.Raw, string(m.Bucket))
	return err
}

func (t *sqliteTx) DeleteMapping(userID, raw string) error {
	res, err := t.exec("delete mapping",
		`DELETE FROM category_mappings WHERE user_id = ? AND raw_key = ?`, userID, core.NormalizeLabel(raw))
	if err != nil {
		return err
	}
	return mustAffect(res, "delete mapping", core.ErrMappingNotFound)
}

func (t *sqliteTx) ListCollections(userID string, week *core.Date) ([]core.BucketCollection, error) {
	query := `SELECT id, week_start, bucket, kind, amount_cents, created_at, undone_at
		FROM bucket_collections WHERE user_id = ?`
	args := []any{userID}
	if week != nil {
		query += ` AND week_start = ?`
		args = append(args, week.String())
	}
	query += ` ORDER BY id`

	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, persistErr("list collections", err)
	}
	defer rows.Close()

	var out []core.BucketCollection
	for rows.Next() {
		c := core.BucketCollection{UserID: userID}
		var weekStart, created string
		var undone sql.NullString
		if err := rows.Scan(&c.ID, &weekStart, &c.Bucket, &c.Kind, &c.Amount.Cents, &created, &undone); err != nil {
			return nil, persistErr("scan collection", err)
		}
		c.WeekStart = parseDate(weekStart)
		c.CreatedAt = parseTime(created)
		if undone.Valid {
			at := parseTime(undone.String)
			c.UndoneAt = &at
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list collections", err)
	}
	return out, nil
}

func (t *sqliteTx) InsertCollection(c core.BucketCollection) (int64, error) {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	kind := c.Kind
	if kind == "" {
		kind = core.KindCollect
	}
	return t.insert("insert collection",
		`INSERT INTO bucket_collections (user_id, week_start, bucket, kind, amount_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.WeekStart.String(), c.Bucket, string(kind), c.Amount.Cents, formatTime(created))
}

func (t *sqliteTx) MarkCollectionUndone(userID string, id int64, at time.Time) error {
	res, err := t.exec("mark collection undone",
		`UPDATE bucket_collections SET undone_at = ? WHERE user_id = ? AND id = ? AND undone_at IS NULL`,
		formatTime(at), userID, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "mark collection undone", fmt.Errorf("collection %d: %w", id, core.ErrNotFound))
}

const goalColumns = `id, key, title, target_cents, ring_color, sort_order, active, created_at`

func scanGoal(sc interface{ Scan(...any) error }, userID string) (core.Goal, error) {
	g := core.Goal{UserID: userID}
	var created string
	if err := sc.Scan(&g.ID, &g.Key, &g.Title, &g.Target.Cents, &g.RingColor, &g.SortOrder, &g.Active, &created); err != nil {
		return core.Goal{}, err
	}
	g.CreatedAt = parseTime(created)
	return g, nil
}

func (t *sqliteTx) ListGoals(userID string) ([]core.Goal, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, persistErr("list goals", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows, userID)
		if err != nil {
			return nil, persistErr("scan goal", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list goals", err)
	}
	return out, nil
}

func (t *sqliteTx) GetGoal(userID, key string) (core.Goal, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND key = ?`, userID, key)
	g, err := scanGoal(row, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.Goal{}, persistErr("get goal", err)
	}
	return g, nil
}

func (t *sqliteTx) InsertGoal(g core.Goal) (int64, error) {
	created := g.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return t.insert("insert goal",
		`INSERT INTO goals (user_id, key, title, target_cents, ring_color, sort_order, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Key, g.Title, g.Target.Cents, g.RingColor, g.SortOrder, g.Active, formatTime(created))
}

func (t *sqliteTx) UpdateGoal(g core.Goal) error {
	res, err := t.exec("update goal",
		`UPDATE goals SET title = ?, target_cents = ?, ring_color = ?, sort_order = ?, active = ?
		 WHERE user_id = ? AND key = ?`,
		g.Title, g.Target.Cents, g.RingColor, g.SortOrder, g.Active, g.UserID, g.Key)
	if err != nil {
		return err
	}
	return mustAffect(res, "update goal", core.ErrGoalNotFound)
}

func (t *sqliteTx) DeleteGoal(userID, key string) error {
	res, err := t.exec("delete goal", `DELETE FROM goals WHERE user_id = ? AND key = ?`, userID, key)
	if err != nil {
		return err
	}
	return mustAffect(res, "delete goal", core.ErrGoalNotFound)
}
