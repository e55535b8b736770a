package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the ledger repository. Ids are assigned by SQLite
// on first insert and never change afterwards.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = "id, amount, category, tx_date, description, user_id"

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t       core.Transaction
		amount  string
		txDate  string
	)
	if err := row.Scan(&t.ID, &amount, &t.Category, &txDate, &t.Description, &t.UserID); err != nil {
		return core.Transaction{}, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	t.Amount = parsed

	date, err := core.ParseDate(txDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", txDate, err)
	}
	t.Date = date

	return t, nil
}

// CreateTransaction persists a new transaction and returns it with its
// assigned id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO transactions (amount, category, tx_date, description, user_id) VALUES (?, ?, ?, ?, ?)",
		t.Amount.String(), t.Category, t.Date.String(), t.Description, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"amount", t.Amount.String(),
		"category", t.Category,
		"user_id", t.UserID)

	return t, nil
}

// CreateTransactionBatch persists the whole batch inside one database
// transaction: either every record is committed or none of it is.
func (r *SQLiteRepository) CreateTransactionBatch(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx,
		"INSERT INTO transactions (amount, category, tx_date, description, user_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	persisted := make([]core.Transaction, 0, len(txs))
	for i, t := range txs {
		res, err := stmt.ExecContext(ctx,
			t.Amount.String(), t.Category, t.Date.String(), t.Description, t.UserID)
		if err != nil {
			return nil, fmt.Errorf("insert batch record %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("batch record %d id: %w", i, err)
		}
		t.ID = id
		persisted = append(persisted, t)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch committed", "count", len(persisted))
	return persisted, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction overwrites the stored record. The id must already
// exist; updating an absent id returns ErrNotFound.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET amount = ?, category = ?, tx_date = ?, description = ?, user_id = ? WHERE id = ?",
		t.Amount.String(), t.Category, t.Date.String(), t.Description, t.UserID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a transaction. Deleting an absent id is a
// no-op.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListTransactionsByGroup returns transactions whose owning user belongs
// to the given group. Ownerless rows cannot exist (FK) and users without
// a group fall out of the join.
func (r *SQLiteRepository) ListTransactionsByGroup(ctx context.Context, groupID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.amount, t.category, t.tx_date, t.description, t.user_id
		 FROM transactions t
		 JOIN users u ON u.id = t.user_id
		 WHERE u.group_id = ?
		 ORDER BY t.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) CountTransactionsByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user transactions: %w", err)
	}
	return count, nil
}

// SumCategoryMonth totals a user's transactions for one category in one
// calendar month. Amounts are summed in Go so decimal text columns stay
// exact.
func (r *SQLiteRepository) SumCategoryMonth(ctx context.Context, userID int64, category string, year, month int) (decimal.Decimal, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, month)
	rows, err := r.db.QueryContext(ctx,
		"SELECT amount FROM transactions WHERE user_id = ? AND category = ? AND substr(tx_date, 1, 7) = ?",
		userID, category, prefix)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum category month: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		total = total.Add(parsed)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("iterate amounts: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (external_id, name, email, group_id) VALUES (?, ?, ?, ?)",
		u.ExternalID, u.Name, u.Email, u.GroupID)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, external_id, name, email, group_id FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.GroupID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET external_id = ?, name = ?, email = ?, group_id = ? WHERE id = ?",
		u.ExternalID, u.Name, u.Email, u.GroupID, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", u.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListGroupMembers(ctx context.Context, groupID int64) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, external_id, name, email, group_id FROM users WHERE group_id = ? ORDER BY id", groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.GroupID); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO groups (name) VALUES (?)", g.Name)
	if err != nil {
		return core.Group{}, fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Group{}, fmt.Errorf("last insert id: %w", err)
	}
	g.ID = id
	return g, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id int64) (core.Group, error) {
	var g core.Group
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM groups WHERE id = ?", id).Scan(&g.ID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, fmt.Errorf("group %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g       core.Goal
		target  string
		current string
	)
	if err := row.Scan(&g.ID, &g.Name, &target, &current, &g.GroupID); err != nil {
		return core.Goal{}, err
	}
	parsedTarget, err := decimal.NewFromString(target)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse stored target %q: %w", target, err)
	}
	parsedCurrent, err := decimal.NewFromString(current)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse stored current %q: %w", current, err)
	}
	g.Target = parsedTarget
	g.Current = parsedCurrent
	return g, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO goals (name, target_amount, current_amount, group_id) VALUES (?, ?, ?, ?)",
		g.Name, g.Target.String(), g.Current.String(), g.GroupID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("last insert id: %w", err)
	}
	g.ID = id
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, target_amount, current_amount, group_id FROM goals WHERE id = ?", id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, group_id = ? WHERE id = ?",
		g.Name, g.Target.String(), g.Current.String(), g.GroupID, g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goal rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("goal %d: %w", g.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, target_amount, current_amount, group_id FROM goals ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// SetCategoryLimit inserts or replaces a user's monthly spending limit
// for one category.
func (r *SQLiteRepository) SetCategoryLimit(ctx context.Context, userID int64, category string, limit decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO category_limits (user_id, category, monthly_limit) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, category) DO UPDATE SET monthly_limit = excluded.monthly_limit`,
		userID, category, limit.String())
	if err != nil {
		return fmt.Errorf("set category limit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategoryLimit(ctx context.Context, userID int64, category string) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT monthly_limit FROM category_limits WHERE user_id = ? AND category = ?",
		userID, category).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("limit for user %d category %q: %w", userID, category, core.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get category limit: %w", err)
	}
	limit, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored limit %q: %w", raw, err)
	}
	return limit, nil
}

func (r *SQLiteRepository) ListCategoryLimits(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, monthly_limit FROM category_limits WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("list category limits: %w", err)
	}
	defer rows.Close()

	limits := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, raw string
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, fmt.Errorf("scan limit: %w", err)
		}
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse stored limit %q: %w", raw, err)
		}
		limits[category] = limit
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate limits: %w", err)
	}
	return limits, nil
}
