package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedUser(t *testing.T, repo *SQLiteRepository, name string, groupID *int64) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: name, GroupID: groupID})
	require.NoError(t, err)
	return u
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount:      dec("-12.50"),
		Category:    "Coffee",
		Date:        core.NewDate(2026, 3, 14),
		Description: "flat white",
		UserID:      user.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	fetched, err := repo.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Amount.Equal(dec("-12.50")))
	assert.Equal(t, "Coffee", fetched.Category)
	assert.Equal(t, "2026-03-14", fetched.Date.String())
	assert.Equal(t, "flat white", fetched.Description)
	assert.Equal(t, user.ID, fetched.UserID)
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTransaction(context.Background(), 404)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: dec("-5"), Category: "Coffee", Date: core.NewDate(2026, 1, 1), UserID: user.ID,
	})
	require.NoError(t, err)

	created.Description = "updated"
	require.NoError(t, repo.UpdateTransaction(ctx, created))

	fetched, err := repo.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", fetched.Description)

	missing := created
	missing.ID = 404
	require.ErrorIs(t, repo.UpdateTransaction(ctx, missing), core.ErrNotFound)
}

func TestDeleteTransactionIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: dec("-5"), Date: core.NewDate(2026, 1, 1), UserID: user.ID,
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTransaction(ctx, created.ID))
	_, err = repo.GetTransaction(ctx, created.ID)
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.DeleteTransaction(ctx, created.ID), "second delete must be a no-op")
}

func TestCreateTransactionBatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	batch := []core.Transaction{
		{Amount: dec("-1"), Category: "A", Date: core.NewDate(2026, 1, 1), UserID: user.ID},
		{Amount: dec("-2"), Category: "B", Date: core.NewDate(2026, 1, 2), UserID: user.ID},
		{Amount: dec("3"), Category: "C", Date: core.NewDate(2026, 1, 3), UserID: user.ID},
	}

	persisted, err := repo.CreateTransactionBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	for _, tx := range persisted {
		assert.NotZero(t, tx.ID)
	}

	all, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// A record referencing a missing user violates the FK inside the batch
// transaction; nothing may survive the rollback.
func TestCreateTransactionBatchRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	batch := []core.Transaction{
		{Amount: dec("-1"), Date: core.NewDate(2026, 1, 1), UserID: user.ID},
		{Amount: dec("-2"), Date: core.NewDate(2026, 1, 2), UserID: 999},
		{Amount: dec("-3"), Date: core.NewDate(2026, 1, 3), UserID: user.ID},
	}

	_, err := repo.CreateTransactionBatch(ctx, batch)
	require.Error(t, err)

	all, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "failed batch must persist nothing")
}

func TestListTransactionsByGroup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	group, err := repo.CreateGroup(ctx, core.Group{Name: "Trip"})
	require.NoError(t, err)
	other, err := repo.CreateGroup(ctx, core.Group{Name: "Family"})
	require.NoError(t, err)

	alice := seedUser(t, repo, "Alice", &group.ID)
	bob := seedUser(t, repo, "Bob", &other.ID)
	loner := seedUser(t, repo, "Loner", nil)

	for _, tx := range []core.Transaction{
		{Amount: dec("10"), Date: core.NewDate(2026, 5, 1), UserID: alice.ID},
		{Amount: dec("20"), Date: core.NewDate(2026, 5, 2), UserID: bob.ID},
		{Amount: dec("30"), Date: core.NewDate(2026, 5, 3), UserID: loner.ID},
	} {
		_, err := repo.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	txs, err := repo.ListTransactionsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1, "other groups and groupless users excluded")
	assert.Equal(t, alice.ID, txs[0].UserID)
}

func TestDeleteUserWithTransactionsRestricted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	_, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: dec("-1"), Date: core.NewDate(2026, 1, 1), UserID: user.ID,
	})
	require.NoError(t, err)

	require.Error(t, repo.DeleteUser(ctx, user.ID), "FK must restrict deleting an owner")

	count, err := repo.CountTransactionsByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGoalRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	group, err := repo.CreateGroup(ctx, core.Group{Name: "Trip"})
	require.NoError(t, err)

	goal, err := repo.CreateGoal(ctx, core.Goal{
		Name: "Japan Trip 2026", Target: dec("5000"), Current: dec("0"), GroupID: group.ID,
	})
	require.NoError(t, err)

	goal.Current = dec("1250.75")
	require.NoError(t, repo.UpdateGoal(ctx, goal))

	fetched, err := repo.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Current.Equal(dec("1250.75")))
	assert.True(t, fetched.Target.Equal(dec("5000")))

	goals, err := repo.ListGoals(ctx)
	require.NoError(t, err)
	assert.Len(t, goals, 1)

	_, err = repo.GetGoal(ctx, 404)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestSumCategoryMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	for _, tx := range []core.Transaction{
		{Amount: dec("-10.10"), Category: "Coffee", Date: core.NewDate(2026, 8, 1), UserID: user.ID},
		{Amount: dec("-4.90"), Category: "Coffee", Date: core.NewDate(2026, 8, 20), UserID: user.ID},
		{Amount: dec("-99"), Category: "Coffee", Date: core.NewDate(2026, 7, 31), UserID: user.ID},
		{Amount: dec("-50"), Category: "Rent", Date: core.NewDate(2026, 8, 1), UserID: user.ID},
	} {
		_, err := repo.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	total, err := repo.SumCategoryMonth(ctx, user.ID, "Coffee", 2026, 8)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("-15")), "total = %s", total)
}

func TestCategoryLimits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "Alice", nil)

	require.NoError(t, repo.SetCategoryLimit(ctx, user.ID, "Coffee", dec("50")))
	require.NoError(t, repo.SetCategoryLimit(ctx, user.ID, "Rent", dec("1200")))

	// Upsert replaces the previous value.
	require.NoError(t, repo.SetCategoryLimit(ctx, user.ID, "Coffee", dec("60")))

	limit, err := repo.GetCategoryLimit(ctx, user.ID, "Coffee")
	require.NoError(t, err)
	assert.True(t, limit.Equal(dec("60")))

	all, err := repo.ListCategoryLimits(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all["Rent"].Equal(dec("1200")))

	_, err = repo.GetCategoryLimit(ctx, user.ID, "Travel")
	require.ErrorIs(t, err, core.ErrNotFound)
}
