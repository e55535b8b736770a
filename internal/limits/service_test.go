package limits

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

type fakeStore struct {
	limits map[string]decimal.Decimal
	sums   map[string]decimal.Decimal
	users  map[int64]core.User
}

func key(userID int64, category string) string {
	return fmt.Sprintf("%d/%s", userID, category)
}

func monthKey(userID int64, category string, year, month int) string {
	return fmt.Sprintf("%d/%s/%04d-%02d", userID, category, year, month)
}

func newFakeStore(users ...core.User) *fakeStore {
	s := &fakeStore{
		limits: make(map[string]decimal.Decimal),
		sums:   make(map[string]decimal.Decimal),
		users:  make(map[int64]core.User),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) SetCategoryLimit(ctx context.Context, userID int64, category string, limit decimal.Decimal) error {
	s.limits[key(userID, category)] = limit
	return nil
}

func (s *fakeStore) GetCategoryLimit(ctx context.Context, userID int64, category string) (decimal.Decimal, error) {
	limit, ok := s.limits[key(userID, category)]
	if !ok {
		return decimal.Zero, fmt.Errorf("limit: %w", core.ErrNotFound)
	}
	return limit, nil
}

func (s *fakeStore) ListCategoryLimits(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for k, v := range s.limits {
		var id int64
		var category string
		fmt.Sscanf(k, "%d/%s", &id, &category)
		if id == userID {
			out[category] = v
		}
	}
	return out, nil
}

func (s *fakeStore) SumCategoryMonth(ctx context.Context, userID int64, category string, year, month int) (decimal.Decimal, error) {
	return s.sums[monthKey(userID, category, year, month)], nil
}

func (s *fakeStore) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSetValidation(t *testing.T) {
	store := newFakeStore(core.User{ID: 1, Name: "Alice"})
	svc := NewService(store)

	require.NoError(t, svc.Set(context.Background(), 1, "Coffee", dec("50")))

	err := svc.Set(context.Background(), 1, "", dec("50"))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	err = svc.Set(context.Background(), 1, "Coffee", dec("0"))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	err = svc.Set(context.Background(), 404, "Coffee", dec("50"))
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestCheckOverLimit(t *testing.T) {
	store := newFakeStore(core.User{ID: 1, Name: "Alice"})
	store.limits[key(1, "Coffee")] = dec("50")
	store.sums[monthKey(1, "Coffee", 2026, 8)] = dec("-61.20")

	svc := NewService(store)
	report, err := svc.Check(context.Background(), 1, "Coffee", 2026, 8)
	require.NoError(t, err)

	assert.True(t, report.Over)
	assert.True(t, report.Spent.Equal(dec("61.20")))
	assert.True(t, report.Limit.Equal(dec("50")))
}

func TestCheckUnderLimit(t *testing.T) {
	store := newFakeStore(core.User{ID: 1, Name: "Alice"})
	store.limits[key(1, "Coffee")] = dec("50")
	store.sums[monthKey(1, "Coffee", 2026, 8)] = dec("-20")

	svc := NewService(store)
	report, err := svc.Check(context.Background(), 1, "Coffee", 2026, 8)
	require.NoError(t, err)
	assert.False(t, report.Over)
	assert.True(t, report.Spent.Equal(dec("20")))
}

// Contributions outweighing expenses leave nothing to count against the
// limit.
func TestCheckNetPositiveMonth(t *testing.T) {
	store := newFakeStore(core.User{ID: 1, Name: "Alice"})
	store.limits[key(1, "Coffee")] = dec("50")
	store.sums[monthKey(1, "Coffee", 2026, 8)] = dec("30")

	svc := NewService(store)
	report, err := svc.Check(context.Background(), 1, "Coffee", 2026, 8)
	require.NoError(t, err)
	assert.False(t, report.Over)
	assert.True(t, report.Spent.IsZero())
}

func TestCheckWithoutLimit(t *testing.T) {
	store := newFakeStore(core.User{ID: 1, Name: "Alice"})
	store.sums[monthKey(1, "Coffee", 2026, 8)] = dec("-500")

	svc := NewService(store)
	report, err := svc.Check(context.Background(), 1, "Coffee", 2026, 8)
	require.NoError(t, err)
	assert.False(t, report.Over, "no limit set means never over")
	assert.True(t, report.Limit.IsZero())
}
