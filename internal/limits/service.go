// Package limits tracks per-user monthly spending limits by category.
// Limits compare against the absolute value of a month's expense total
// (negative amounts); contributions never count against a limit.
package limits

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

type Store interface {
	SetCategoryLimit(ctx context.Context, userID int64, category string, limit decimal.Decimal) error
	GetCategoryLimit(ctx context.Context, userID int64, category string) (decimal.Decimal, error)
	ListCategoryLimits(ctx context.Context, userID int64) (map[string]decimal.Decimal, error)
	SumCategoryMonth(ctx context.Context, userID int64, category string, year, month int) (decimal.Decimal, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// Report is the outcome of a limit check for one user, category and
// month.
type Report struct {
	UserID   int64           `json:"userId"`
	Category string          `json:"category"`
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
	Over     bool            `json:"over"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Set stores a monthly spending limit. The limit must be positive and
// the user must exist.
func (s *Service) Set(ctx context.Context, userID int64, category string, limit decimal.Decimal) error {
	if category == "" {
		return core.NewValidationError("category", "empty category")
	}
	if !limit.IsPositive() {
		return core.NewValidationError("limit", "limit must be positive")
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.store.SetCategoryLimit(ctx, userID, category, limit); err != nil {
		return fmt.Errorf("set limit: %w", err)
	}
	return nil
}

// ListForUser returns all of a user's category limits.
func (s *Service) ListForUser(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListCategoryLimits(ctx, userID)
}

// Check compares the month's spending in one category against the
// user's limit. A user with no limit for the category gets a report
// with a zero limit and Over always false.
func (s *Service) Check(ctx context.Context, userID int64, category string, year, month int) (Report, error) {
	report := Report{UserID: userID, Category: category, Year: year, Month: month}

	limit, err := s.store.GetCategoryLimit(ctx, userID, category)
	if errors.Is(err, core.ErrNotFound) {
		return report, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("load limit: %w", err)
	}
	report.Limit = limit

	total, err := s.store.SumCategoryMonth(ctx, userID, category, year, month)
	if err != nil {
		return Report{}, fmt.Errorf("sum month spending: %w", err)
	}

	// Only net spending counts. A net-positive month means
	// contributions outweigh expenses.
	if total.IsNegative() {
		report.Spent = total.Neg()
	}
	report.Over = report.Spent.GreaterThan(limit)
	return report, nil
}
