// Package members manages users, groups and goals.
package members

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

type Store interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountTransactionsByUser(ctx context.Context, userID int64) (int64, error)
	CreateGroup(ctx context.Context, g core.Group) (core.Group, error)
	GetGroup(ctx context.Context, id int64) (core.Group, error)
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) error
	ListGoals(ctx context.Context) ([]core.Goal, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = 0
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if u.GroupID != nil {
		if _, err := s.store.GetGroup(ctx, *u.GroupID); err != nil {
			return core.User{}, err
		}
	}
	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// JoinGroup moves the user into the group. A user belongs to at most
// one group, so any previous membership is replaced.
func (s *Service) JoinGroup(ctx context.Context, userID, groupID int64) (core.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return core.User{}, err
	}

	user.GroupID = &groupID
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return core.User{}, fmt.Errorf("join group: %w", err)
	}

	slog.InfoContext(ctx, "User joined group", "user_id", userID, "group_id", groupID)
	return user, nil
}

// DeleteUser refuses to delete a user that still owns transactions and
// returns ErrConflict. Reassign or delete the transactions first.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}

	count, err := s.store.CountTransactionsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count user transactions: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user %d owns %d transactions: %w", userID, count, core.ErrConflict)
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *Service) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	g.ID = 0
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	created, err := s.store.CreateGroup(ctx, g)
	if err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	return created, nil
}

// CreateGoal creates a savings goal for a group. The target must be
// positive; the current amount starts wherever the caller says, most
// commonly zero.
func (s *Service) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.ID = 0
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if _, err := s.store.GetGroup(ctx, g.GroupID); err != nil {
		return core.Goal{}, err
	}
	created, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return created, nil
}

// Contribute adds amount to the goal's current total.
func (s *Service) Contribute(ctx context.Context, goalID int64, amount decimal.Decimal) (core.Goal, error) {
	if !amount.IsPositive() {
		return core.Goal{}, core.NewValidationError("amount", "contribution must be positive")
	}

	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return core.Goal{}, err
	}

	goal.Current = goal.Current.Add(amount)
	if err := s.store.UpdateGoal(ctx, goal); err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal contribution recorded",
		"goal_id", goalID, "amount", amount.String(), "current", goal.Current.String())
	return goal, nil
}

func (s *Service) ListGoals(ctx context.Context) ([]core.Goal, error) {
	return s.store.ListGoals(ctx)
}
