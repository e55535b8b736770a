// Package insights computes derived views over the ledger: per-group
// leaderboards and goal progress. All reads go against current state;
// aggregate values are never stored or cached.
package insights

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Reader is the read-only slice of the ledger repository the service
// needs.
type Reader interface {
	GetGroup(ctx context.Context, id int64) (core.Group, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	ListTransactionsByGroup(ctx context.Context, groupID int64) ([]core.Transaction, error)
	ListGroupMembers(ctx context.Context, groupID int64) ([]core.User, error)
}

type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// GroupLeaderboard sums transaction amounts per member of the group and
// returns a display-name-keyed map. Totals accumulate by user id and
// names resolve at the end; two members sharing a display name merge
// under the shared key. The map is unordered; ranking is the caller's
// job.
func (s *Service) GroupLeaderboard(ctx context.Context, groupID int64) (map[string]decimal.Decimal, error) {
	if _, err := s.reader.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	txs, err := s.reader.ListTransactionsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group transactions: %w", err)
	}

	totals := make(map[int64]decimal.Decimal)
	for _, t := range txs {
		totals[t.UserID] = totals[t.UserID].Add(t.Amount)
	}

	members, err := s.reader.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group members: %w", err)
	}

	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	board := make(map[string]decimal.Decimal, len(totals))
	for userID, total := range totals {
		name, ok := names[userID]
		if !ok {
			// Owner left the group after the scan; skip rather than
			// attribute the total to nobody.
			continue
		}
		board[name] = board[name].Add(total)
	}
	return board, nil
}

// GoalProgress returns the goal's completion percentage. A zero target
// yields 0.
func (s *Service) GoalProgress(ctx context.Context, goalID int64) (decimal.Decimal, error) {
	goal, err := s.reader.GetGoal(ctx, goalID)
	if err != nil {
		return decimal.Zero, err
	}
	return goal.ProgressPercentage(), nil
}
