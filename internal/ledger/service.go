// Package ledger owns the business rules for the transaction ledger:
// create, patch-merge edits, idempotent deletes and atomic bulk import.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/core"
)

// Store is the persistence contract the service needs from the ledger
// repository.
type Store interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	CreateTransactionBatch(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// EventPublisher publishes transaction lifecycle events for downstream
// consumers. Publishing is best-effort: failures never fail the write.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, action string, id int64) error
}

// Event actions.
const (
	ActionCreated  = "created"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
)

type Service struct {
	store  Store
	events EventPublisher
}

// NewService creates a ledger service. events may be nil when no broker
// is configured.
func NewService(store Store, events EventPublisher) *Service {
	return &Service{store: store, events: events}
}

// Add validates and persists a new transaction. The incoming id is
// ignored; the repository assigns one on persist.
func (s *Service) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkOwner(ctx, t.UserID, -1); err != nil {
		return core.Transaction{}, err
	}

	persisted, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, ActionCreated, persisted.ID)
	return persisted, nil
}

// Edit loads the transaction, applies the patch (only non-nil fields
// overwrite, everything else is preserved), validates the merged record
// and persists it.
func (s *Service) Edit(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	merged := patch.Apply(existing)
	if err := merged.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if patch.UserID != nil {
		if err := s.checkOwner(ctx, merged.UserID, -1); err != nil {
			return core.Transaction{}, err
		}
	}

	if err := s.store.UpdateTransaction(ctx, merged); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction edited", "id", id)
	return merged, nil
}

// Delete removes a transaction by id. The operation is idempotent:
// deleting an id that does not exist succeeds without error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, ActionDeleted, id)
	return nil
}

// ImportBatch validates every record against the same rules as Add and
// persists them all-or-nothing. Payload ids are ignored. The first
// invalid record aborts the whole batch; its position is reported on
// the returned ValidationError.
func (s *Service) ImportBatch(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	seenOwners := make(map[int64]bool)
	for i := range txs {
		txs[i].ID = 0
		if err := txs[i].Validate(); err != nil {
			var ve *core.ValidationError
			if errors.As(err, &ve) {
				ve.Index = i
			}
			return nil, err
		}
		if !seenOwners[txs[i].UserID] {
			if err := s.checkOwner(ctx, txs[i].UserID, i); err != nil {
				return nil, err
			}
			seenOwners[txs[i].UserID] = true
		}
	}

	persisted, err := s.store.CreateTransactionBatch(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("import batch: %w", err)
	}

	for _, t := range persisted {
		s.publish(ctx, ActionImported, t.ID)
	}

	slog.InfoContext(ctx, "Batch imported", "count", len(persisted))
	return persisted, nil
}

// Get fetches a single transaction by id.
func (s *Service) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List returns the full ledger.
func (s *Service) List(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// checkOwner verifies the owning user exists, mapping a missing user to
// a ValidationError so callers see a rejected request rather than a
// repository failure.
func (s *Service) checkOwner(ctx context.Context, userID int64, index int) error {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return &core.ValidationError{Field: "userId", Reason: fmt.Sprintf("user %d does not exist", userID), Index: index}
		}
		return fmt.Errorf("check owning user: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, action string, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, action, id); err != nil {
		// The write already succeeded; a lost event only delays
		// downstream limit checks.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"action", action, "id", id, "error", err)
	}
}
