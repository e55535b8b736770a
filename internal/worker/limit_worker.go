// Package worker reacts to transaction events by checking the owning
// user's category spending limits and logging over-limit alerts.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/limits"
)

// TransactionReader is the slice of the ledger repository the worker
// needs to re-read the transaction behind an event.
type TransactionReader interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

type LimitWorker struct {
	reader TransactionReader
	limits *limits.Service
}

func NewLimitWorker(reader TransactionReader, limits *limits.Service) *LimitWorker {
	return &LimitWorker{reader: reader, limits: limits}
}

// HandleEvent processes a single transaction event. Delete events carry
// no spending, and an event for a since-deleted transaction is stale;
// both are skipped without error so the delivery is acked.
func (w *LimitWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	if event.Action == ledger.ActionDeleted {
		return nil
	}

	tx, err := w.reader.GetTransaction(ctx, event.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Skipping stale event", "id", event.ID, "action", event.Action)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction for event: %w", err)
	}

	// Only expenses count against limits.
	if !tx.Amount.IsNegative() {
		return nil
	}

	report, err := w.limits.Check(ctx, tx.UserID, tx.Category, tx.Date.Year(), int(tx.Date.Month()))
	if err != nil {
		return fmt.Errorf("check limit: %w", err)
	}

	if report.Over {
		slog.WarnContext(ctx, "Category spending limit exceeded",
			"user_id", report.UserID,
			"category", report.Category,
			"year", report.Year,
			"month", report.Month,
			"limit", report.Limit.String(),
			"spent", report.Spent.String())
	}
	return nil
}
