package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/storage"
)

// Exporter appends transactions to an external ledger. The ledger is
// append-only; deletions are recorded as tombstone rows.
type Exporter interface {
	Append(ctx context.Context, t core.Transaction) (string, error)
	AppendDeletion(ctx context.Context, id string) error
}

// SyncStore is the storage surface the worker needs to track export state.
type SyncStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker exports transactions from the local store to an external ledger.
// It is driven by AMQP events, with a periodic pending-row sweep as backup.
type SyncWorker struct {
	store     SyncStore
	exporter  Exporter
	batchSize int
}

func NewSyncWorker(store SyncStore, exporter Exporter, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single transaction event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", msg.ID,
		"action", msg.Action)

	switch msg.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		t, err := w.store.GetTransaction(ctx, msg.ID)
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		return w.exportTransaction(ctx, t)

	case amqp.ActionDeleted:
		// The row is gone from the store. Record a tombstone so the ledger
		// stays reconcilable.
		if err := w.exporter.AppendDeletion(ctx, msg.ID); err != nil {
			return fmt.Errorf("append deletion marker: %w", err)
		}
		slog.InfoContext(ctx, "Recorded deletion in export ledger", "id", msg.ID)
		return nil

	default:
		slog.WarnContext(ctx, "Unknown event action, dropping", "action", msg.Action)
		return nil
	}
}

// ProcessPending exports any transactions that have not been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if err := w.exportTransaction(ctx, p.Transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"id", p.Transaction.ID, "attempts", p.Attempts, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck sweeps pending rows once at worker startup, with a larger
// batch, to recover from missed events or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.exportTransaction(ctx, p.Transaction); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", p.Transaction.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) exportTransaction(ctx context.Context, t core.Transaction) error {
	ref, err := w.exporter.Append(ctx, t)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.store.MarkSynced(ctx, t.ID); err != nil {
		// The export itself worked, do not fail the event.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", t.ID,
		"ledger_ref", ref,
		"amount_cents", t.Amount.Cents)

	return nil
}
