package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tracker/internal/core"
	"tracker/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendTransaction implements store.TransactionAppender.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          t.ID,
		Type:        string(t.Type),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date.String(),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"type", row.Type,
		"amount_cents", row.AmountCents,
		"category", row.Category)

	return rowToTransaction(row)
}

// ListTransactions implements store.TransactionLister. Rows come back newest
// first, by date then creation time.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	items := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

// GetTransaction implements store.TransactionGetter.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return rowToTransaction(row)
}

// DeleteTransaction implements store.TransactionDeleter.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	affected, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// UpdateTransaction implements store.TransactionUpdater. The patch is applied
// to the current row and the result validated before writing.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, p store.Patch) (core.Transaction, error) {
	current, err := r.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	if p.Type != nil {
		current.Type = *p.Type
	}
	if p.Amount != nil {
		current.Amount = *p.Amount
	}
	if p.Description != nil {
		current.Description = *p.Description
	}
	if p.Category != nil {
		current.Category = *p.Category
	}
	if p.Date != nil {
		current.Date = *p.Date
	}
	if err := current.Validate(); err != nil {
		return core.Transaction{}, err
	}

	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          id,
		Type:        string(current.Type),
		AmountCents: current.Amount.Cents,
		Description: current.Description,
		Category:    current.Category,
		Date:        current.Date.String(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return rowToTransaction(row)
}

// PendingSyncTransaction carries the minimal data the export worker needs to
// pick up an unsynced row.
type PendingSyncTransaction struct {
	Transaction core.Transaction
	Attempts    int64
}

// GetPendingSyncTransactions returns transactions not yet exported to the
// external spreadsheet.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.queries.GetPendingSyncTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}

	items := make([]PendingSyncTransaction, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		items = append(items, PendingSyncTransaction{Transaction: t, Attempts: row.SyncAttempts})
	}
	return items, nil
}

// MarkSynced marks a transaction as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := r.queries.MarkTransactionSynced(ctx, id, now); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed export attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := r.queries.MarkTransactionSyncError(ctx, id, now); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}

	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func rowToTransaction(row TransactionRow) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(row.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", row.ID, err)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", row.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: parse created_at: %w", row.ID, err)
	}

	return core.Transaction{
		ID:          row.ID,
		Type:        typ,
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		Category:    row.Category,
		Date:        date,
		CreatedAt:   createdAt,
	}, nil
}
