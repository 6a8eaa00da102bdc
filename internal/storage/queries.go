package storage

import (
	"context"
	"database/sql"
)

// Queries wraps a database handle with the prepared statements used by the
// repository. It mirrors the shape of generated query code so the repository
// stays thin.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// TransactionRow is the raw row shape of the transactions table.
type TransactionRow struct {
	ID           string
	Type         string
	AmountCents  int64
	Description  string
	Category     string
	Date         string
	CreatedAt    string
	SyncStatus   string
	SyncAttempts int64
	LastSyncAt   sql.NullString
}

type CreateTransactionParams struct {
	ID          string
	Type        string
	AmountCents int64
	Description string
	Category    string
	Date        string
	CreatedAt   string
}

const createTransaction = `
INSERT INTO transactions (id, type, amount_cents, description, category, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, type, amount_cents, description, category, date, created_at, sync_status, sync_attempts, last_sync_at
`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID, arg.Type, arg.AmountCents, arg.Description, arg.Category, arg.Date, arg.CreatedAt)
	var t TransactionRow
	err := row.Scan(&t.ID, &t.Type, &t.AmountCents, &t.Description, &t.Category,
		&t.Date, &t.CreatedAt, &t.SyncStatus, &t.SyncAttempts, &t.LastSyncAt)
	return t, err
}

const getTransaction = `
SELECT id, type, amount_cents, description, category, date, created_at, sync_status, sync_attempts, last_sync_at
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var t TransactionRow
	err := row.Scan(&t.ID, &t.Type, &t.AmountCents, &t.Description, &t.Category,
		&t.Date, &t.CreatedAt, &t.SyncStatus, &t.SyncAttempts, &t.LastSyncAt)
	return t, err
}

const listTransactions = `
SELECT id, type, amount_cents, description, category, date, created_at, sync_status, sync_attempts, last_sync_at
FROM transactions
ORDER BY date DESC, created_at DESC
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(&t.ID, &t.Type, &t.AmountCents, &t.Description, &t.Category,
			&t.Date, &t.CreatedAt, &t.SyncStatus, &t.SyncAttempts, &t.LastSyncAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type UpdateTransactionParams struct {
	ID          string
	Type        string
	AmountCents int64
	Description string
	Category    string
	Date        string
}

const updateTransaction = `
UPDATE transactions
SET type = ?, amount_cents = ?, description = ?, category = ?, date = ?, sync_status = 'pending'
WHERE id = ?
RETURNING id, type, amount_cents, description, category, date, created_at, sync_status, sync_attempts, last_sync_at
`

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.Type, arg.AmountCents, arg.Description, arg.Category, arg.Date, arg.ID)
	var t TransactionRow
	err := row.Scan(&t.ID, &t.Type, &t.AmountCents, &t.Description, &t.Category,
		&t.Date, &t.CreatedAt, &t.SyncStatus, &t.SyncAttempts, &t.LastSyncAt)
	return t, err
}

const getPendingSyncTransactions = `
SELECT id, type, amount_cents, description, category, date, created_at, sync_status, sync_attempts, last_sync_at
FROM transactions
WHERE sync_status = 'pending'
ORDER BY created_at ASC
LIMIT ?
`

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncTransactions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(&t.ID, &t.Type, &t.AmountCents, &t.Description, &t.Category,
			&t.Date, &t.CreatedAt, &t.SyncStatus, &t.SyncAttempts, &t.LastSyncAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const markTransactionSynced = `
UPDATE transactions
SET sync_status = 'synced', last_sync_at = ?
WHERE id = ?
`

func (q *Queries) MarkTransactionSynced(ctx context.Context, id string, syncedAt string) error {
	_, err := q.db.ExecContext(ctx, markTransactionSynced, syncedAt, id)
	return err
}

const markTransactionSyncError = `
UPDATE transactions
SET sync_status = 'error', sync_attempts = sync_attempts + 1, last_sync_at = ?
WHERE id = ?
`

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id string, attemptedAt string) error {
	_, err := q.db.ExecContext(ctx, markTransactionSyncError, attemptedAt, id)
	return err
}
