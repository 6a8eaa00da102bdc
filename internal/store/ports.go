// Package store defines the ports the transaction store backends implement.
package store

import (
	"context"
	"errors"

	"tracker/internal/core"
)

// ErrNotFound is returned when an id does not exist in the collection.
var ErrNotFound = errors.New("transaction not found")

// Patch carries a partial update; nil fields are left unchanged.
type Patch struct {
	Amount      *core.Money
	Description *string
	Category    *string
	Date        *core.Date
	Type        *core.TransactionType
}

// Ports for the storage backends.
type (
	TransactionLister interface {
		// ListTransactions returns the whole collection, unordered.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionAppender interface {
		// AppendTransaction stores a fully populated record (id and
		// created_at already assigned) and returns it as stored.
		AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	TransactionDeleter interface {
		// DeleteTransaction removes a record by id; ErrNotFound if absent.
		DeleteTransaction(ctx context.Context, id string) error
	}

	TransactionUpdater interface {
		// UpdateTransaction applies a partial update and returns the
		// resulting record; ErrNotFound if the id is absent.
		UpdateTransaction(ctx context.Context, id string, p Patch) (core.Transaction, error)
	}

	TransactionGetter interface {
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}
)
