package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/store"
)

// TransactionStore is the full persistence surface the service needs.
type TransactionStore interface {
	store.TransactionLister
	store.TransactionAppender
	store.TransactionGetter
	store.TransactionDeleter
	store.TransactionUpdater
}

// EventPublisher notifies downstream consumers of transaction changes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, id, action string) error
}

// TransactionService orchestrates transaction operations across the backing
// store and the event bus. Server-side fields (ID, creation time) are assigned
// here so every backend behaves identically.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
}

func NewTransactionService(st TransactionStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     st,
		publisher: publisher,
	}
}

// ListTransactions returns all transactions, newest first by date and then by
// creation time.
func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	items, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.After(items[j].Date.Time)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// CreateTransaction assigns an ID and creation time, validates and persists
// the transaction, then publishes a change event best-effort.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.AppendTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishEvent(ctx, saved.ID, amqp.ActionCreated)
	return saved, nil
}

// GetTransaction returns a single transaction by ID.
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// DeleteTransaction removes a transaction and publishes a delete event
// best-effort.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, id, amqp.ActionDeleted)
	return nil
}

// UpdateTransaction applies a partial update and publishes an update event
// best-effort.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, p store.Patch) (core.Transaction, error) {
	updated, err := s.store.UpdateTransaction(ctx, id, p)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishEvent(ctx, id, amqp.ActionUpdated)
	return updated, nil
}

// publishEvent never fails the request. The store write already succeeded;
// consumers can recover missed events from the pending sync queue.
func (s *TransactionService) publishEvent(ctx context.Context, id, action string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping event", "id", id, "action", action)
		return
	}

	if err := s.publisher.PublishTransactionEvent(ctx, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", id, "action", action, "error", err)
	}
}

// Close closes the store and the publisher when they hold resources.
func (s *TransactionService) Close() error {
	var errs []error

	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if closer, ok := s.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
