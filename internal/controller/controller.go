// Package controller holds the UI view state: the cached transaction
// collection, the loading/ready/error status and the store actions that
// mutate them. The store remains the source of truth; the local collection
// is a transient mirror.
package controller

import (
	"context"
	"sync"

	"tracker/internal/client"
	"tracker/internal/core"
)

// State is the view lifecycle phase.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ErrLoadMessage is the banner shown when the store cannot be reached.
const ErrLoadMessage = "Failed to load transactions. Make sure the backend API is running."

const (
	errAddMessage    = "Failed to add the transaction. Please try again."
	errDeleteMessage = "Failed to delete the transaction. Please try again."
)

// Store is the slice of the store client the controller drives.
type Store interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, req client.CreateRequest) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// Controller serializes all mutations of the local collection behind one
// mutex, mirroring a single-threaded event loop: exactly one writer, and
// reads always observe a completed transition.
type Controller struct {
	store Store

	mu           sync.Mutex
	state        State
	transactions []core.Transaction
	errMessage   string
}

func New(store Store) *Controller {
	return &Controller{
		store: store,
		state: StateLoading,
	}
}

// Snapshot is an immutable view of the controller for rendering.
type Snapshot struct {
	State        State
	Transactions []core.Transaction
	ErrMessage   string
}

// Snapshot returns a copy of the current state. The collection slice is
// copied so renderers never observe a mutation in progress.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	txs := make([]core.Transaction, len(c.transactions))
	copy(txs, c.transactions)
	return Snapshot{
		State:        c.state,
		Transactions: txs,
		ErrMessage:   c.errMessage,
	}
}

// Load fetches the full collection from the store. On failure the local
// collection is emptied and the state moves to error.
func (c *Controller) Load(ctx context.Context) error {
	items, err := c.store.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.errMessage = ErrLoadMessage
		c.transactions = nil
		return err
	}
	c.state = StateReady
	c.errMessage = ""
	c.transactions = items
	return nil
}

// Add creates the transaction in the store and, only on success, prepends
// the store-returned record (with its server-assigned id) to the local
// collection. No optimistic insert: a failed create leaves the collection
// untouched and surfaces an error banner.
func (c *Controller) Add(ctx context.Context, req client.CreateRequest) (core.Transaction, error) {
	created, err := c.store.Create(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.errMessage = errAddMessage
		return core.Transaction{}, err
	}
	c.state = StateReady
	c.errMessage = ""
	c.transactions = append([]core.Transaction{created}, c.transactions...)
	return created, nil
}

// Delete removes the transaction from the store, then drops the matching
// local record. The local copy is touched only after the store confirms.
func (c *Controller) Delete(ctx context.Context, id string) error {
	err := c.store.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.errMessage = errDeleteMessage
		return err
	}
	c.state = StateReady
	c.errMessage = ""
	for i, t := range c.transactions {
		if t.ID == id {
			c.transactions = append(c.transactions[:i], c.transactions[i+1:]...)
			break
		}
	}
	return nil
}
