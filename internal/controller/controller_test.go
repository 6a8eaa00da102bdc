package controller

import (
	"context"
	"errors"
	"testing"

	"tracker/internal/client"
	"tracker/internal/core"
)

type fakeStore struct {
	items      []core.Transaction
	listErr    error
	createErr  error
	deleteErr  error
	nextID     string
	deletedIDs []string
}

func (f *fakeStore) List(context.Context) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeStore) Create(_ context.Context, req client.CreateRequest) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	return core.Transaction{
		ID:          f.nextID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
	}, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func tx(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 500},
		Description: "coffee",
		Category:    "food",
		Date:        core.NewDate(2024, 3, 10),
	}
}

func TestInitialStateLoading(t *testing.T) {
	c := New(&fakeStore{})
	if snap := c.Snapshot(); snap.State != StateLoading {
		t.Fatalf("expected loading, got %s", snap.State)
	}
}

func TestLoadSuccess(t *testing.T) {
	c := New(&fakeStore{items: []core.Transaction{tx("a"), tx("b")}})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != StateReady || len(snap.Transactions) != 2 || snap.ErrMessage != "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestLoadFailure(t *testing.T) {
	c := New(&fakeStore{listErr: client.ErrRequestFailed})
	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := c.Snapshot()
	if snap.State != StateError {
		t.Fatalf("expected error state, got %s", snap.State)
	}
	if snap.ErrMessage != ErrLoadMessage {
		t.Fatalf("unexpected message: %q", snap.ErrMessage)
	}
	if len(snap.Transactions) != 0 {
		t.Fatalf("collection should be empty, got %d", len(snap.Transactions))
	}
}

func TestAddPrependsStoreRecord(t *testing.T) {
	store := &fakeStore{items: []core.Transaction{tx("old")}, nextID: "new"}
	c := New(store)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created, err := c.Add(context.Background(), client.CreateRequest{
		Type:        core.Income,
		Amount:      core.Money{Cents: 10000},
		Description: "salary",
		Category:    "salary",
		Date:        core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "new" {
		t.Fatalf("expected server-assigned id, got %q", created.ID)
	}
	snap := c.Snapshot()
	if len(snap.Transactions) != 2 || snap.Transactions[0].ID != "new" {
		t.Fatalf("expected new record first, got %+v", snap.Transactions)
	}
}

func TestAddFailureLeavesCollection(t *testing.T) {
	store := &fakeStore{items: []core.Transaction{tx("a")}}
	c := New(store)
	_ = c.Load(context.Background())

	store.createErr = errors.New("boom")
	if _, err := c.Add(context.Background(), client.CreateRequest{}); err == nil {
		t.Fatal("expected error")
	}
	snap := c.Snapshot()
	if snap.State != StateError {
		t.Fatalf("expected error state, got %s", snap.State)
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != "a" {
		t.Fatalf("collection should be unchanged, got %+v", snap.Transactions)
	}
}

func TestDeleteRemovesAfterConfirm(t *testing.T) {
	store := &fakeStore{items: []core.Transaction{tx("a"), tx("b")}}
	c := New(store)
	_ = c.Load(context.Background())

	if err := c.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != "b" {
		t.Fatalf("unexpected collection: %+v", snap.Transactions)
	}
	if len(store.deletedIDs) != 1 || store.deletedIDs[0] != "a" {
		t.Fatalf("store not called: %v", store.deletedIDs)
	}
}

func TestDeleteFailureKeepsRecord(t *testing.T) {
	store := &fakeStore{items: []core.Transaction{tx("a")}}
	c := New(store)
	_ = c.Load(context.Background())

	store.deleteErr = errors.New("boom")
	if err := c.Delete(context.Background(), "a"); err == nil {
		t.Fatal("expected error")
	}
	snap := c.Snapshot()
	if snap.State != StateError || len(snap.Transactions) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestRecoveryAfterError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("down")}
	c := New(store)
	_ = c.Load(context.Background())

	store.listErr = nil
	store.items = []core.Transaction{tx("a")}
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != StateReady || snap.ErrMessage != "" {
		t.Fatalf("expected recovery, got %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := &fakeStore{items: []core.Transaction{tx("a")}}
	c := New(store)
	_ = c.Load(context.Background())

	snap := c.Snapshot()
	snap.Transactions[0].ID = "mutated"
	if c.Snapshot().Transactions[0].ID != "a" {
		t.Fatal("snapshot mutation leaked into controller state")
	}
}
