package services

import (
	"context"
	"errors"
	"testing"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/store"
	"tracker/internal/store/memory"
)

type fakePublisher struct {
	events []string
	err    error
}

func (p *fakePublisher) PublishTransactionEvent(_ context.Context, id, action string) error {
	p.events = append(p.events, action+":"+id)
	return p.err
}

func newEntry(typ core.TransactionType, cents int64, category string) core.Transaction {
	return core.Transaction{
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		Description: "entry",
		Category:    category,
		Date:        core.NewDate(2024, 1, 10),
	}
}

func TestCreateAssignsIdentity(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)

	saved, err := svc.CreateTransaction(context.Background(), newEntry(core.Expense, 2000, "food"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.ID == "" {
		t.Error("expected server-assigned ID")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("expected server-assigned creation time")
	}
	if len(pub.events) != 1 || pub.events[0] != amqp.ActionCreated+":"+saved.ID {
		t.Errorf("unexpected events: %v", pub.events)
	}
}

func TestCreatePublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(memory.New(), pub)

	saved, err := svc.CreateTransaction(context.Background(), newEntry(core.Income, 100000, "salary"))
	if err != nil {
		t.Fatalf("create should succeed when publish fails: %v", err)
	}

	got, err := svc.GetTransaction(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("get after failed publish: %v", err)
	}
	if got.ID != saved.ID {
		t.Errorf("transaction not persisted: %+v", got)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)

	bad := newEntry(core.Expense, 0, "food")
	if _, err := svc.CreateTransaction(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("no event expected for rejected create, got %v", pub.events)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil)
	ctx := context.Background()

	older := newEntry(core.Expense, 500, "food")
	older.Date = core.NewDate(2024, 1, 1)
	newer := newEntry(core.Expense, 700, "transport")
	newer.Date = core.NewDate(2024, 3, 1)

	if _, err := svc.CreateTransaction(ctx, older); err != nil {
		t.Fatalf("create older: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, newer); err != nil {
		t.Fatalf("create newer: %v", err)
	}

	items, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Category != "transport" || items[1].Category != "food" {
		t.Fatalf("expected newest first, got %+v", items)
	}
}

func TestDeletePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)
	ctx := context.Background()

	saved, err := svc.CreateTransaction(ctx, newEntry(core.Expense, 2000, "food"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{amqp.ActionCreated + ":" + saved.ID, amqp.ActionDeleted + ":" + saved.ID}
	if len(pub.events) != 2 || pub.events[0] != want[0] || pub.events[1] != want[1] {
		t.Errorf("unexpected events: %v", pub.events)
	}
}

func TestDeleteMissingNoEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)

	if err := svc.DeleteTransaction(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("no event expected for missing delete, got %v", pub.events)
	}
}

func TestUpdatePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(memory.New(), pub)
	ctx := context.Background()

	saved, err := svc.CreateTransaction(ctx, newEntry(core.Expense, 2000, "food"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	desc := "weekly groceries"
	updated, err := svc.UpdateTransaction(ctx, saved.ID, store.Patch{Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != desc {
		t.Errorf("description not updated: %+v", updated)
	}
	if pub.events[len(pub.events)-1] != amqp.ActionUpdated+":"+saved.ID {
		t.Errorf("unexpected events: %v", pub.events)
	}
}

func TestCloseWithNilPublisher(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil)
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
