package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tracker/internal/core"
	"tracker/internal/store"
)

func sample(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 2000},
		Description: "groceries",
		Category:    "food",
		Date:        core.NewDate(2024, 1, 5),
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "transactions.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("data file not created: %v", err)
	}
	items, err := s.ListTransactions(context.Background())
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty collection, got %d (err=%v)", len(items), err)
	}
}

func TestPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.AppendTransaction(ctx, sample("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.AppendTransaction(ctx, sample("b")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	items, err := reopened.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b" {
		t.Fatalf("unexpected collection after reopen: %+v", items)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	items, _ := s.ListTransactions(context.Background())
	if len(items) != 0 {
		t.Fatalf("expected empty collection, got %d", len(items))
	}
}

func TestDeleteMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.DeleteTransaction(context.Background(), "nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	ctx := context.Background()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.AppendTransaction(ctx, sample("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	cat := "dining"
	if _, err := s.UpdateTransaction(ctx, "a", store.Patch{Category: &cat}); err != nil {
		t.Fatalf("update: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(data), `"dining"`) {
		t.Fatalf("update not persisted: %s", data)
	}
}
