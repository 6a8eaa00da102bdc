package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tracker/internal/core"
)

func TestListDecodesTransactions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/transactions" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"abc","type":"expense","amount":12.50,"description":"lunch","category":"food","date":"2024-03-10"}]`))
	}))
	defer ts.Close()

	got, err := New(ts.URL).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "abc" || got[0].Amount.Cents != 1250 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestCreateSendsFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body["type"] != "income" || body["date"] != "2024-01-15" {
			t.Fatalf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"new-id","type":"income","amount":100,"description":"salary","category":"salary","date":"2024-01-15"}`))
	}))
	defer ts.Close()

	created, err := New(ts.URL).Create(context.Background(), CreateRequest{
		Type:        core.Income,
		Amount:      core.Money{Cents: 10000},
		Description: "salary",
		Category:    "salary",
		Date:        core.NewDate(2024, 1, 15),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "new-id" {
		t.Fatalf("expected server-assigned id, got %q", created.ID)
	}
}

func TestNon2xxWrapsSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"transaction not found"}`))
	}))
	defer ts.Close()

	err := New(ts.URL).Delete(context.Background(), "missing")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestTransportErrorWrapsSentinel(t *testing.T) {
	// Closed server: the connection is refused.
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := New(url).List(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestUpdateOmitsNilFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(body) != 1 {
			t.Fatalf("expected only the set field, got %v", body)
		}
		if body["category"] != "dining" {
			t.Fatalf("unexpected body: %v", body)
		}
		_, _ = w.Write([]byte(`{"id":"abc","type":"expense","amount":12.50,"description":"lunch","category":"dining","date":"2024-03-10"}`))
	}))
	defer ts.Close()

	category := "dining"
	updated, err := New(ts.URL).Update(context.Background(), "abc", UpdateRequest{Category: &category})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Category != "dining" {
		t.Fatalf("unexpected result: %+v", updated)
	}
}

func TestStatistics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/statistics" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"total_income":100,"total_expenses":40,"balance":60,"transaction_count":2,"categories":[{"category":"food","amount":40}]}`))
	}))
	defer ts.Close()

	stats, err := New(ts.URL).Statistics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Balance.Cents != 6000 || len(stats.Categories) != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
