package webui

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"tracker/internal/core"
)

func formRequest(t *testing.T, values url.Values) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/transactions", strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func validForm() url.Values {
	return url.Values{
		"type":        {"expense"},
		"amount":      {"12.50"},
		"description": {"lunch"},
		"category":    {"food"},
		"date":        {"2024-03-10"},
	}
}

func TestParseTransactionForm(t *testing.T) {
	req, err := ParseTransactionForm(NewRequestBodyParser(formRequest(t, validForm())))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Type != core.Expense {
		t.Errorf("Type = %q, want expense", req.Type)
	}
	if req.Amount.Cents != 1250 {
		t.Errorf("Amount = %d, want 1250", req.Amount.Cents)
	}
	if req.Date.String() != "2024-03-10" {
		t.Errorf("Date = %q, want 2024-03-10", req.Date)
	}
}

func TestParseTransactionForm_MissingFields(t *testing.T) {
	for _, field := range []string{"type", "amount", "description", "category", "date"} {
		form := validForm()
		form.Del(field)
		_, err := ParseTransactionForm(NewRequestBodyParser(formRequest(t, form)))
		if err == nil {
			t.Errorf("field %s: expected error", field)
			continue
		}
		if !strings.Contains(err.Error(), "missing required field: "+field) {
			t.Errorf("field %s: unexpected message %q", field, err)
		}
	}
}

func TestParseTransactionForm_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"bad type", "type", "transfer"},
		{"bad amount", "amount", "abc"},
		{"zero amount", "amount", "0"},
		{"negative amount", "amount", "-3"},
		{"bad date", "date", "10/03/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form.Set(tt.field, tt.value)
			if _, err := ParseTransactionForm(NewRequestBodyParser(formRequest(t, form))); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseTransactionForm_JSONBody(t *testing.T) {
	body := `{"type":"income","amount":100.50,"description":"salary","category":"salary","date":"2024-01-15"}`
	req, err := http.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	parsed, err := ParseTransactionForm(parser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parser.IsJSON() {
		t.Error("expected JSON detection")
	}
	if parsed.Type != core.Income || parsed.Amount.Cents != 10050 {
		t.Errorf("unexpected result: %+v", parsed)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{"with\x00null", "withnull"},
		{"tab\tkept", "tab\tkept"},
		{"line\nkept", "line\nkept"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
