// Package client is the HTTP client for the transaction store API. The web
// UI talks to the store exclusively through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracker/internal/core"
)

// ErrRequestFailed wraps every transport failure and non-2xx response. The
// UI layer only distinguishes success from failure, so one sentinel is
// enough; the wrapped message keeps the detail for logs.
var ErrRequestFailed = errors.New("store request failed")

const defaultTimeout = 10 * time.Second

// StoreClient calls the transaction store API over HTTP.
type StoreClient struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *StoreClient {
	return &StoreClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewWithHTTPClient is used by tests to inject a client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *StoreClient {
	return &StoreClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Statistics mirrors the store's /api/statistics payload.
type Statistics struct {
	TotalIncome      core.Money            `json:"total_income"`
	TotalExpenses    core.Money            `json:"total_expenses"`
	Balance          core.Money            `json:"balance"`
	TransactionCount int                   `json:"transaction_count"`
	Categories       []core.CategoryAmount `json:"categories"`
}

// CreateRequest carries the client-supplied fields of a new transaction.
// The store assigns id and created_at.
type CreateRequest struct {
	Type        core.TransactionType `json:"type"`
	Amount      core.Money           `json:"amount"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Date        core.Date            `json:"date"`
}

// UpdateRequest carries a partial update; nil fields are omitted from the
// request body and left unchanged by the store.
type UpdateRequest struct {
	Type        *core.TransactionType `json:"type,omitempty"`
	Amount      *core.Money           `json:"amount,omitempty"`
	Description *string               `json:"description,omitempty"`
	Category    *string               `json:"category,omitempty"`
	Date        *core.Date            `json:"date,omitempty"`
}

func (c *StoreClient) List(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) Create(ctx context.Context, req CreateRequest) (core.Transaction, error) {
	var out core.Transaction
	if err := c.do(ctx, http.MethodPost, "/api/transactions", req, &out); err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

func (c *StoreClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+id, nil, nil)
}

func (c *StoreClient) Update(ctx context.Context, id string, req UpdateRequest) (core.Transaction, error) {
	var out core.Transaction
	if err := c.do(ctx, http.MethodPut, "/api/transactions/"+id, req, &out); err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

func (c *StoreClient) Statistics(ctx context.Context) (Statistics, error) {
	var out Statistics
	if err := c.do(ctx, http.MethodGet, "/api/statistics", nil, &out); err != nil {
		return Statistics{}, err
	}
	return out, nil
}

func (c *StoreClient) Summary(ctx context.Context, w core.Window, typ core.TransactionType) (core.Breakdown, error) {
	var out core.Breakdown
	path := fmt.Sprintf("/api/summary?window=%s&type=%s", w, typ)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return core.Breakdown{}, err
	}
	return out, nil
}

func (c *StoreClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encoding body: %v", ErrRequestFailed, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d: %s",
			ErrRequestFailed, method, path, resp.StatusCode, readErrorMessage(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrRequestFailed, err)
	}
	return nil
}

// readErrorMessage pulls the {"error": ...} body if present, otherwise the
// raw text, capped so a misbehaving server cannot flood the logs.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil || len(raw) == 0 {
		return "no body"
	}
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}
