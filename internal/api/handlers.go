package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tracker/internal/core"
	"tracker/internal/store"
)

// StatisticsResponse are the full-collection dashboard figures. Categories
// cover expenses only, sorted by amount descending.
type StatisticsResponse struct {
	TotalIncome      core.Money            `json:"total_income"`
	TotalExpenses    core.Money            `json:"total_expenses"`
	Balance          core.Money            `json:"balance"`
	TransactionCount int                   `json:"transaction_count"`
	Categories       []core.CategoryAmount `json:"categories"`
}

// SummaryResponse is a windowed per-category breakdown for one type.
type SummaryResponse struct {
	Window     core.Window           `json:"window"`
	Type       core.TransactionType  `json:"type"`
	Categories []core.CategoryAmount `json:"categories"`
	Total      core.Money            `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto the API's status taxonomy:
// unknown id is 404, a value that fails validation is 422, anything else
// is a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	items, err := s.svc.ListTransactions(ctx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, items)
}

// createRequest keeps raw field presence so a missing field and an invalid
// one produce different statuses.
type createRequest struct {
	Type        *string          `json:"type"`
	Amount      *json.RawMessage `json:"amount"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Date        *string          `json:"date"`
}

func (req createRequest) missingField() (string, bool) {
	switch {
	case req.Type == nil:
		return "type", true
	case req.Amount == nil:
		return "amount", true
	case req.Description == nil:
		return "description", true
	case req.Category == nil:
		return "category", true
	case req.Date == nil:
		return "date", true
	}
	return "", false
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if field, missing := req.missingField(); missing {
		writeError(w, http.StatusBadRequest, "missing required field: "+field)
		return
	}

	typ, err := core.ParseTransactionType(*req.Type)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var amount core.Money
	if err := amount.UnmarshalJSON(*req.Amount); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid amount: %s", *req.Amount))
		return
	}
	date, err := core.ParseDate(*req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.svc.CreateTransaction(ctx, core.Transaction{
		Type:        typ,
		Amount:      amount,
		Description: *req.Description,
		Category:    *req.Category,
		Date:        date,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	item, err := s.svc.GetTransaction(ctx, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	id := r.PathValue("id")
	if err := s.svc.DeleteTransaction(ctx, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
}

type updateRequest struct {
	Type        *string          `json:"type"`
	Amount      *json.RawMessage `json:"amount"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Date        *string          `json:"date"`
}

func (req updateRequest) empty() bool {
	return req.Type == nil && req.Amount == nil && req.Description == nil &&
		req.Category == nil && req.Date == nil
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.empty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	var patch store.Patch
	if req.Type != nil {
		typ, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		patch.Type = &typ
	}
	if req.Amount != nil {
		var amount core.Money
		if err := amount.UnmarshalJSON(*req.Amount); err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid amount: %s", *req.Amount))
			return
		}
		patch.Amount = &amount
	}
	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		patch.Date = &date
	}
	patch.Description = req.Description
	patch.Category = req.Category

	updated, err := s.svc.UpdateTransaction(ctx, r.PathValue("id"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "statistics"
	if cached, ok := s.statsCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	items, err := s.svc.ListTransactions(ctx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	totals := core.Summarize(items)
	breakdown := core.GroupByCategory(items, core.Expense)
	resp := StatisticsResponse{
		TotalIncome:      totals.Income,
		TotalExpenses:    totals.Expense,
		Balance:          totals.Balance,
		TransactionCount: len(items),
		Categories:       breakdown.Groups,
	}
	s.statsCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	windowParam := r.URL.Query().Get("window")
	if windowParam == "" {
		windowParam = string(core.WindowMonth)
	}
	window, err := core.ParseWindow(windowParam)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	typeParam := r.URL.Query().Get("type")
	if typeParam == "" {
		typeParam = string(core.Expense)
	}
	typ, err := core.ParseTransactionType(typeParam)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := windowKey(window, typ)
	if cached, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	items, err := s.svc.ListTransactions(ctx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	breakdown := core.BreakdownByCategory(items, typ, window, now())
	resp := SummaryResponse{
		Window:     window,
		Type:       typ,
		Categories: breakdown.Groups,
		Total:      breakdown.Total,
	}
	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}
