package webui

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tracker/internal/controller"
	"tracker/internal/core"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/web"
)

const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 15 * time.Second
	idleTimeout    = 60 * time.Second
	handlerTimeout = 7 * time.Second
	staticMaxAge   = 86400
)

// Server renders the dashboard. All data flows through the controller's
// snapshot; handlers never call the store directly.
type Server struct {
	http.Server

	ctrl      *controller.Controller
	templates *template.Template
	logger    *slog.Logger

	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

func NewServer(addr string, ctrl *controller.Controller, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		ctrl:      ctrl,
		templates: templates,
		logger:    logger,
		detector:  security.NewDetector(),
	}
	s.headers = security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/transactions", s.handleTransactions)
	mux.HandleFunc("GET /ui/summary", s.handleSummary)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /ui/reload", s.handleReload)
	mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(http.FileServer(http.FS(web.StaticFS))))
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      s.headers.Middleware(s.tracer.Middleware(mux)),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// Shutdown drains in-flight requests. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// View models. Amounts are formatted server-side so templates stay dumb.

type pageView struct {
	State      controller.State
	ErrMessage string
}

type cardsView struct {
	Balance      string
	Income       string
	Expense      string
	IncomeCount  int
	ExpenseCount int
	NegativeBal  bool
}

type transactionView struct {
	ID          string
	Date        string
	Description string
	Category    string
	Type        string
	Amount      string
	IsExpense   bool
}

type listView struct {
	State        controller.State
	ErrMessage   string
	Filter       string
	Transactions []transactionView
}

type categoryRowView struct {
	Category string
	Amount   string
	Width    int
}

type summaryView struct {
	Window string
	Type   string
	Rows   []categoryRowView
	Total  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	s.render(w, r, "dashboard_page", pageView{State: snap.State, ErrMessage: snap.ErrMessage})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	totals := core.Summarize(snap.Transactions)
	s.render(w, r, "summary_cards", cardsView{
		Balance:      formatEuros(totals.Balance.Cents),
		Income:       formatEuros(totals.Income.Cents),
		Expense:      formatEuros(totals.Expense.Cents),
		IncomeCount:  totals.IncomeCount,
		ExpenseCount: totals.ExpenseCount,
		NegativeBal:  totals.Balance.Cents < 0,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()

	filter := r.URL.Query().Get("filter")
	items := snap.Transactions
	if filter != "" {
		typ, err := core.ParseTransactionType(filter)
		if err != nil {
			BadRequestError("unknown filter").Write(w)
			return
		}
		items = core.FilterByType(items, typ)
	}

	views := make([]transactionView, 0, len(items))
	for _, t := range items {
		views = append(views, transactionView{
			ID:          t.ID,
			Date:        t.Date.String(),
			Description: t.Description,
			Category:    t.Category,
			Type:        string(t.Type),
			Amount:      formatEuros(t.Amount.Cents),
			IsExpense:   t.Type == core.Expense,
		})
	}
	s.render(w, r, "transaction_list", listView{
		State:        snap.State,
		ErrMessage:   snap.ErrMessage,
		Filter:       filter,
		Transactions: views,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	window := core.WindowMonth
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, err := core.ParseWindow(v)
		if err != nil {
			BadRequestError("unknown window").Write(w)
			return
		}
		window = parsed
	}
	typ := core.Expense
	if v := r.URL.Query().Get("type"); v != "" {
		parsed, err := core.ParseTransactionType(v)
		if err != nil {
			BadRequestError("unknown type").Write(w)
			return
		}
		typ = parsed
	}

	snap := s.ctrl.Snapshot()
	breakdown := core.BreakdownByCategory(snap.Transactions, typ, window, time.Now().UTC())

	// Bar widths are scaled against the largest group.
	var max int64
	if len(breakdown.Groups) > 0 {
		max = breakdown.Groups[0].Amount.Cents
	}
	rows := make([]categoryRowView, 0, len(breakdown.Groups))
	for _, g := range breakdown.Groups {
		width := 0
		if max > 0 {
			width = int(g.Amount.Cents * 100 / max)
		}
		rows = append(rows, categoryRowView{
			Category: g.Category,
			Amount:   formatEuros(g.Amount.Cents),
			Width:    width,
		})
	}
	s.render(w, r, "category_table", summaryView{
		Window: string(window),
		Type:   string(typ),
		Rows:   rows,
		Total:  formatEuros(breakdown.Total.Cents),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	req, err := ParseTransactionForm(NewRequestBodyParser(r))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	created, err := s.ctrl.Add(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "Create transaction failed", "error", err)
		NewHTMXResponse().
			Status(http.StatusBadGateway).
			TriggerErrorNotification("Failed to add the transaction. Please try again.").
			BodyHTML(`<div class="error">Failed to add the transaction. Please try again.</div>`).
			Write(w)
		return
	}

	body, err := s.renderBytes("transaction_list", s.currentListView())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(created.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Transaction added").
		BodyHTML(string(body)).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	id := r.PathValue("id")
	if err := s.ctrl.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Delete transaction failed", "transaction_id", id, "error", err)
		NewHTMXResponse().
			Status(http.StatusBadGateway).
			TriggerErrorNotification("Failed to delete the transaction. Please try again.").
			BodyHTML(`<div class="error">Failed to delete the transaction. Please try again.</div>`).
			Write(w)
		return
	}

	body, err := s.renderBytes("transaction_list", s.currentListView())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	NewHTMXResponse().
		TriggerTransactionDeleted(id).
		TriggerSuccessNotification("Transaction deleted").
		BodyHTML(string(body)).
		Write(w)
}

// handleReload re-fetches the collection from the store, backing the retry
// button on the error banner.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if err := s.ctrl.Load(ctx); err != nil {
		slog.WarnContext(ctx, "Reload failed", "error", err)
	}
	s.render(w, r, "transaction_list", s.currentListView())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) currentListView() listView {
	snap := s.ctrl.Snapshot()
	views := make([]transactionView, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		views = append(views, transactionView{
			ID:          t.ID,
			Date:        t.Date.String(),
			Description: t.Description,
			Category:    t.Category,
			Type:        string(t.Type),
			Amount:      formatEuros(t.Amount.Cents),
			IsExpense:   t.Type == core.Expense,
		})
	}
	return listView{
		State:        snap.State,
		ErrMessage:   snap.ErrMessage,
		Transactions: views,
	}
}

func (s *Server) renderBytes(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.renderBytes(name, data)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Template execution failed", "error", err)
	http.Error(w, "template error", http.StatusInternalServerError)
}

// formatEuros formats cents as a Euro currency string, e.g. "€12,34".
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}
