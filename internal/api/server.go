// Package api exposes the transaction store over a JSON REST surface.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/internal/services"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	handlerTimeout  = 7 * time.Second
	statsCacheTTL   = 30 * time.Second
	summaryCacheTTL = 30 * time.Second
)

// Server is the store API. Aggregated reads are served from short-lived
// caches that every mutation invalidates.
type Server struct {
	http.Server

	svc    *services.TransactionService
	logger *slog.Logger

	statsCache   *cache.LRUCache[StatisticsResponse]
	summaryCache *cache.LRUCache[SummaryResponse]
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, svc *services.TransactionService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		svc:          svc,
		logger:       logger,
		statsCache:   cache.NewLRUCache[StatisticsResponse](4, statsCacheTTL),
		summaryCache: cache.NewLRUCache[SummaryResponse](16, summaryCacheTTL),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
	}
	s.headers = security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(time.Minute)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.Handle("POST /api/transactions", limited(http.HandlerFunc(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.Handle("PUT /api/transactions/{id}", limited(http.HandlerFunc(s.handleUpdateTransaction)))
	mux.Handle("DELETE /api/transactions/{id}", limited(http.HandlerFunc(s.handleDeleteTransaction)))
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	flagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.Warn("suspicious request",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r),
				"user_agent", r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
	return s.headers.Middleware(s.tracer.Middleware(s.withCORS(flagged)))
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("rate limit exceeded",
		"client_ip", s.detector.ExtractClientIP(r),
		"path", r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "too many requests")
}

// invalidateCaches drops every aggregated view after a write.
func (s *Server) invalidateCaches() {
	s.statsCache.Clear()
	s.summaryCache.Clear()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.svc.ListTransactions(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops background workers and drains in-flight requests. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// now is stubbed in tests that pin the aggregation clock.
var now = func() time.Time { return time.Now().UTC() }

func windowKey(w core.Window, typ core.TransactionType) string {
	return string(w) + "|" + string(typ)
}
