// Package http exposes the web surface: sign-in pages, the dashboard, the
// JSON transaction API, and the live snapshot stream.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mamon/internal/auth"
	"mamon/internal/cache"
	"mamon/internal/core"
	"mamon/internal/live"
	"mamon/internal/middleware/trace"
	"mamon/internal/services"
	appweb "mamon/web"
)

type Server struct {
	http.Server
	templates *template.Template

	svc      *services.TransactionService
	hub      *live.Hub
	sessions *auth.SessionManager
	identity auth.Identity

	rateLimiter *rateLimiter

	// Per-user summary payload cache, invalidated on every mutation.
	summaryCache *cache.LRUCache[summaryResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.TransactionService, hub *live.Hub, sessions *auth.SessionManager, identity auth.Identity) *Server {
	mux := http.NewServeMux()

	s := &Server{
		svc:              svc,
		hub:              hub,
		sessions:         sessions,
		identity:         identity,
		rateLimiter:      newRateLimiter(),
		summaryCache:     cache.NewLRUCache[summaryResponse](500, 30*time.Second),
		stopCacheCleanup: make(chan struct{}),
	}

	// Start periodic cache cleanup
	go s.startCacheCleanup()

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Tiny cache for static assets
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /auth/signin", s.withSecurityHeaders(s.handleSignIn))
	mux.HandleFunc("GET /auth/google", s.withSecurityHeaders(s.handleGoogleRedirect))
	mux.HandleFunc("GET /auth/callback", s.withSecurityHeaders(s.handleGoogleCallback))
	mux.HandleFunc("POST /auth/signout", s.withSecurityHeaders(s.handleSignOut))

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.protected(s.handleDashboard)))
	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.protected(s.handleSummary)))
	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.protected(s.handleListTransactions)))
	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.protected(s.handleCreateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurityHeaders(s.protected(s.handleDeleteTransaction)))
	mux.HandleFunc("GET /api/stream", s.withSecurityHeaders(s.protected(s.handleStream)))

	traced := trace.NewMiddleware(extractClientIP)
	s.Server = http.Server{
		Addr:    addr,
		Handler: traced.Middleware(mux),
	}

	return s
}

// protected wraps a handler with the session check. Unauthenticated API
// calls get a 401, page loads a redirect to the sign-in page.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	guarded := s.sessions.RequireSession(next)
	return guarded.ServeHTTP
}

// startCacheCleanup evicts expired summary payloads in the background.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "summary_entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// extractClientIP resolves the caller address, considering proxies.
func extractClientIP(r *http.Request) string {
	clientIP := r.Header.Get("X-Forwarded-For")
	if clientIP == "" {
		clientIP = r.Header.Get("X-Real-IP")
	}
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}
	return clientIP
}

// withSecurityHeaders adds security headers and rate limiting to responses.
// Request logging lives in the trace middleware wrapping the whole mux.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)

		// Apply rate limiting to mutations
		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https://*.googleusercontent.com; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateSummary(user string) {
	s.summaryCache.Delete(user)
}

// buildSummary computes the dashboard aggregates from one snapshot.
func buildSummary(txs []core.Transaction, ref time.Time) summaryResponse {
	monthly := core.MonthlySummary(txs, ref)
	resp := summaryResponse{
		Balance: core.Balance(txs).Units(),
		Months:  monthly.Months,
		Income:  make([]float64, len(monthly.Income)),
		Expense: make([]float64, len(monthly.Expense)),
	}
	for i := range monthly.Income {
		resp.Income[i] = monthly.Income[i].Units()
		resp.Expense[i] = monthly.Expense[i].Units()
	}
	resp.IncomeByCategory = breakdownJSON(core.CategoryBreakdown(txs, core.Income))
	resp.ExpenseByCategory = breakdownJSON(core.CategoryBreakdown(txs, core.Expense))
	return resp
}
