package http

import (
	"log/slog"
	"net/http"
	"time"

	"mamon/internal/auth"
	"mamon/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Name              string
		Email             string
		Picture           string
		IncomeCategories  []core.Category
		ExpenseCategories []core.Category
		Today             string
	}{
		Name:              principal.Name,
		Email:             principal.Email,
		Picture:           principal.Picture,
		IncomeCategories:  core.CategoriesFor(core.Income),
		ExpenseCategories: core.CategoriesFor(core.Expense),
		Today:             time.Now().Format(core.DateLayout),
	}

	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Dashboard template execution failed", "error", err, "template", "dashboard.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if payload, found := s.summaryCache.Get(principal.Email); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "user", principal.Email)
		writeJSON(w, http.StatusOK, payload)
		return
	}

	txs, err := s.svc.List(r.Context(), principal.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary listing failed", "error", err, "user", principal.Email)
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}

	payload := buildSummary(txs, time.Now())
	s.summaryCache.Set(principal.Email, payload)
	writeJSON(w, http.StatusOK, payload)
}
