package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mamon/internal/auth"
	"mamon/internal/core"
	"mamon/internal/store"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	txs, err := s.svc.List(r.Context(), principal.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction listing failed", "error", err, "user", principal.Email)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, transactionsJSON(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	date := strings.TrimSpace(r.Form.Get("date"))
	if date == "" {
		date = time.Now().Format(core.DateLayout)
	}

	tx := core.Transaction{
		User:     principal.Email,
		Type:     core.TransactionType(strings.TrimSpace(r.Form.Get("type"))),
		Category: strings.TrimSpace(r.Form.Get("category")),
		Amount:   core.Money{Cents: cents},
		Date:     date,
	}

	id, err := s.svc.Create(r.Context(), tx)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBusy):
			writeError(w, http.StatusConflict, "another operation is in progress")
		case errors.Is(err, core.ErrInvalidType),
			errors.Is(err, core.ErrUnknownCategory),
			errors.Is(err, core.ErrInvalidAmount),
			errors.Is(err, core.ErrInvalidDate):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Transaction create failed", "error", err, "user", principal.Email)
			writeError(w, http.StatusInternalServerError, "failed to save transaction")
		}
		return
	}

	s.invalidateSummary(principal.Email)
	writeJSON(w, http.StatusCreated, struct {
		ID string `json:"id"`
	}{ID: id})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	if err := s.svc.Delete(r.Context(), principal.Email, id); err != nil {
		switch {
		case errors.Is(err, core.ErrBusy):
			writeError(w, http.StatusConflict, "another operation is in progress")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "transaction not found")
		default:
			slog.ErrorContext(r.Context(), "Transaction delete failed", "error", err, "user", principal.Email, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		}
		return
	}

	s.invalidateSummary(principal.Email)
	w.WriteHeader(http.StatusNoContent)
}
