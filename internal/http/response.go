package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"mamon/internal/core"
)

type summaryResponse struct {
	Balance           float64        `json:"balance"`
	Months            []string       `json:"months"`
	Income            []float64      `json:"income"`
	Expense           []float64      `json:"expense"`
	IncomeByCategory  []categoryJSON `json:"incomeByCategory"`
	ExpenseByCategory []categoryJSON `json:"expenseByCategory"`
}

type categoryJSON struct {
	Label  string  `json:"label"`
	Color  string  `json:"color"`
	Amount float64 `json:"amount"`
}

type transactionJSON struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func breakdownJSON(b core.Breakdown) []categoryJSON {
	out := make([]categoryJSON, 0, len(b.Categories))
	for _, c := range b.Categories {
		out = append(out, categoryJSON{Label: c.Label, Color: c.Color, Amount: c.Amount.Units()})
	}
	return out
}

func transactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionJSON{
			ID:       tx.ID,
			Type:     string(tx.Type),
			Category: tx.Category,
			Amount:   tx.Amount.Units(),
			Date:     tx.Date,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
