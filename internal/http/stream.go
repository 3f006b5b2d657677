package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"mamon/internal/auth"
	"mamon/internal/core"
)

// streamPayload is one server-sent event: the full current working set plus
// the aggregates derived from it, so clients never recompute on their own.
type streamPayload struct {
	Transactions []transactionJSON `json:"transactions"`
	Summary      summaryResponse   `json:"summary"`
}

// handleStream pushes the user's full transaction snapshot over SSE whenever
// a mutation commits. Each event replaces the previous one wholesale.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.hub.Subscribe(r.Context(), principal.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Live subscription failed", "error", err, "user", principal.Email)
		writeError(w, http.StatusInternalServerError, "failed to open stream")
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Heartbeat keeps intermediaries from closing an idle stream.
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case snapshot, open := <-sub.C:
			if !open {
				return
			}
			if err := writeSnapshotEvent(w, snapshot); err != nil {
				slog.DebugContext(r.Context(), "Stream write failed, closing", "user", principal.Email, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snapshot []core.Transaction) error {
	payload := streamPayload{
		Transactions: transactionsJSON(snapshot),
		Summary:      buildSummary(snapshot, time.Now()),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: snapshot\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
