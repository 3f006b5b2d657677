// Package live implements the live-query subscription hub: every committed
// mutation re-queries the store and fans the full current result set out to
// that user's subscribers. Deliveries are whole snapshots, never diffs.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mamon/internal/core"
	"mamon/internal/store"
)

type Hub struct {
	lister store.TransactionLister

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is a standing watch on one user's transaction set. C carries
// the latest full snapshot; a slow consumer only ever misses intermediate
// states, never the newest one. Cancel is safe to call more than once but
// releases the watch exactly once.
type Subscription struct {
	C <-chan []core.Transaction

	ch   chan []core.Transaction
	hub  *Hub
	user string
	once sync.Once
}

func NewHub(lister store.TransactionLister) *Hub {
	return &Hub{
		lister: lister,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a watch for the user and delivers the current snapshot
// on the returned channel. Registration precedes the snapshot query: a
// mutation committing in between fires Notify against the already-registered
// subscription, so no committed write can fall into an unobserved gap.
func (h *Hub) Subscribe(ctx context.Context, user string) (*Subscription, error) {
	sub := &Subscription{
		ch:   make(chan []core.Transaction, 1),
		hub:  h,
		user: user,
	}
	sub.C = sub.ch

	h.mu.Lock()
	if h.subs[user] == nil {
		h.subs[user] = make(map[*Subscription]struct{})
	}
	h.subs[user][sub] = struct{}{}
	h.mu.Unlock()

	snapshot, err := h.lister.ListByUser(ctx, user)
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("initial snapshot for %s: %w", user, err)
	}

	// Deliver under the hub lock so the send cannot interleave with a
	// Notify push. A snapshot Notify delivered first stays; it is at
	// least as fresh as the one queried here.
	h.mu.Lock()
	select {
	case sub.ch <- snapshot:
	default:
	}
	h.mu.Unlock()

	slog.DebugContext(ctx, "Live subscription opened", "user", user)
	return sub, nil
}

// Cancel releases the watch. The snapshot channel is closed so consumers
// ranging over it terminate.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.user]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.user)
			}
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Notify re-queries the user's working set and pushes it to every open
// subscription. Called by the transaction service after each committed
// create or delete. A listing failure is logged and skipped; subscribers
// keep their previous snapshot.
func (h *Hub) Notify(ctx context.Context, user string) {
	h.mu.Lock()
	n := len(h.subs[user])
	h.mu.Unlock()
	if n == 0 {
		return
	}

	snapshot, err := h.lister.ListByUser(ctx, user)
	if err != nil {
		slog.ErrorContext(ctx, "Live snapshot refresh failed", "user", user, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[user] {
		// Replace a stale undelivered snapshot rather than blocking.
		select {
		case sub.ch <- snapshot:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snapshot:
			default:
			}
		}
	}
}
