package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mamon/internal/amqp"
	"mamon/internal/core"
	"mamon/internal/live"
	"mamon/internal/store"
)

// TransactionService orchestrates transaction mutations: store write, event
// publish, live-hub notification, and the single in-flight guard.
type TransactionService struct {
	store  store.Backend
	events *amqp.Client // optional
	hub    *live.Hub    // optional

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewTransactionService(backend store.Backend, events *amqp.Client, hub *live.Hub) *TransactionService {
	return &TransactionService{
		store:    backend,
		events:   events,
		hub:      hub,
		inflight: make(map[string]struct{}),
	}
}

// begin marks the user busy. It reports false when a prior create or delete
// from the same session is still outstanding.
func (s *TransactionService) begin(user string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[user]; busy {
		return false
	}
	s.inflight[user] = struct{}{}
	return true
}

// end clears the busy flag. Runs on success and failure alike so a failed
// store write can never leave the session permanently blocked.
func (s *TransactionService) end(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, user)
}

// Create validates and persists a new transaction. A second mutation issued
// while one is outstanding returns core.ErrBusy without touching the store.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}

	if !s.begin(tx.User) {
		slog.WarnContext(ctx, "Mutation rejected, another operation in flight", "user", tx.User)
		return "", core.ErrBusy
	}
	defer s.end(tx.User)

	id, err := s.store.Create(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	s.publishEvent(ctx, id, tx.User, amqp.ActionCreated)
	s.notify(ctx, tx.User)
	return id, nil
}

// Delete removes the user's transaction. There is no optimistic local
// removal; subscribers see the change through the next live-query push.
func (s *TransactionService) Delete(ctx context.Context, user, id string) error {
	if !s.begin(user) {
		slog.WarnContext(ctx, "Mutation rejected, another operation in flight", "user", user)
		return core.ErrBusy
	}
	defer s.end(user)

	if err := s.store.Delete(ctx, user, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publishEvent(ctx, id, user, amqp.ActionDeleted)
	s.notify(ctx, user)
	return nil
}

// List returns the user's full current working set, newest date first.
func (s *TransactionService) List(ctx context.Context, user string) ([]core.Transaction, error) {
	return s.store.ListByUser(ctx, user)
}

// publishEvent is best-effort: the broker being down never fails a request.
func (s *TransactionService) publishEvent(ctx context.Context, id, user, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(id, user, action)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", id, "action", action, "error", err)
	}
}

func (s *TransactionService) notify(ctx context.Context, user string) {
	if s.hub == nil {
		return
	}
	s.hub.Notify(ctx, user)
}
