package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mamon/internal/core"
	"mamon/internal/store"
)

// Store is an in-memory transaction store for local development and tests.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// Create stores the transaction and assigns it a fresh id.
func (s *Store) Create(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	tx.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return tx.ID, nil
}

// Delete removes the user's transaction by id.
func (s *Store) Delete(_ context.Context, user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id && tx.User == user {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ListByUser returns the user's transactions sorted by date descending.
// Ties fall back to insertion order, newest first.
func (s *Store) ListByUser(_ context.Context, user string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].User == user {
			out = append(out, s.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out, nil
}
