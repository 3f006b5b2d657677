package store

import (
	"context"
	"errors"

	"mamon/internal/core"
)

// ErrNotFound is returned when a transaction id does not exist for the user.
var ErrNotFound = errors.New("transaction not found")

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// Create persists a new transaction and returns the assigned id.
		Create(ctx context.Context, tx core.Transaction) (id string, err error)
	}

	TransactionDeleter interface {
		// Delete removes the user's transaction by id.
		Delete(ctx context.Context, user, id string) error
	}

	// TransactionLister returns the full current working set for a user,
	// sorted by date descending. Live-query consumers treat each result
	// as a complete replacement, never a diff.
	TransactionLister interface {
		ListByUser(ctx context.Context, user string) ([]core.Transaction, error)
	}
)

// Backend is the unified store interface the rest of the app consumes.
type Backend interface {
	TransactionWriter
	TransactionDeleter
	TransactionLister
}
