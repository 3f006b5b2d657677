package memory

import (
	"context"
	"errors"
	"testing"

	"mamon/internal/core"
	"mamon/internal/store"
)

func tx(user, date string) core.Transaction {
	return core.Transaction{
		User:     user,
		Type:     core.Expense,
		Category: "Food",
		Amount:   core.Money{Cents: 1000},
		Date:     date,
	}
}

func TestCreateAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.Create(ctx, tx("ada@example.com", "2026-08-01"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id2, err := s.Create(ctx, tx("ada@example.com", "2026-08-15"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("ids not unique: %s", id1)
	}

	got, err := s.ListByUser(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Date != "2026-08-15" || got[1].Date != "2026-08-01" {
		t.Fatalf("order = %s, %s; want newest first", got[0].Date, got[1].Date)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := New()
	bad := tx("ada@example.com", "2026-08-01")
	bad.Category = "Yachts"

	if _, err := s.Create(context.Background(), bad); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("Create: got %v, want ErrUnknownCategory", err)
	}
	got, _ := s.ListByUser(context.Background(), "ada@example.com")
	if len(got) != 0 {
		t.Fatalf("invalid transaction was stored: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Create(ctx, tx("ada@example.com", "2026-08-01"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Deleting someone else's transaction must not work.
	if err := s.Delete(ctx, "grace@example.com", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-user delete: got %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "ada@example.com", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "ada@example.com", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestListIsolatesUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Create(ctx, tx("ada@example.com", "2026-08-01")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.ListByUser(ctx, "grace@example.com")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("other user sees %d transactions, want 0", len(got))
	}
}
