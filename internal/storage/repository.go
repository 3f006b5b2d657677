package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mamon/internal/core"
	"mamon/internal/store"
)

type SQLiteRepository struct {
	db *sql.DB
}

// Compile-time conformance with the store ports.
var _ store.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create implements store.TransactionWriter.
func (r *SQLiteRepository) Create(ctx context.Context, tx core.Transaction) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_email, tx_type, category, amount_cents, tx_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, tx.User, string(tx.Type), tx.Category, tx.Amount.Cents, tx.Date)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"user", tx.User,
		"type", string(tx.Type),
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date)

	return id, nil
}

// Delete implements store.TransactionDeleter as a soft delete; the row stays
// for audit but drops out of every listing.
func (r *SQLiteRepository) Delete(ctx context.Context, user, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_email = ? AND deleted_at IS NULL`,
		id, user)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction soft deleted", "id", id, "user", user)
	return nil
}

// ListByUser implements store.TransactionLister: the full current working
// set for one user, newest date first.
func (r *SQLiteRepository) ListByUser(ctx context.Context, user string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_email, tx_type, category, amount_cents, tx_date
		FROM transactions
		WHERE user_email = ? AND deleted_at IS NULL
		ORDER BY tx_date DESC, created_at DESC`,
		user)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var txType string
		if err := rows.Scan(&tx.ID, &tx.User, &txType, &tx.Category, &tx.Amount.Cents, &tx.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(txType)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
