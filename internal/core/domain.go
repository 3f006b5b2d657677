package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

// DateLayout is the wire format for transaction dates.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record owned by one user.
	// Records are immutable after creation; there is no edit operation.
	Transaction struct {
		ID       string
		User     string // owning account identifier (email)
		Type     TransactionType
		Category string
		Amount   Money
		Date     string // ISO 8601 YYYY-MM-DD, kept raw and parsed on demand
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnknownCategory = errors.New("unknown category for type")
	ErrEmptyUser       = errors.New("empty user")
	ErrBusy            = errors.New("another operation is in flight")
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

// ParseDate parses an ISO 8601 calendar date. Stored transactions may carry
// malformed dates; callers that aggregate must tolerate the error.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate enforces the form-level rules: known type, category drawn from
// that type's fixed set, amount of at least one whole unit, parsable date.
func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.User) == "" {
		return ErrEmptyUser
	}
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if !ValidCategory(tx.Type, tx.Category) {
		return ErrUnknownCategory
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if tx.Amount.Cents < 100 {
		// Form minimum is one whole unit.
		return ErrInvalidAmount
	}
	if _, err := ParseDate(tx.Date); err != nil {
		return err
	}
	return nil
}
