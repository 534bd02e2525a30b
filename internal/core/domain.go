package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	Cash          PaymentMethod = "cash"
	CreditCard    PaymentMethod = "credit_card"
	DebitCard     PaymentMethod = "debit_card"
	BankTransfer  PaymentMethod = "bank_transfer"
	DigitalWallet PaymentMethod = "digital_wallet"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"

	MaxTitleLength       = 255
	MaxDescriptionLength = 1000
	MaxSearchLength      = 255
)

type (
	PaymentMethod string

	Date struct {
		time.Time
	}

	// Expense is a stored expense record.
	Expense struct {
		ID            int64
		Title         string
		Description   *string
		Amount        Money
		ExpenseDate   Date
		PaymentMethod PaymentMethod
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// NewExpense holds the validated fields of an expense about to be created.
	NewExpense struct {
		Title         string
		Description   *string
		Amount        Money
		ExpenseDate   Date
		PaymentMethod PaymentMethod
	}

	// ExpensePatch holds the fields to change on an existing expense.
	// Nil fields are left untouched.
	ExpensePatch struct {
		Title         *string
		Description   *string
		Amount        *Money
		ExpenseDate   *Date
		PaymentMethod *PaymentMethod
	}
)

var (
	ErrNotFound         = errors.New("expense not found")
	ErrNoFieldsProvided = errors.New("no fields provided to update")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
)

// ExpenseStore is the persistence contract shared by every backend.
type ExpenseStore interface {
	Create(ctx context.Context, e NewExpense) (Expense, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Update(ctx context.Context, id int64, p ExpensePatch) (Expense, error)
	Delete(ctx context.Context, id int64) (Expense, error)
	Query(ctx context.Context, q ExpenseQuery) ([]Expense, error)
}

// PaymentMethods lists the accepted payment methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{Cash, CreditCard, DebitCard, BankTransfer, DigitalWallet}
}

// PaymentMethodNames returns the accepted payment methods as plain strings.
func PaymentMethodNames() []string {
	methods := PaymentMethods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return names
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case Cash, CreditCard, DebitCard, BankTransfer, DigitalWallet:
		return true
	default:
		return false
	}
}

func (m PaymentMethod) String() string {
	return string(m)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// FormatTimestamp renders a timestamp the way tool responses expose it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Amount == nil &&
		p.ExpenseDate == nil &&
		p.PaymentMethod == nil
}

// Apply returns a copy of e with the patch fields applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		desc := *p.Description
		e.Description = &desc
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.ExpenseDate != nil {
		e.ExpenseDate = *p.ExpenseDate
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	return e
}
