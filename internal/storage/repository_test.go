package storage

import (
	"context"
	"path/filepath"
	"testing"

	"spesetools/internal/core"
	"spesetools/internal/storage/storetest"
)

func newTestRepository(t *testing.T, clock *storetest.Clock) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "expenses.db")
	repo, err := NewSQLiteRepository(dbPath, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) core.ExpenseStore {
		return newTestRepository(t, clock)
	})
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "expenses.db")

	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	created, err := repo.Create(ctx, core.NewExpense{
		Title:         "Groceries",
		Amount:        core.Money{Cents: 1234},
		ExpenseDate:   core.NewDate(2024, 5, 1),
		PaymentMethod: core.DebitCard,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.Close()

	// Migrations must be idempotent on an existing database
	repo, err = NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Title != "Groceries" || got.Amount.Cents != 1234 {
		t.Fatalf("unexpected expense after reopen: %+v", got)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteRepository_RejectsInvalidRows(t *testing.T) {
	repo := newTestRepository(t, storetest.NewClock())
	ctx := context.Background()

	tests := []struct {
		name string
		e    core.NewExpense
	}{
		{"non-positive amount", core.NewExpense{Title: "x", Amount: core.Money{Cents: 0}, ExpenseDate: core.NewDate(2024, 1, 1), PaymentMethod: core.Cash}},
		{"unknown payment method", core.NewExpense{Title: "x", Amount: core.Money{Cents: 100}, ExpenseDate: core.NewDate(2024, 1, 1), PaymentMethod: "cheque"}},
		{"empty title", core.NewExpense{Title: "", Amount: core.Money{Cents: 100}, ExpenseDate: core.NewDate(2024, 1, 1), PaymentMethod: core.Cash}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.Create(ctx, tt.e); err == nil {
				t.Fatalf("expected constraint violation")
			}
		})
	}
}

func TestFoldCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Coffee", "coffee"},
		{"CAFÉ ÜRÜN", "café ürün"},
		{"100% juice_bar", "100% juice_bar"},
	}
	for _, tt := range tests {
		if got := foldCase(tt.in); got != tt.want {
			t.Errorf("foldCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
