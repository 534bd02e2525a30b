package memory

import (
	"context"
	"sync"
	"testing"

	"spesetools/internal/core"
	"spesetools/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) core.ExpenseStore {
		return NewWithClock(clock.Now)
	})
}

func TestStoreReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	desc := "original"
	created, err := s.Create(ctx, core.NewExpense{
		Title:         "Book",
		Description:   &desc,
		Amount:        core.Money{Cents: 1500},
		ExpenseDate:   core.NewDate(2024, 4, 2),
		PaymentMethod: core.Cash,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	desc = "mutated input"
	*created.Description = "mutated output"

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got.Description != "original" {
		t.Fatalf("stored description leaked: %q", *got.Description)
	}
}

func TestStoreRejectsInvalidAmount(t *testing.T) {
	s := New()
	_, err := s.Create(context.Background(), core.NewExpense{
		Title:         "Free",
		Amount:        core.Money{},
		ExpenseDate:   core.NewDate(2024, 1, 1),
		PaymentMethod: core.Cash,
	})
	if err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if s.Len() != 0 {
		t.Fatalf("expected nothing stored, got %d", s.Len())
	}
}

func TestStoreConcurrentCreates(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, core.NewExpense{
				Title:         "parallel",
				Amount:        core.Money{Cents: 100},
				ExpenseDate:   core.NewDate(2024, 1, 1),
				PaymentMethod: core.Cash,
			})
			if err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Fatalf("expected 50 expenses, got %d", s.Len())
	}
	items, err := s.Query(ctx, core.ExpenseQuery{Limit: core.MaxLimit})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	seen := map[int64]bool{}
	for _, e := range items {
		if seen[e.ID] {
			t.Fatalf("duplicate id %d", e.ID)
		}
		seen[e.ID] = true
	}
}
