// Package storetest holds behaviour checks every core.ExpenseStore must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"spesetools/internal/core"
)

// Clock is a manually advanced time source for stores under test.
type Clock struct {
	t time.Time
}

func NewClock() *Clock {
	return &Clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time { return c.t }

func (c *Clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// Factory builds an empty store driven by clock.
type Factory func(t *testing.T, clock *Clock) core.ExpenseStore

func strPtr(s string) *string { return &s }

func newExpense(title string, cents int64, date core.Date, pm core.PaymentMethod) core.NewExpense {
	return core.NewExpense{
		Title:         title,
		Amount:        core.Money{Cents: cents},
		ExpenseDate:   date,
		PaymentMethod: pm,
	}
}

func mustCreate(t *testing.T, s core.ExpenseStore, e core.NewExpense) core.Expense {
	t.Helper()
	got, err := s.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("create %q: %v", e.Title, err)
	}
	return got
}

func ids(items []core.Expense) []int64 {
	out := make([]int64, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run executes the whole suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("round trip", func(t *testing.T) { testRoundTrip(t, newStore) })
	t.Run("update", func(t *testing.T) { testUpdate(t, newStore) })
	t.Run("delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("ids are never reused", func(t *testing.T) { testIDsNotReused(t, newStore) })
	t.Run("query filters", func(t *testing.T) { testQueryFilters(t, newStore) })
	t.Run("query sort and limit", func(t *testing.T) { testQuerySortAndLimit(t, newStore) })
}

func testRoundTrip(t *testing.T, newStore Factory) {
	ctx := context.Background()
	clock := NewClock()
	s := newStore(t, clock)

	in := newExpense("Lunch at Restaurant", 4550, core.NewDate(2024, 1, 15), core.CreditCard)
	in.Description = strPtr("Business lunch with client")
	created := mustCreate(t, s, in)

	if created.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}
	if !created.CreatedAt.Equal(clock.Now()) || !created.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("timestamps not set from clock: %v %v", created.CreatedAt, created.UpdatedAt)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != in.Title || got.Amount != in.Amount || got.PaymentMethod != in.PaymentMethod {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.ExpenseDate.String() != "2024-01-15" {
		t.Fatalf("date mismatch: %s", got.ExpenseDate)
	}
	if got.Description == nil || *got.Description != "Business lunch with client" {
		t.Fatalf("description mismatch: %v", got.Description)
	}

	noDesc := mustCreate(t, s, newExpense("Bus", 200, core.NewDate(2024, 1, 16), core.Cash))
	if noDesc.Description != nil {
		t.Fatalf("expected nil description, got %q", *noDesc.Description)
	}

	if _, err := s.Get(ctx, 99999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUpdate(t *testing.T, newStore Factory) {
	ctx := context.Background()
	clock := NewClock()
	s := newStore(t, clock)

	created := mustCreate(t, s, newExpense("Coffee", 350, core.NewDate(2024, 1, 15), core.Cash))
	clock.Advance(time.Hour)

	title := "Espresso"
	updated, err := s.Update(ctx, created.ID, core.ExpensePatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Espresso" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if updated.Amount != created.Amount || updated.PaymentMethod != created.PaymentMethod ||
		!updated.ExpenseDate.Equal(created.ExpenseDate.Time) {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("updated_at not refreshed: %v", updated.UpdatedAt)
	}

	amount := core.Money{Cents: 9999}
	date := core.NewDate(2024, 2, 1)
	pm := core.DigitalWallet
	desc := "with milk"
	updated, err = s.Update(ctx, created.ID, core.ExpensePatch{
		Amount:        &amount,
		ExpenseDate:   &date,
		PaymentMethod: &pm,
		Description:   &desc,
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if updated.Title != "Espresso" || updated.Amount.Cents != 9999 || updated.PaymentMethod != core.DigitalWallet {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.Description == nil || *updated.Description != "with milk" {
		t.Fatalf("description not updated: %v", updated.Description)
	}

	// A clock running backwards never puts updated_at before created_at
	clock.Advance(-48 * time.Hour)
	updated, err = s.Update(ctx, created.ID, core.ExpensePatch{Title: &title})
	if err != nil {
		t.Fatalf("third update: %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updated_at %v before created_at %v", updated.UpdatedAt, updated.CreatedAt)
	}

	if _, err := s.Update(ctx, 99999, core.ExpensePatch{Title: &title}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	created := mustCreate(t, s, newExpense("Taxi", 2500, core.NewDate(2024, 1, 20), core.BankTransfer))

	deleted, err := s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != created.ID || deleted.Title != "Taxi" || deleted.Amount.Cents != 2500 {
		t.Fatalf("unexpected snapshot: %+v", deleted)
	}

	if _, err := s.Get(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.Delete(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testIDsNotReused(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	first := mustCreate(t, s, newExpense("a", 100, core.NewDate(2024, 1, 1), core.Cash))
	second := mustCreate(t, s, newExpense("b", 100, core.NewDate(2024, 1, 1), core.Cash))
	if _, err := s.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	third := mustCreate(t, s, newExpense("c", 100, core.NewDate(2024, 1, 1), core.Cash))
	if third.ID <= second.ID || third.ID <= first.ID {
		t.Fatalf("id reused: first=%d second=%d third=%d", first.ID, second.ID, third.ID)
	}
}

func testQueryFilters(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	a := mustCreate(t, s, newExpense("Coffee", 350, core.NewDate(2024, 1, 15), core.Cash))
	b := mustCreate(t, s, newExpense("Coffee", 420, core.NewDate(2024, 1, 16), core.CreditCard))
	withDesc := newExpense("Breakfast", 900, core.NewDate(2024, 1, 10), core.Cash)
	withDesc.Description = strPtr("bagel and coffee")
	c := mustCreate(t, s, withDesc)
	d := mustCreate(t, s, newExpense("100% juice_bar", 600, core.NewDate(2024, 2, 1), core.DebitCard))
	e := mustCreate(t, s, newExpense("Café Ürün", 500, core.NewDate(2024, 1, 5), core.CreditCard))

	cash := core.Cash
	start, end := core.NewDate(2024, 1, 15), core.NewDate(2024, 1, 16)

	tests := []struct {
		name string
		q    core.ExpenseQuery
		want []int64
	}{
		{"no filters", core.DefaultQuery(), []int64{d.ID, b.ID, a.ID, c.ID, e.ID}},
		{"payment method and search", core.ExpenseQuery{PaymentMethod: &cash, Search: "Coffee"}, []int64{a.ID, c.ID}},
		{"search is case-insensitive over title or description", core.ExpenseQuery{Search: "COFFEE"}, []int64{b.ID, a.ID, c.ID}},
		{"inclusive date range", core.ExpenseQuery{StartDate: &start, EndDate: &end}, []int64{b.ID, a.ID}},
		{"start only", core.ExpenseQuery{StartDate: &end}, []int64{d.ID, b.ID}},
		{"wildcards match literally", core.ExpenseQuery{Search: "0%"}, []int64{d.ID}},
		{"underscore matches literally", core.ExpenseQuery{Search: "e_b"}, []int64{d.ID}},
		{"percent alone", core.ExpenseQuery{Search: "%"}, []int64{d.ID}},
		{"non-ASCII search ignores case", core.ExpenseQuery{Search: "CAFÉ"}, []int64{e.ID}},
		{"non-ASCII lower-case needle", core.ExpenseQuery{Search: "ürün"}, []int64{e.ID}},
		{"no match", core.ExpenseQuery{Search: "tea"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.q)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if !sameIDs(ids(got), tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func testQuerySortAndLimit(t *testing.T, newStore Factory) {
	ctx := context.Background()
	clock := NewClock()
	s := newStore(t, clock)

	x := mustCreate(t, s, newExpense("x", 1000, core.NewDate(2024, 3, 1), core.Cash))
	clock.Advance(time.Minute)
	y := mustCreate(t, s, newExpense("y", 2000, core.NewDate(2024, 1, 1), core.Cash))
	clock.Advance(time.Minute)
	z := mustCreate(t, s, newExpense("z", 3000, core.NewDate(2024, 2, 1), core.Cash))
	clock.Advance(time.Minute)
	tie := mustCreate(t, s, newExpense("tie", 2000, core.NewDate(2024, 2, 1), core.Cash))

	tests := []struct {
		name string
		q    core.ExpenseQuery
		want []int64
	}{
		{"amount desc limit 2", core.ExpenseQuery{SortBy: core.SortByAmount, SortOrder: core.Descending, Limit: 2}, []int64{z.ID, y.ID}},
		{"amount asc ties by id", core.ExpenseQuery{SortBy: core.SortByAmount, SortOrder: core.Ascending, Limit: 10}, []int64{x.ID, y.ID, tie.ID, z.ID}},
		{"expense date desc ties by id", core.ExpenseQuery{SortBy: core.SortByExpenseDate, SortOrder: core.Descending, Limit: 10}, []int64{x.ID, z.ID, tie.ID, y.ID}},
		{"created at asc", core.ExpenseQuery{SortBy: core.SortByCreatedAt, SortOrder: core.Ascending, Limit: 10}, []int64{x.ID, y.ID, z.ID, tie.ID}},
		{"created at desc limit 1", core.ExpenseQuery{SortBy: core.SortByCreatedAt, SortOrder: core.Descending, Limit: 1}, []int64{tie.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.q)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if !sameIDs(ids(got), tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
		})
	}

	for i := 0; i < core.DefaultLimit+5; i++ {
		mustCreate(t, s, newExpense("bulk", 100, core.NewDate(2023, 1, 1), core.Cash))
	}
	got, err := s.Query(ctx, core.ExpenseQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != core.DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", core.DefaultLimit, len(got))
	}
}
