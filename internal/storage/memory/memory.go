// Package memory provides an in-process core.ExpenseStore for tests and
// single-process runs without a database file.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spesetools/internal/core"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Expense
	now    func() time.Time
}

var _ core.ExpenseStore = (*Store)(nil)

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock uses now for created_at/updated_at.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		nextID: 1,
		items:  make(map[int64]core.Expense),
		now:    now,
	}
}

func (s *Store) Create(_ context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Amount.Validate(); err != nil {
		return core.Expense{}, err
	}
	if !e.PaymentMethod.IsValid() {
		return core.Expense{}, fmt.Errorf("invalid payment method %q", e.PaymentMethod)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	exp := core.Expense{
		ID:            s.nextID,
		Title:         e.Title,
		Description:   copyString(e.Description),
		Amount:        e.Amount,
		ExpenseDate:   e.ExpenseDate,
		PaymentMethod: e.PaymentMethod,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	s.items[exp.ID] = exp
	s.nextID++
	return clone(exp), nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.items[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
	}
	return clone(exp), nil
}

func (s *Store) Update(_ context.Context, id int64, p core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.items[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, core.ErrNotFound)
	}
	exp = p.Apply(exp)
	exp.UpdatedAt = s.now().UTC()
	if exp.UpdatedAt.Before(exp.CreatedAt) {
		exp.UpdatedAt = exp.CreatedAt
	}
	s.items[id] = exp
	return clone(exp), nil
}

func (s *Store) Delete(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.items[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}
	delete(s.items, id)
	return clone(exp), nil
}

func (s *Store) Query(_ context.Context, q core.ExpenseQuery) ([]core.Expense, error) {
	q = q.Normalized()

	s.mu.Lock()
	out := make([]core.Expense, 0, len(s.items))
	for _, exp := range s.items {
		if q.Matches(exp) {
			out = append(out, clone(exp))
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return q.Less(out[i], out[j]) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Len reports how many expenses are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func clone(e core.Expense) core.Expense {
	e.Description = copyString(e.Description)
	return e
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
