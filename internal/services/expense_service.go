package services

import (
	"context"
	"errors"
	"fmt"

	"spesetools/internal/amqp"
	"spesetools/internal/core"
	"spesetools/internal/log"
)

// EventPublisher announces committed expense changes.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type closer interface {
	Close() error
}

// ExpenseService runs the four expense operations: validate the input, touch
// the store once, then announce the change. Event publication is best effort.
type ExpenseService struct {
	store  core.ExpenseStore
	events EventPublisher
	logger *log.Logger
}

// NewExpenseService wires a store and an optional publisher. A nil logger
// discards output.
func NewExpenseService(store core.ExpenseStore, events EventPublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		store:  store,
		events: events,
		logger: logger.WithComponent(log.ComponentExpense),
	}
}

func (s *ExpenseService) AddExpense(ctx context.Context, in core.AddExpenseInput) (core.Expense, error) {
	ne, err := in.Validate()
	if err != nil {
		return core.Expense{}, err
	}

	e, err := s.store.Create(ctx, ne)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created", s.fields(log.OpCreate, e)...)
	s.publish(ctx, amqp.EventExpenseCreated, e)
	return e, nil
}

// ListExpenses returns the filtered, sorted and truncated expenses together
// with a summary of exactly the returned items.
func (s *ExpenseService) ListExpenses(ctx context.Context, in core.ListExpensesInput) (core.ExpenseList, error) {
	q, err := in.Validate()
	if err != nil {
		return core.ExpenseList{}, err
	}

	items, err := s.store.Query(ctx, q)
	if err != nil {
		return core.ExpenseList{}, fmt.Errorf("list expenses: %w", err)
	}
	if items == nil {
		items = []core.Expense{}
	}

	s.logger.DebugContext(ctx, "Expenses listed",
		log.FieldOperation, log.OpList,
		log.FieldCount, len(items))

	return core.ExpenseList{Items: items, Summary: core.Summarize(items)}, nil
}

// UpdateExpense applies a partial update. The id is checked before the
// patch so a missing expense wins over an empty patch.
func (s *ExpenseService) UpdateExpense(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error) {
	id, patch, err := in.Validate()
	if err != nil {
		return core.Expense{}, err
	}

	if _, err := s.store.Get(ctx, id); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if patch.IsEmpty() {
		return core.Expense{}, core.ErrNoFieldsProvided
	}

	e, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated", s.fields(log.OpUpdate, e)...)
	s.publish(ctx, amqp.EventExpenseUpdated, e)
	return e, nil
}

// DeleteExpense removes the expense and returns it as it was just before.
func (s *ExpenseService) DeleteExpense(ctx context.Context, in core.DeleteExpenseInput) (core.Expense, error) {
	id, err := in.Validate()
	if err != nil {
		return core.Expense{}, err
	}

	e, err := s.store.Delete(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted", s.fields(log.OpDelete, e)...)
	s.publish(ctx, amqp.EventExpenseDeleted, e)
	return e, nil
}

// Ping reports whether the store is reachable. Stores without a health
// check are always ready.
func (s *ExpenseService) Ping(ctx context.Context) error {
	if p, ok := s.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.events == nil {
		return
	}
	ev := amqp.NewExpenseEvent(t, e)
	if err := s.events.PublishExpenseEvent(ctx, ev); err != nil {
		// The change is committed; a lost event must not fail the call
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldEventType, t,
			log.FieldEventID, ev.ID,
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
	}
}

func (s *ExpenseService) fields(op string, e core.Expense) []any {
	return log.NewFields().
		WithOperation(op).
		WithExpense(e.ID, e.Amount.Cents, e.ExpenseDate.String(), string(e.PaymentMethod)).
		ToSlice()
}

// Close closes the store and the publisher when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.store.(closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.events.(closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
