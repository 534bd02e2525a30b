package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spesetools/internal/core"
)

type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

// BindingKey routes every expense event to the queue.
const BindingKey = "expense.#"

func (t EventType) IsValid() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
		return true
	default:
		return false
	}
}

// ExpenseSnapshot is the state of the expense after (or, for deletes,
// just before) the change.
type ExpenseSnapshot struct {
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Amount        string  `json:"amount"`
	ExpenseDate   string  `json:"expense_date"`
	PaymentMethod string  `json:"payment_method"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ExpenseEvent announces a committed change to an expense.
type ExpenseEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	ExpenseID int64           `json:"expense_id"`
	Timestamp time.Time       `json:"timestamp"`
	Expense   ExpenseSnapshot `json:"expense"`
}

func NewExpenseEvent(eventType EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		ExpenseID: e.ID,
		Timestamp: time.Now().UTC(),
		Expense: ExpenseSnapshot{
			Title:         e.Title,
			Description:   e.Description,
			Amount:        e.Amount.String(),
			ExpenseDate:   e.ExpenseDate.String(),
			PaymentMethod: string(e.PaymentMethod),
			CreatedAt:     core.FormatTimestamp(e.CreatedAt),
			UpdatedAt:     core.FormatTimestamp(e.UpdatedAt),
		},
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", msg.ID, err)
	}
	return &msg, nil
}
