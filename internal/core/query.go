package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SortByAmount      SortField = "amount"
	SortByExpenseDate SortField = "expense_date"
	SortByCreatedAt   SortField = "created_at"

	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"

	DefaultLimit = 20
	MaxLimit     = 100
)

type (
	SortField string
	SortOrder string

	// ExpenseQuery narrows, orders and truncates a listing. Zero-valued
	// filters are not applied.
	ExpenseQuery struct {
		StartDate     *Date
		EndDate       *Date
		PaymentMethod *PaymentMethod
		Search        string
		SortBy        SortField
		SortOrder     SortOrder
		Limit         int
	}

	Summary struct {
		TotalCount    int
		TotalAmount   Amount
		AverageAmount Amount
	}

	ExpenseList struct {
		Items   []Expense
		Summary Summary
	}
)

func SortFieldNames() []string {
	return []string{string(SortByAmount), string(SortByExpenseDate), string(SortByCreatedAt)}
}

func SortOrderNames() []string {
	return []string{string(Ascending), string(Descending)}
}

func (f SortField) IsValid() bool {
	switch f {
	case SortByAmount, SortByExpenseDate, SortByCreatedAt:
		return true
	default:
		return false
	}
}

func (o SortOrder) IsValid() bool {
	return o == Ascending || o == Descending
}

// DefaultQuery returns a query with the listing defaults applied.
func DefaultQuery() ExpenseQuery {
	return ExpenseQuery{
		SortBy:    SortByExpenseDate,
		SortOrder: Descending,
		Limit:     DefaultLimit,
	}
}

// Normalized fills in defaults for unset sort and limit values.
func (q ExpenseQuery) Normalized() ExpenseQuery {
	if !q.SortBy.IsValid() {
		q.SortBy = SortByExpenseDate
	}
	if !q.SortOrder.IsValid() {
		q.SortOrder = Descending
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		q.Limit = DefaultLimit
	}
	return q
}

// Matches reports whether e passes every filter of q.
func (q ExpenseQuery) Matches(e Expense) bool {
	if q.StartDate != nil && e.ExpenseDate.Before(q.StartDate.Time) {
		return false
	}
	if q.EndDate != nil && e.ExpenseDate.After(q.EndDate.Time) {
		return false
	}
	if q.PaymentMethod != nil && e.PaymentMethod != *q.PaymentMethod {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		inTitle := strings.Contains(strings.ToLower(e.Title), needle)
		inDesc := e.Description != nil && strings.Contains(strings.ToLower(*e.Description), needle)
		if !inTitle && !inDesc {
			return false
		}
	}
	return true
}

// Less orders a before b according to the query sort, breaking ties by id.
func (q ExpenseQuery) Less(a, b Expense) bool {
	var cmp int
	switch q.SortBy {
	case SortByAmount:
		cmp = compareInt64(a.Amount.Cents, b.Amount.Cents)
	case SortByCreatedAt:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	default:
		cmp = a.ExpenseDate.Compare(b.ExpenseDate.Time)
	}
	if q.SortOrder == Ascending {
		cmp = -cmp
	}
	if cmp != 0 {
		return cmp > 0
	}
	return a.ID < b.ID
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Summarize computes totals over exactly the given expenses. Totals are
// accumulated as decimals so large amounts cannot overflow.
func Summarize(items []Expense) Summary {
	total := decimal.Zero
	for _, e := range items {
		total = total.Add(e.Amount.Decimal())
	}
	s := Summary{TotalCount: len(items), TotalAmount: NewAmount(total)}
	if s.TotalCount == 0 {
		return s
	}
	s.AverageAmount = NewAmount(total.Div(decimal.NewFromInt(int64(s.TotalCount))).Round(2))
	return s
}
