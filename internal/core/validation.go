package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Violation describes one rejected input field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated field of a request, at most one
// message per field.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a violation unless the field already has one.
func (e *ValidationError) Add(field, message string) {
	if e.Has(field) {
		return
	}
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Merge adds the violations of err when it is a *ValidationError.
func (e *ValidationError) Merge(err error) {
	var other *ValidationError
	if errors.As(err, &other) && other != nil {
		for _, v := range other.Violations {
			e.Add(v.Field, v.Message)
		}
	}
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

var paymentMethodChoices = strings.Join(PaymentMethodNames(), ", ")

type (
	AddExpenseInput struct {
		Title         *string
		Description   *string
		Amount        *decimal.Decimal
		ExpenseDate   *string
		PaymentMethod *string
	}

	ListExpensesInput struct {
		StartDate     *string
		EndDate       *string
		PaymentMethod *string
		Search        *string
		Limit         *int64
		SortBy        *string
		SortOrder     *string
	}

	UpdateExpenseInput struct {
		ID            *int64
		Title         *string
		Description   *string
		Amount        *decimal.Decimal
		ExpenseDate   *string
		PaymentMethod *string
	}

	DeleteExpenseInput struct {
		ID *int64
	}
)

// Validate checks the full field set required to create an expense.
func (in AddExpenseInput) Validate() (NewExpense, error) {
	verr := &ValidationError{}
	var out NewExpense

	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		verr.Add("title", "Expense title is required. Please provide a descriptive title for your expense.")
	} else if title, ok := checkTitle(verr, *in.Title); ok {
		out.Title = title
	}

	if in.Description != nil && checkDescription(verr, *in.Description) {
		desc := *in.Description
		out.Description = &desc
	}

	if in.Amount == nil {
		verr.Add("amount", "Expense amount is required. Please specify how much you spent.")
	} else if m, ok := checkAmount(verr, *in.Amount); ok {
		out.Amount = m
	}

	if in.ExpenseDate == nil {
		verr.Add("expense_date", "Expense date is required. Please specify when the expense occurred.")
	} else if d, ok := checkDate(verr, "expense_date", *in.ExpenseDate); ok {
		out.ExpenseDate = d
	}

	if in.PaymentMethod == nil {
		verr.Add("payment_method", "Payment method is required. Choose from: "+paymentMethodChoices+".")
	} else if pm, ok := checkPaymentMethod(verr, *in.PaymentMethod); ok {
		out.PaymentMethod = pm
	}

	if err := verr.Err(); err != nil {
		return NewExpense{}, err
	}
	return out, nil
}

// Validate checks the listing filters and returns the query with defaults applied.
func (in ListExpensesInput) Validate() (ExpenseQuery, error) {
	verr := &ValidationError{}
	q := DefaultQuery()

	if in.StartDate != nil {
		if d, ok := checkDate(verr, "start_date", *in.StartDate); ok {
			q.StartDate = &d
		}
	}
	if in.EndDate != nil {
		if d, ok := checkDate(verr, "end_date", *in.EndDate); ok {
			q.EndDate = &d
		}
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(q.StartDate.Time) {
		verr.Add("end_date", "The end_date must be a date after or equal to start_date.")
	}

	if in.PaymentMethod != nil {
		if pm, ok := checkPaymentMethod(verr, *in.PaymentMethod); ok {
			q.PaymentMethod = &pm
		}
	}

	if in.Search != nil {
		if utf8.RuneCountInString(*in.Search) > MaxSearchLength {
			verr.Add("search", fmt.Sprintf("The search may not be greater than %d characters.", MaxSearchLength))
		} else {
			q.Search = *in.Search
		}
	}

	if in.Limit != nil {
		if *in.Limit < 1 || *in.Limit > MaxLimit {
			verr.Add("limit", fmt.Sprintf("The limit must be between 1 and %d.", MaxLimit))
		} else {
			q.Limit = int(*in.Limit)
		}
	}

	if in.SortBy != nil {
		if f := SortField(*in.SortBy); f.IsValid() {
			q.SortBy = f
		} else {
			verr.Add("sort_by", "The selected sort_by is invalid. Choose from: "+strings.Join(SortFieldNames(), ", ")+".")
		}
	}

	if in.SortOrder != nil {
		if o := SortOrder(*in.SortOrder); o.IsValid() {
			q.SortOrder = o
		} else {
			verr.Add("sort_order", "The selected sort_order is invalid. Choose from: "+strings.Join(SortOrderNames(), ", ")+".")
		}
	}

	if err := verr.Err(); err != nil {
		return ExpenseQuery{}, err
	}
	return q, nil
}

// Validate checks an update request. The returned patch may be empty; callers
// decide how to treat that.
func (in UpdateExpenseInput) Validate() (int64, ExpensePatch, error) {
	verr := &ValidationError{}
	var patch ExpensePatch

	if in.ID == nil {
		verr.Add("id", "Expense ID is required to update an expense.")
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			verr.Add("title", "The title must not be empty.")
		} else if title, ok := checkTitle(verr, *in.Title); ok {
			patch.Title = &title
		}
	}

	if in.Description != nil && checkDescription(verr, *in.Description) {
		desc := *in.Description
		patch.Description = &desc
	}

	if in.Amount != nil {
		if m, ok := checkAmount(verr, *in.Amount); ok {
			patch.Amount = &m
		}
	}

	if in.ExpenseDate != nil {
		if d, ok := checkDate(verr, "expense_date", *in.ExpenseDate); ok {
			patch.ExpenseDate = &d
		}
	}

	if in.PaymentMethod != nil {
		if pm, ok := checkPaymentMethod(verr, *in.PaymentMethod); ok {
			patch.PaymentMethod = &pm
		}
	}

	if err := verr.Err(); err != nil {
		return 0, ExpensePatch{}, err
	}
	return *in.ID, patch, nil
}

func (in DeleteExpenseInput) Validate() (int64, error) {
	if in.ID == nil {
		verr := &ValidationError{}
		verr.Add("id", "Expense ID is required to delete an expense.")
		return 0, verr
	}
	return *in.ID, nil
}

func checkTitle(verr *ValidationError, title string) (string, bool) {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		verr.Add("title", fmt.Sprintf("The title may not be greater than %d characters.", MaxTitleLength))
		return "", false
	}
	return title, true
}

func checkDescription(verr *ValidationError, desc string) bool {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		verr.Add("description", fmt.Sprintf("The description may not be greater than %d characters.", MaxDescriptionLength))
		return false
	}
	return true
}

func checkAmount(verr *ValidationError, amount decimal.Decimal) (Money, bool) {
	m, err := MoneyFromDecimal(amount)
	if err != nil {
		verr.Add("amount", "Expense amount must be greater than 0.")
		return Money{}, false
	}
	return m, true
}

func checkDate(verr *ValidationError, field, value string) (Date, bool) {
	d, err := ParseDate(value)
	if err != nil {
		verr.Add(field, fmt.Sprintf("The %s is not a valid date. Use the YYYY-MM-DD format.", field))
		return Date{}, false
	}
	return d, true
}

func checkPaymentMethod(verr *ValidationError, value string) (PaymentMethod, bool) {
	pm := PaymentMethod(value)
	if !pm.IsValid() {
		verr.Add("payment_method", "The selected payment_method is invalid. Choose from: "+paymentMethodChoices+".")
		return "", false
	}
	return pm, true
}
