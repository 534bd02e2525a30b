package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func intPtr(i int64) *int64 { return &i }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return messagesByField(verr)
}

func messagesByField(verr *ValidationError) map[string]string {
	out := make(map[string]string, len(verr.Violations))
	for _, v := range verr.Violations {
		out[v.Field] = v.Message
	}
	return out
}

func TestAddExpenseInputValidate(t *testing.T) {
	good := AddExpenseInput{
		Title:         strPtr("Lunch at Restaurant"),
		Description:   strPtr("Business lunch with client"),
		Amount:        decPtr("45.50"),
		ExpenseDate:   strPtr("2024-01-15"),
		PaymentMethod: strPtr("credit_card"),
	}
	ne, err := good.Validate()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if ne.Title != "Lunch at Restaurant" || ne.Amount.Cents != 4550 || ne.PaymentMethod != CreditCard {
		t.Fatalf("unexpected result %+v", ne)
	}
	if ne.ExpenseDate.String() != "2024-01-15" || ne.Description == nil {
		t.Fatalf("unexpected date/description %+v", ne)
	}

	tests := []struct {
		name   string
		mutate func(in *AddExpenseInput)
		fields []string
	}{
		{"zero amount", func(in *AddExpenseInput) { in.Amount = decPtr("0") }, []string{"amount"}},
		{"negative amount", func(in *AddExpenseInput) { in.Amount = decPtr("-5") }, []string{"amount"}},
		{"blank title", func(in *AddExpenseInput) { in.Title = strPtr("   ") }, []string{"title"}},
		{"long title", func(in *AddExpenseInput) { in.Title = strPtr(strings.Repeat("a", 256)) }, []string{"title"}},
		{"long description", func(in *AddExpenseInput) { in.Description = strPtr(strings.Repeat("d", 1001)) }, []string{"description"}},
		{"bad date", func(in *AddExpenseInput) { in.ExpenseDate = strPtr("2024-02-30") }, []string{"expense_date"}},
		{"bad payment method", func(in *AddExpenseInput) { in.PaymentMethod = strPtr("paypal") }, []string{"payment_method"}},
		{"everything missing", func(in *AddExpenseInput) { *in = AddExpenseInput{} }, []string{"title", "amount", "expense_date", "payment_method"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := good
			tt.mutate(&in)
			_, err := in.Validate()
			got := validationFields(t, err)
			if len(got) != len(tt.fields) {
				t.Fatalf("expected %d violations, got %v", len(tt.fields), got)
			}
			for _, f := range tt.fields {
				if _, ok := got[f]; !ok {
					t.Errorf("missing violation for %q: %v", f, got)
				}
			}
		})
	}
}

func TestAddExpenseInputTitleCountsRunes(t *testing.T) {
	in := AddExpenseInput{
		Title:         strPtr(strings.Repeat("é", 255)),
		Amount:        decPtr("1"),
		ExpenseDate:   strPtr("2024-01-15"),
		PaymentMethod: strPtr("cash"),
	}
	if _, err := in.Validate(); err != nil {
		t.Fatalf("255 runes should be accepted, got %v", err)
	}
}

func TestAddExpenseInputAmountMessage(t *testing.T) {
	in := AddExpenseInput{
		Title:         strPtr("x"),
		Amount:        decPtr("0"),
		ExpenseDate:   strPtr("2024-01-15"),
		PaymentMethod: strPtr("cash"),
	}
	_, err := in.Validate()
	got := validationFields(t, err)
	if got["amount"] != "Expense amount must be greater than 0." {
		t.Fatalf("unexpected message %q", got["amount"])
	}
}

func TestListExpensesInputValidate(t *testing.T) {
	q, err := ListExpensesInput{}.Validate()
	if err != nil {
		t.Fatalf("empty input should be valid: %v", err)
	}
	if q.SortBy != SortByExpenseDate || q.SortOrder != Descending || q.Limit != DefaultLimit {
		t.Fatalf("defaults not applied: %+v", q)
	}

	q, err = ListExpensesInput{
		StartDate:     strPtr("2024-01-01"),
		EndDate:       strPtr("2024-01-01"),
		PaymentMethod: strPtr("cash"),
		Search:        strPtr("coffee"),
		Limit:         intPtr(5),
		SortBy:        strPtr("amount"),
		SortOrder:     strPtr("asc"),
	}.Validate()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if q.Limit != 5 || q.SortBy != SortByAmount || q.SortOrder != Ascending || *q.PaymentMethod != Cash {
		t.Fatalf("unexpected query %+v", q)
	}

	tests := []struct {
		name  string
		in    ListExpensesInput
		field string
	}{
		{"start after end", ListExpensesInput{StartDate: strPtr("2024-02-01"), EndDate: strPtr("2024-01-01")}, "end_date"},
		{"bad start", ListExpensesInput{StartDate: strPtr("yesterday")}, "start_date"},
		{"limit zero", ListExpensesInput{Limit: intPtr(0)}, "limit"},
		{"limit too high", ListExpensesInput{Limit: intPtr(101)}, "limit"},
		{"sort by title", ListExpensesInput{SortBy: strPtr("title")}, "sort_by"},
		{"sort sideways", ListExpensesInput{SortOrder: strPtr("up")}, "sort_order"},
		{"bad payment method", ListExpensesInput{PaymentMethod: strPtr("cheque")}, "payment_method"},
		{"long search", ListExpensesInput{Search: strPtr(strings.Repeat("s", 256))}, "search"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Validate()
			got := validationFields(t, err)
			if len(got) != 1 {
				t.Fatalf("expected one violation, got %v", got)
			}
			if _, ok := got[tt.field]; !ok {
				t.Fatalf("expected violation on %q, got %v", tt.field, got)
			}
		})
	}
}

func TestListExpensesInputCollectsAllViolations(t *testing.T) {
	_, err := ListExpensesInput{
		StartDate: strPtr("nope"),
		Limit:     intPtr(1000),
		SortBy:    strPtr("id"),
	}.Validate()
	got := validationFields(t, err)
	for _, f := range []string{"start_date", "limit", "sort_by"} {
		if _, ok := got[f]; !ok {
			t.Errorf("missing violation for %q: %v", f, got)
		}
	}
}

func TestUpdateExpenseInputValidate(t *testing.T) {
	id, patch, err := UpdateExpenseInput{ID: intPtr(7), Title: strPtr("Tea")}.Validate()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if id != 7 || patch.Title == nil || *patch.Title != "Tea" || patch.Amount != nil {
		t.Fatalf("unexpected patch %d %+v", id, patch)
	}

	_, patch, err = UpdateExpenseInput{ID: intPtr(7)}.Validate()
	if err != nil {
		t.Fatalf("id only should validate, got %v", err)
	}
	if !patch.IsEmpty() {
		t.Fatalf("expected empty patch, got %+v", patch)
	}

	_, _, err = UpdateExpenseInput{Amount: decPtr("-1"), Title: strPtr("")}.Validate()
	got := validationFields(t, err)
	for _, f := range []string{"id", "amount", "title"} {
		if _, ok := got[f]; !ok {
			t.Errorf("missing violation for %q: %v", f, got)
		}
	}
}

func TestDeleteExpenseInputValidate(t *testing.T) {
	if id, err := (DeleteExpenseInput{ID: intPtr(3)}).Validate(); err != nil || id != 3 {
		t.Fatalf("expected id 3, got %d (err=%v)", id, err)
	}
	_, err := DeleteExpenseInput{}.Validate()
	got := validationFields(t, err)
	if got["id"] != "Expense ID is required to delete an expense." {
		t.Fatalf("unexpected message %v", got)
	}
}

func TestValidationErrorMerge(t *testing.T) {
	base := &ValidationError{}
	base.Add("amount", "The amount must be a number.")

	other := &ValidationError{}
	other.Add("amount", "Expense amount is required. Please specify how much you spent.")
	other.Add("title", "Expense title is required. Please provide a descriptive title for your expense.")

	base.Merge(other)
	base.Merge(errors.New("unrelated"))

	if len(base.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", base.Violations)
	}
	if got := messagesByField(base)["amount"]; got != "The amount must be a number." {
		t.Fatalf("first message per field should win: %v", base.Violations)
	}
	if (&ValidationError{}).Err() != nil {
		t.Fatalf("empty error should be nil")
	}
}
