package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-15", true},
		{" 2024-02-29 ", true},
		{"2023-02-29", false}, // not a leap year
		{"2024-13-01", false},
		{"15/01/2024", false},
		{"2024-01-15T10:00:00Z", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error, got %v", tc.in, d)
		}
	}

	d, _ := ParseDate("2024-01-15")
	if d.String() != "2024-01-15" {
		t.Fatalf("unexpected format %q", d.String())
	}
}

func TestPaymentMethodIsValid(t *testing.T) {
	for _, m := range PaymentMethods() {
		if !m.IsValid() {
			t.Fatalf("%q should be valid", m)
		}
	}
	for _, m := range []PaymentMethod{"", "paypal", "Cash"} {
		if m.IsValid() {
			t.Fatalf("%q should be invalid", m)
		}
	}
}

func TestExpensePatchApply(t *testing.T) {
	desc := "old"
	e := Expense{
		ID:            1,
		Title:         "Coffee",
		Description:   &desc,
		Amount:        Money{Cents: 350},
		ExpenseDate:   NewDate(2024, 1, 15),
		PaymentMethod: Cash,
	}

	if !(ExpensePatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}

	title := "Tea"
	patch := ExpensePatch{Title: &title}
	if patch.IsEmpty() {
		t.Fatalf("patch with title should not be empty")
	}

	got := patch.Apply(e)
	if got.Title != "Tea" {
		t.Fatalf("title not applied: %q", got.Title)
	}
	if got.Amount != e.Amount || got.PaymentMethod != e.PaymentMethod || !got.ExpenseDate.Equal(e.ExpenseDate.Time) {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if got.Description == nil || *got.Description != "old" {
		t.Fatalf("description changed: %v", got.Description)
	}
	if e.Title != "Coffee" {
		t.Fatalf("original mutated")
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 5, 7, 123, time.FixedZone("CET", 3600))
	if got := FormatTimestamp(ts); got != "2024-01-15 08:05:07" {
		t.Fatalf("unexpected timestamp %q", got)
	}
}
