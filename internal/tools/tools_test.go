package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"spesetools/internal/core"
	"spesetools/internal/services"
	"spesetools/internal/storage/memory"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	clock := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	store := memory.NewWithClock(func() time.Time { return clock })
	svc := services.NewExpenseService(store, nil, nil)
	return NewExpenseRegistry(svc, nil)
}

// call runs a tool with JSON arguments and returns the result re-decoded
// as generic JSON, the way a caller would see it.
func call(t *testing.T, r *Registry, name, rawArgs string) (map[string]any, bool) {
	t.Helper()
	args, err := DecodeArgs(json.RawMessage(rawArgs))
	if err != nil {
		t.Fatalf("DecodeArgs(%s): %v", rawArgs, err)
	}
	res, err := r.Call(context.Background(), name, args)
	if err != nil {
		t.Fatalf("Call(%s): %v", name, err)
	}
	body, err := json.Marshal(res.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return out, res.IsError
}

func mustCall(t *testing.T, r *Registry, name, rawArgs string) map[string]any {
	t.Helper()
	out, isErr := call(t, r, name, rawArgs)
	if isErr {
		t.Fatalf("%s(%s) failed: %v", name, rawArgs, out)
	}
	return out
}

func violations(t *testing.T, out map[string]any) map[string]string {
	t.Helper()
	if out["error"] != CodeValidationFailed {
		t.Fatalf("expected validation failure, got %v", out)
	}
	list, _ := out["errors"].([]any)
	got := map[string]string{}
	for _, item := range list {
		v := item.(map[string]any)
		got[v["field"].(string)] = v["message"].(string)
	}
	return got
}

func addCoffee(t *testing.T, r *Registry, pm, amount string) float64 {
	t.Helper()
	out := mustCall(t, r, "add_expense",
		`{"title":"Coffee","amount":`+amount+`,"expense_date":"2024-01-15","payment_method":"`+pm+`"}`)
	return out["expense"].(map[string]any)["id"].(float64)
}

func TestExpenseRegistry_Info(t *testing.T) {
	r := newTestRegistry(t)
	info := r.Info()
	if info.Name != "Expense Server" || info.Version != "1.0.0" || info.Instructions == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	var names []string
	for _, tool := range r.Tools() {
		names = append(names, tool.Name)
	}
	if strings.Join(names, ",") != "add_expense,get_expenses,update_expense,delete_expense" {
		t.Fatalf("unexpected tools: %v", names)
	}
	if ToolNames(r) != strings.Join(names, ",") {
		t.Fatalf("ToolNames mismatch: %s", ToolNames(r))
	}
}

func TestAddExpense(t *testing.T) {
	r := newTestRegistry(t)

	out := mustCall(t, r, "add_expense", `{
		"title": "Lunch at Restaurant",
		"description": "Business lunch with client",
		"amount": 45.5,
		"expense_date": "2024-01-15",
		"payment_method": "credit_card",
		"ignored": true
	}`)

	if out["message"] != "Expense added successfully!" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
	e := out["expense"].(map[string]any)
	if e["title"] != "Lunch at Restaurant" || e["amount"] != 45.5 || e["expense_date"] != "2024-01-15" ||
		e["payment_method"] != "credit_card" || e["created_at"] != "2024-01-15 09:30:00" {
		t.Fatalf("unexpected expense: %v", e)
	}
	if _, ok := e["updated_at"]; ok {
		t.Fatalf("add response should not carry updated_at: %v", e)
	}
}

func TestAddExpense_Validation(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name string
		args string
		want map[string]string
	}{
		{
			name: "everything missing",
			args: `{}`,
			want: map[string]string{
				"title":          "Expense title is required. Please provide a descriptive title for your expense.",
				"amount":         "Expense amount is required. Please specify how much you spent.",
				"expense_date":   "Expense date is required. Please specify when the expense occurred.",
				"payment_method": "Payment method is required. Choose from: cash, credit_card, debit_card, bank_transfer, digital_wallet.",
			},
		},
		{
			name: "zero amount",
			args: `{"title":"x","amount":0,"expense_date":"2024-01-15","payment_method":"cash"}`,
			want: map[string]string{"amount": "Expense amount must be greater than 0."},
		},
		{
			name: "amount below one cent",
			args: `{"title":"x","amount":0.005,"expense_date":"2024-01-15","payment_method":"cash"}`,
			want: map[string]string{"amount": "Expense amount must be greater than 0."},
		},
		{
			name: "negative amount",
			args: `{"title":"x","amount":-5,"expense_date":"2024-01-15","payment_method":"cash"}`,
			want: map[string]string{"amount": "Expense amount must be greater than 0."},
		},
		{
			name: "wrong types are merged with constraint violations",
			args: `{"title":42,"amount":"lots","expense_date":"yesterday","payment_method":"cheque"}`,
			want: map[string]string{
				"title":          "The title must be a string.",
				"amount":         "The amount must be a number.",
				"expense_date":   "The expense_date is not a valid date. Use the YYYY-MM-DD format.",
				"payment_method": "The selected payment_method is invalid. Choose from: cash, credit_card, debit_card, bank_transfer, digital_wallet.",
			},
		},
		{
			name: "title too long",
			args: `{"title":"` + strings.Repeat("a", 256) + `","amount":1,"expense_date":"2024-01-15","payment_method":"cash"}`,
			want: map[string]string{"title": "The title may not be greater than 255 characters."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, r, "add_expense", tt.args)
			if !isErr {
				t.Fatalf("expected error result, got %v", out)
			}
			got := violations(t, out)
			if len(got) != len(tt.want) {
				t.Fatalf("got violations %v, want %v", got, tt.want)
			}
			for field, msg := range tt.want {
				if got[field] != msg {
					t.Errorf("%s: got %q, want %q", field, got[field], msg)
				}
			}
		})
	}

	list := mustCall(t, r, "get_expenses", `{}`)
	if n := len(list["expenses"].([]any)); n != 0 {
		t.Fatalf("rejected calls must not store anything, found %d", n)
	}
}

func TestGetExpenses_FilterAndOr(t *testing.T) {
	r := newTestRegistry(t)
	a := addCoffee(t, r, "cash", "3.5")
	addCoffee(t, r, "credit_card", "4.2")

	out := mustCall(t, r, "get_expenses", `{"payment_method":"cash","search":"coffee"}`)
	items := out["expenses"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["id"] != a {
		t.Fatalf("expected only expense %v, got %v", a, items)
	}
}

func TestGetExpenses_Summary(t *testing.T) {
	r := newTestRegistry(t)
	addCoffee(t, r, "cash", "100")
	addCoffee(t, r, "cash", "200")

	out := mustCall(t, r, "get_expenses", `{}`)
	sum := out["summary"].(map[string]any)
	if sum["total_count"] != 2.0 || sum["total_amount"] != 300.0 || sum["average_amount"] != 150.0 {
		t.Fatalf("unexpected summary: %v", sum)
	}
}

func TestGetExpenses_LimitTruncatesSummary(t *testing.T) {
	r := newTestRegistry(t)
	addCoffee(t, r, "cash", "10")
	addCoffee(t, r, "cash", "20")
	addCoffee(t, r, "cash", "30")

	out := mustCall(t, r, "get_expenses", `{"sort_by":"amount","sort_order":"desc","limit":2}`)
	items := out["expenses"].([]any)
	if len(items) != 2 || items[0].(map[string]any)["amount"] != 30.0 || items[1].(map[string]any)["amount"] != 20.0 {
		t.Fatalf("unexpected items: %v", items)
	}
	sum := out["summary"].(map[string]any)
	if sum["total_count"] != 2.0 || sum["total_amount"] != 50.0 {
		t.Fatalf("unexpected summary: %v", sum)
	}
}

func TestGetExpenses_Validation(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name  string
		args  string
		field string
	}{
		{"start after end", `{"start_date":"2024-02-01","end_date":"2024-01-01"}`, "end_date"},
		{"limit too large", `{"limit":101}`, "limit"},
		{"limit zero", `{"limit":0}`, "limit"},
		{"limit fractional", `{"limit":2.5}`, "limit"},
		{"bad sort field", `{"sort_by":"title"}`, "sort_by"},
		{"bad sort order", `{"sort_order":"up"}`, "sort_order"},
		{"search too long", `{"search":"` + strings.Repeat("s", 256) + `"}`, "search"},
		{"bad payment method", `{"payment_method":"gold"}`, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, r, "get_expenses", tt.args)
			if !isErr {
				t.Fatalf("expected error result, got %v", out)
			}
			if _, ok := violations(t, out)[tt.field]; !ok {
				t.Fatalf("expected violation on %s, got %v", tt.field, out)
			}
		})
	}

	// Explicit nulls behave like omitted filters
	if _, isErr := call(t, r, "get_expenses", `{"start_date":null,"limit":null,"search":null}`); isErr {
		t.Fatalf("null filters should be ignored")
	}
	// Integral numbers written as strings or with a zero fraction are accepted
	if _, isErr := call(t, r, "get_expenses", `{"limit":"5"}`); isErr {
		t.Fatalf("numeric string limit should be accepted")
	}
	if _, isErr := call(t, r, "get_expenses", `{"limit":5.0}`); isErr {
		t.Fatalf("integral float limit should be accepted")
	}
}

func TestUpdateExpense(t *testing.T) {
	r := newTestRegistry(t)
	id := addCoffee(t, r, "cash", "3.5")
	idArg := `"id":` + formatID(id)

	t.Run("partial update", func(t *testing.T) {
		out := mustCall(t, r, "update_expense", `{`+idArg+`,"title":"Espresso","amount":null}`)
		if out["message"] != "Expense updated successfully!" {
			t.Fatalf("unexpected message: %v", out)
		}
		e := out["expense"].(map[string]any)
		if e["title"] != "Espresso" || e["amount"] != 3.5 || e["payment_method"] != "cash" || e["expense_date"] != "2024-01-15" {
			t.Fatalf("untouched fields changed: %v", e)
		}
		if e["updated_at"] != "2024-01-15 09:30:00" {
			t.Fatalf("unexpected updated_at: %v", e["updated_at"])
		}
		if _, ok := e["created_at"]; ok {
			t.Fatalf("update response should not carry created_at: %v", e)
		}
	})

	t.Run("no fields", func(t *testing.T) {
		out, isErr := call(t, r, "update_expense", `{`+idArg+`,"title":null}`)
		if !isErr || out["error"] != CodeNoFieldsProvided ||
			out["message"] != "No fields provided to update. Please specify at least one field to update." {
			t.Fatalf("unexpected result: %v", out)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		out, isErr := call(t, r, "update_expense", `{"id":9999,"title":"x"}`)
		if !isErr || out["error"] != CodeNotFound || out["message"] != "The specified expense does not exist." {
			t.Fatalf("unexpected result: %v", out)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		out, isErr := call(t, r, "update_expense", `{"title":"x"}`)
		if !isErr {
			t.Fatalf("expected error")
		}
		if got := violations(t, out)["id"]; got != "Expense ID is required to update an expense." {
			t.Fatalf("unexpected id message: %q", got)
		}
	})

	t.Run("id of wrong type", func(t *testing.T) {
		out, isErr := call(t, r, "update_expense", `{"id":"abc","amount":0}`)
		if !isErr {
			t.Fatalf("expected error")
		}
		got := violations(t, out)
		if got["id"] != "The id must be an integer." || got["amount"] != "Expense amount must be greater than 0." {
			t.Fatalf("unexpected violations: %v", got)
		}
	})

	t.Run("blank title", func(t *testing.T) {
		out, isErr := call(t, r, "update_expense", `{`+idArg+`,"title":"   "}`)
		if !isErr {
			t.Fatalf("expected error")
		}
		if _, ok := violations(t, out)["title"]; !ok {
			t.Fatalf("expected title violation: %v", out)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	r := newTestRegistry(t)
	id := addCoffee(t, r, "cash", "3.5")
	args := `{"id":` + formatID(id) + `}`

	out := mustCall(t, r, "delete_expense", args)
	if out["message"] != "Expense deleted successfully!" {
		t.Fatalf("unexpected message: %v", out)
	}
	d := out["deleted_expense"].(map[string]any)
	if d["id"] != id || d["title"] != "Coffee" || d["amount"] != 3.5 || d["expense_date"] != "2024-01-15" {
		t.Fatalf("unexpected snapshot: %v", d)
	}
	if len(d) != 4 {
		t.Fatalf("snapshot should carry exactly id, title, amount, expense_date: %v", d)
	}

	out, isErr := call(t, r, "delete_expense", args)
	if !isErr || out["error"] != CodeNotFound {
		t.Fatalf("second delete should report not found: %v", out)
	}

	out, isErr = call(t, r, "delete_expense", `{}`)
	if !isErr || violations(t, out)["id"] != "Expense ID is required to delete an expense." {
		t.Fatalf("unexpected result: %v", out)
	}
}

type failingOps struct{}

func (failingOps) AddExpense(context.Context, core.AddExpenseInput) (core.Expense, error) {
	return core.Expense{}, errors.New("disk on fire")
}

func (failingOps) ListExpenses(context.Context, core.ListExpensesInput) (core.ExpenseList, error) {
	return core.ExpenseList{}, errors.New("disk on fire")
}

func (failingOps) UpdateExpense(context.Context, core.UpdateExpenseInput) (core.Expense, error) {
	return core.Expense{}, errors.New("disk on fire")
}

func (failingOps) DeleteExpense(context.Context, core.DeleteExpenseInput) (core.Expense, error) {
	return core.Expense{}, errors.New("disk on fire")
}

func TestInternalErrorsHideDetails(t *testing.T) {
	r := NewExpenseRegistry(failingOps{}, nil)
	out, isErr := call(t, r, "get_expenses", `{}`)
	if !isErr || out["error"] != CodeInternal {
		t.Fatalf("unexpected result: %v", out)
	}
	if strings.Contains(out["message"].(string), "disk") {
		t.Fatalf("internal details leaked: %v", out)
	}
}

func TestRegistry_UnknownToolAndDuplicates(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Call(context.Background(), "drop_tables", Args{}); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}

	dup := Tool{Name: "add_expense", Handler: func(context.Context, Args) (any, error) { return nil, nil }}
	if err := r.Register(dup); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestDecodeArgs(t *testing.T) {
	tests := []struct {
		raw     string
		wantLen int
		wantErr bool
	}{
		{``, 0, false},
		{`null`, 0, false},
		{`{}`, 0, false},
		{`{"a":1,"b":"x"}`, 2, false},
		{`[1,2]`, 0, true},
		{`"str"`, 0, true},
		{`{"a":`, 0, true},
	}
	for _, tt := range tests {
		args, err := DecodeArgs(json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Fatalf("DecodeArgs(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if err == nil && len(args) != tt.wantLen {
			t.Fatalf("DecodeArgs(%q) len = %d, want %d", tt.raw, len(args), tt.wantLen)
		}
	}

	args, _ := DecodeArgs(json.RawMessage(`{"amount":0.1}`))
	verr := &core.ValidationError{}
	d := args.Decimal("amount", verr)
	if d == nil || d.String() != "0.1" {
		t.Fatalf("amount should keep its exact decimal value, got %v", d)
	}
}

func TestInputSchema(t *testing.T) {
	r := newTestRegistry(t)
	tool, ok := r.Lookup("get_expenses")
	if !ok {
		t.Fatal("get_expenses not registered")
	}

	body, err := json.Marshal(InputSchema(tool.Fields))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var schema struct {
		Type       string                    `json:"type"`
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	}
	if err := json.Unmarshal(body, &schema); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if schema.Type != "object" || len(schema.Required) != 0 || len(schema.Properties) != 7 {
		t.Fatalf("unexpected schema: %s", body)
	}
	limit := schema.Properties["limit"]
	if limit["type"] != "integer" || limit["default"] != 20.0 || limit["minimum"] != 1.0 || limit["maximum"] != 100.0 {
		t.Fatalf("unexpected limit schema: %v", limit)
	}

	add, _ := r.Lookup("add_expense")
	addSchema := InputSchema(add.Fields)
	if got := addSchema["required"].([]string); strings.Join(got, ",") != "title,amount,expense_date,payment_method" {
		t.Fatalf("unexpected required list: %v", got)
	}
}

func formatID(id float64) string {
	b, _ := json.Marshal(int64(id))
	return string(b)
}
