package tools

import (
	"context"
	"strings"

	"spesetools/internal/core"
	"spesetools/internal/log"
)

const (
	ServerName         = "Expense Server"
	ServerVersion      = "1.0.0"
	ServerInstructions = "You are a simple expense tracking assistant. You can help users add new expenses, retrieve and filter existing expenses, update expense details, and delete expenses. Always provide clear feedback and helpful suggestions."
)

// ExpenseOperations is the behaviour the expense tools delegate to.
type ExpenseOperations interface {
	AddExpense(ctx context.Context, in core.AddExpenseInput) (core.Expense, error)
	ListExpenses(ctx context.Context, in core.ListExpensesInput) (core.ExpenseList, error)
	UpdateExpense(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, in core.DeleteExpenseInput) (core.Expense, error)
}

// NewExpenseRegistry returns the "Expense Server" collection with its four
// tools registered.
func NewExpenseRegistry(ops ExpenseOperations, logger *log.Logger) *Registry {
	r := NewRegistry(ServerInfo{
		Name:         ServerName,
		Version:      ServerVersion,
		Instructions: ServerInstructions,
	}, logger)

	for _, t := range expenseTools(ops) {
		// Names are constants; a clash is a programming error
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

func expenseTools(ops ExpenseOperations) []Tool {
	methods := core.PaymentMethodNames()
	return []Tool{
		{
			Name:        "add_expense",
			Description: "Add a new expense to the tracker with title, description, amount, date, and payment method.",
			Fields: []Field{
				{Name: "title", Type: TypeString, Required: true, MaxLength: core.MaxTitleLength,
					Description: `The title of the expense (e.g., "Lunch at Restaurant")`},
				{Name: "description", Type: TypeString, Nullable: true, MaxLength: core.MaxDescriptionLength,
					Description: "Optional detailed description of the expense"},
				{Name: "amount", Type: TypeNumber, Required: true, Minimum: bound(0.01),
					Description: "The amount spent (must be greater than 0)"},
				{Name: "expense_date", Type: TypeString, Required: true, Format: "date",
					Description: "The date when the expense occurred (YYYY-MM-DD)"},
				{Name: "payment_method", Type: TypeString, Required: true, Enum: methods,
					Description: "How the expense was paid"},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				verr := &core.ValidationError{}
				in := core.AddExpenseInput{
					Title:         args.String("title", verr),
					Description:   args.String("description", verr),
					Amount:        args.Decimal("amount", verr),
					ExpenseDate:   args.String("expense_date", verr),
					PaymentMethod: args.String("payment_method", verr),
				}
				if err := decodeFailed(verr, func() error { _, err := in.Validate(); return err }); err != nil {
					return nil, err
				}

				e, err := ops.AddExpense(ctx, in)
				if err != nil {
					return nil, err
				}
				return addResponse{Message: "Expense added successfully!", Expense: newExpenseView(e)}, nil
			},
		},
		{
			Name:        "get_expenses",
			Description: "Retrieve expenses with optional filtering by date range, payment method, or search terms.",
			Fields: []Field{
				{Name: "start_date", Type: TypeString, Format: "date",
					Description: "Filter expenses from this date (YYYY-MM-DD)"},
				{Name: "end_date", Type: TypeString, Format: "date",
					Description: "Filter expenses until this date (YYYY-MM-DD)"},
				{Name: "payment_method", Type: TypeString, Enum: methods,
					Description: "Filter expenses by payment method"},
				{Name: "search", Type: TypeString, MaxLength: core.MaxSearchLength,
					Description: "Search expenses by title or description"},
				{Name: "limit", Type: TypeInteger, Default: core.DefaultLimit, Minimum: bound(1), Maximum: bound(core.MaxLimit),
					Description: "Maximum number of expenses to return (1-100)"},
				{Name: "sort_by", Type: TypeString, Enum: core.SortFieldNames(), Default: string(core.SortByExpenseDate),
					Description: "Sort expenses by this field"},
				{Name: "sort_order", Type: TypeString, Enum: core.SortOrderNames(), Default: string(core.Descending),
					Description: "Sort order"},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				verr := &core.ValidationError{}
				in := core.ListExpensesInput{
					StartDate:     args.String("start_date", verr),
					EndDate:       args.String("end_date", verr),
					PaymentMethod: args.String("payment_method", verr),
					Search:        args.String("search", verr),
					Limit:         args.Int("limit", verr),
					SortBy:        args.String("sort_by", verr),
					SortOrder:     args.String("sort_order", verr),
				}
				if err := decodeFailed(verr, func() error { _, err := in.Validate(); return err }); err != nil {
					return nil, err
				}

				list, err := ops.ListExpenses(ctx, in)
				if err != nil {
					return nil, err
				}
				return newListResponse(list), nil
			},
		},
		{
			Name:        "update_expense",
			Description: "Update an existing expense by ID. Only provide the fields you want to update.",
			Fields: []Field{
				{Name: "id", Type: TypeInteger, Required: true,
					Description: "The ID of the expense to update"},
				{Name: "title", Type: TypeString, MaxLength: core.MaxTitleLength,
					Description: "Updated title of the expense"},
				{Name: "description", Type: TypeString, MaxLength: core.MaxDescriptionLength,
					Description: "Updated description of the expense"},
				{Name: "amount", Type: TypeNumber, Minimum: bound(0.01),
					Description: "Updated amount spent"},
				{Name: "expense_date", Type: TypeString, Format: "date",
					Description: "Updated date when the expense occurred (YYYY-MM-DD)"},
				{Name: "payment_method", Type: TypeString, Enum: methods,
					Description: "Updated payment method"},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				verr := &core.ValidationError{}
				in := core.UpdateExpenseInput{
					ID:            args.Int("id", verr),
					Title:         args.String("title", verr),
					Description:   args.String("description", verr),
					Amount:        args.Decimal("amount", verr),
					ExpenseDate:   args.String("expense_date", verr),
					PaymentMethod: args.String("payment_method", verr),
				}
				if err := decodeFailed(verr, func() error { _, _, err := in.Validate(); return err }); err != nil {
					return nil, err
				}

				e, err := ops.UpdateExpense(ctx, in)
				if err != nil {
					return nil, err
				}
				return updateResponse{Message: "Expense updated successfully!", Expense: newUpdatedView(e)}, nil
			},
		},
		{
			Name:        "delete_expense",
			Description: "Delete an expense by ID. This action cannot be undone.",
			Fields: []Field{
				{Name: "id", Type: TypeInteger, Required: true,
					Description: "The ID of the expense to delete"},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				verr := &core.ValidationError{}
				in := core.DeleteExpenseInput{ID: args.Int("id", verr)}
				if err := decodeFailed(verr, func() error { _, err := in.Validate(); return err }); err != nil {
					return nil, err
				}

				e, err := ops.DeleteExpense(ctx, in)
				if err != nil {
					return nil, err
				}
				return deleteResponse{Message: "Expense deleted successfully!", DeletedExpense: newDeletedView(e)}, nil
			},
		},
	}
}

// decodeFailed returns nil when decoding recorded nothing. Otherwise the
// constraint violations of the partially decoded input are folded in, so
// the caller sees every problem at once.
func decodeFailed(verr *core.ValidationError, validate func() error) error {
	if verr.Err() == nil {
		return nil
	}
	verr.Merge(validate())
	return verr
}

type (
	expenseView struct {
		ID            int64      `json:"id"`
		Title         string     `json:"title"`
		Description   *string    `json:"description"`
		Amount        core.Money `json:"amount"`
		ExpenseDate   string     `json:"expense_date"`
		PaymentMethod string     `json:"payment_method"`
		CreatedAt     string     `json:"created_at"`
	}

	updatedView struct {
		ID            int64      `json:"id"`
		Title         string     `json:"title"`
		Description   *string    `json:"description"`
		Amount        core.Money `json:"amount"`
		ExpenseDate   string     `json:"expense_date"`
		PaymentMethod string     `json:"payment_method"`
		UpdatedAt     string     `json:"updated_at"`
	}

	deletedView struct {
		ID          int64      `json:"id"`
		Title       string     `json:"title"`
		Amount      core.Money `json:"amount"`
		ExpenseDate string     `json:"expense_date"`
	}

	summaryView struct {
		TotalCount    int         `json:"total_count"`
		TotalAmount   core.Amount `json:"total_amount"`
		AverageAmount core.Amount `json:"average_amount"`
	}

	addResponse struct {
		Message string      `json:"message"`
		Expense expenseView `json:"expense"`
	}

	listResponse struct {
		Expenses []expenseView `json:"expenses"`
		Summary  summaryView   `json:"summary"`
	}

	updateResponse struct {
		Message string      `json:"message"`
		Expense updatedView `json:"expense"`
	}

	deleteResponse struct {
		Message        string      `json:"message"`
		DeletedExpense deletedView `json:"deleted_expense"`
	}
)

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Amount:        e.Amount,
		ExpenseDate:   e.ExpenseDate.String(),
		PaymentMethod: string(e.PaymentMethod),
		CreatedAt:     core.FormatTimestamp(e.CreatedAt),
	}
}

func newUpdatedView(e core.Expense) updatedView {
	return updatedView{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Amount:        e.Amount,
		ExpenseDate:   e.ExpenseDate.String(),
		PaymentMethod: string(e.PaymentMethod),
		UpdatedAt:     core.FormatTimestamp(e.UpdatedAt),
	}
}

func newDeletedView(e core.Expense) deletedView {
	return deletedView{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      e.Amount,
		ExpenseDate: e.ExpenseDate.String(),
	}
}

func newListResponse(list core.ExpenseList) listResponse {
	views := make([]expenseView, len(list.Items))
	for i, e := range list.Items {
		views[i] = newExpenseView(e)
	}
	return listResponse{
		Expenses: views,
		Summary: summaryView{
			TotalCount:    list.Summary.TotalCount,
			TotalAmount:   list.Summary.TotalAmount,
			AverageAmount: list.Summary.AverageAmount,
		},
	}
}

// ToolNames lists the tool names of r, for logs.
func ToolNames(r *Registry) string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name)
	}
	return strings.Join(names, ",")
}
