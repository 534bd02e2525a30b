package storage

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Expense is a row of the expenses table. Timestamps are unix microseconds.
type Expense struct {
	ID            int64
	Title         string
	Description   sql.NullString
	AmountCents   int64
	ExpenseDate   string
	PaymentMethod string
	CreatedAt     int64
	UpdatedAt     int64
}

const expenseColumns = `id, title, description, amount_cents, expense_date, payment_method, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.AmountCents,
		&i.ExpenseDate,
		&i.PaymentMethod,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createExpense = `
INSERT INTO expenses (title, description, amount_cents, expense_date, payment_method, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	Title         string
	Description   sql.NullString
	AmountCents   int64
	ExpenseDate   string
	PaymentMethod string
	Now           int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.Title,
		arg.Description,
		arg.AmountCents,
		arg.ExpenseDate,
		arg.PaymentMethod,
		arg.Now,
		arg.Now,
	)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

// updated_at never moves behind created_at even if the wall clock does.
const updateExpense = `
UPDATE expenses SET
    title          = COALESCE(?, title),
    description    = COALESCE(?, description),
    amount_cents   = COALESCE(?, amount_cents),
    expense_date   = COALESCE(?, expense_date),
    payment_method = COALESCE(?, payment_method),
    updated_at     = MAX(?, created_at)
WHERE id = ?
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	ID            int64
	Title         sql.NullString
	Description   sql.NullString
	AmountCents   sql.NullInt64
	ExpenseDate   sql.NullString
	PaymentMethod sql.NullString
	Now           int64
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, updateExpense,
		arg.Title,
		arg.Description,
		arg.AmountCents,
		arg.ExpenseDate,
		arg.PaymentMethod,
		arg.Now,
		arg.ID,
	)
	return scanExpense(row)
}

const deleteExpense = `DELETE FROM expenses WHERE id = ? RETURNING ` + expenseColumns

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, deleteExpense, id))
}

// ListExpensesParams mirrors core.ExpenseQuery with storage column values.
// Empty strings disable the matching filter.
type ListExpensesParams struct {
	StartDate     string
	EndDate       string
	PaymentMethod string
	Search        string
	OrderColumn   string
	Descending    bool
	Limit         int64
}

var orderColumns = map[string]bool{
	"amount_cents": true,
	"expense_date": true,
	"created_at":   true,
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.StartDate != "" {
		where = append(where, "expense_date >= ?")
		args = append(args, arg.StartDate)
	}
	if arg.EndDate != "" {
		where = append(where, "expense_date <= ?")
		args = append(args, arg.EndDate)
	}
	if arg.PaymentMethod != "" {
		where = append(where, "payment_method = ?")
		args = append(args, arg.PaymentMethod)
	}
	if arg.Search != "" {
		needle := foldCase(arg.Search)
		where = append(where, `(instr(`+foldFunc+`(title), ?) > 0 OR instr(`+foldFunc+`(description), ?) > 0)`)
		args = append(args, needle, needle)
	}

	column := arg.OrderColumn
	if !orderColumns[column] {
		column = "expense_date"
	}
	direction := "ASC"
	if arg.Descending {
		direction = "DESC"
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + expenseColumns + " FROM expenses")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + column + " " + direction + ", id ASC LIMIT ?")
	args = append(args, arg.Limit)

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
