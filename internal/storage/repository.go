package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spesetools/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// Option configures a SQLiteRepository.
type Option func(*SQLiteRepository)

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) {
		r.now = now
	}
}

var _ core.ExpenseStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main pool opens
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(repo)
	}

	return repo, nil
}

// dsn enables WAL and a busy timeout so concurrent tool calls wait for the
// write lock instead of failing.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Create(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Title:         e.Title,
		Description:   nullString(e.Description),
		AmountCents:   e.Amount.Cents,
		ExpenseDate:   e.ExpenseDate.String(),
		PaymentMethod: string(e.PaymentMethod),
		Now:           r.now().UTC().UnixMicro(),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"amount_cents", row.AmountCents,
		"expense_date", row.ExpenseDate)

	return toCore(row)
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, notFound(err, "get expense %d", id)
	}
	return toCore(row)
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error) {
	params := UpdateExpenseParams{
		ID:          id,
		Title:       nullString(p.Title),
		Description: nullString(p.Description),
		Now:         r.now().UTC().UnixMicro(),
	}
	if p.Amount != nil {
		params.AmountCents = sql.NullInt64{Int64: p.Amount.Cents, Valid: true}
	}
	if p.ExpenseDate != nil {
		params.ExpenseDate = sql.NullString{String: p.ExpenseDate.String(), Valid: true}
	}
	if p.PaymentMethod != nil {
		params.PaymentMethod = sql.NullString{String: string(*p.PaymentMethod), Valid: true}
	}

	row, err := r.queries.UpdateExpense(ctx, params)
	if err != nil {
		return core.Expense{}, notFound(err, "update expense %d", id)
	}
	return toCore(row)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return core.Expense{}, notFound(err, "delete expense %d", id)
	}

	slog.DebugContext(ctx, "Expense deleted from SQLite", "id", row.ID)
	return toCore(row)
}

func (r *SQLiteRepository) Query(ctx context.Context, q core.ExpenseQuery) ([]core.Expense, error) {
	q = q.Normalized()

	params := ListExpensesParams{
		Search:      q.Search,
		OrderColumn: orderColumn(q.SortBy),
		Descending:  q.SortOrder == core.Descending,
		Limit:       int64(q.Limit),
	}
	if q.StartDate != nil {
		params.StartDate = q.StartDate.String()
	}
	if q.EndDate != nil {
		params.EndDate = q.EndDate.String()
	}
	if q.PaymentMethod != nil {
		params.PaymentMethod = string(*q.PaymentMethod)
	}

	rows, err := r.queries.ListExpenses(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCore(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func orderColumn(f core.SortField) string {
	switch f {
	case core.SortByAmount:
		return "amount_cents"
	case core.SortByCreatedAt:
		return "created_at"
	default:
		return "expense_date"
	}
}

func toCore(row Expense) (core.Expense, error) {
	date, err := core.ParseDate(row.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", row.ID, row.ExpenseDate, err)
	}

	e := core.Expense{
		ID:            row.ID,
		Title:         row.Title,
		Amount:        core.Money{Cents: row.AmountCents},
		ExpenseDate:   date,
		PaymentMethod: core.PaymentMethod(row.PaymentMethod),
		CreatedAt:     time.UnixMicro(row.CreatedAt).UTC(),
		UpdatedAt:     time.UnixMicro(row.UpdatedAt).UTC(),
	}
	if row.Description.Valid {
		desc := row.Description.String
		e.Description = &desc
	}
	return e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, core.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
