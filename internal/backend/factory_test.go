package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"spesetools/internal/config"
	"spesetools/internal/core"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}

	app := &config.Config{
		DataBackend:  config.BackendSQLite,
		SQLiteDBPath: "data/x.db",
		AMQPExchange: "expenses",
		AMQPQueue:    "expense_events",
	}
	c, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if c.Type != SQLiteBackend || c.SQLiteDBPath != "data/x.db" || c.AMQPURL != "" {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "expenses.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					t.Fatalf("cleanup: %v", err)
				}
			}()

			if res.EventsEnabled {
				t.Fatalf("events should be disabled without AMQP_URL")
			}
			if err := res.Service.Ping(ctx); err != nil {
				t.Fatalf("ping: %v", err)
			}

			title, amount, date, pm := "Coffee", "2.50", "2024-05-01", "cash"
			in := core.AddExpenseInput{Title: &title, ExpenseDate: &date, PaymentMethod: &pm}
			d := decimal.RequireFromString(amount)
			in.Amount = &d
			e, err := res.Service.AddExpense(ctx, in)
			if err != nil {
				t.Fatalf("AddExpense: %v", err)
			}
			if _, err := res.Store.Get(ctx, e.ID); err != nil {
				t.Fatalf("store does not see the expense: %v", err)
			}
		})
	}
}
