// Package cli provides common CLI initialization utilities shared by
// cmd/expense-tools and cmd/expense-events.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spesetools/internal/config"
	"spesetools/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error; it is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// bootstrapLogger is used until the configured logger exists.
func bootstrapLogger() *log.Logger {
	return log.New(log.DefaultConfig())
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		bootstrapLogger().Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default. Output always goes to stderr so stdout can carry protocol
// traffic.
func SetupLogger(cfg *config.Config, component string) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	lc := log.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat
	lc.Component = component

	logger := log.New(lc)
	log.SetDefault(logger)
	return logger, nil
}

// MustSetupLogger is SetupLogger that exits on error.
func MustSetupLogger(cfg *config.Config, component string) *log.Logger {
	logger, err := SetupLogger(cfg, component)
	if err != nil {
		bootstrapLogger().Error("Logger setup failed", log.FieldError, err)
		os.Exit(1)
	}
	return logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
