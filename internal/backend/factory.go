// Package backend builds the configured ledger implementation.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"masraf/internal/config"
	"masraf/internal/ledger"
	"masraf/internal/ledger/excel"
	"masraf/internal/ledger/google"
	"masraf/internal/ledger/memory"
	"masraf/internal/storage"
	"masraf/internal/storage/postgres"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready ledger plus its optional cleanup.
type Result struct {
	Ledger  ledger.Ledger
	Cleanup CleanupFunc
}

// Close runs the cleanup if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create builds the ledger named by kind (one of the config.Backend*
// constants). The result is not opened yet; callers run OpenOrCreate.
func (f *Factory) Create(ctx context.Context, kind string, cfg *config.Config) (*Result, error) {
	switch kind {
	case config.BackendExcel:
		f.logger.Info("Initialized excel ledger", "path", cfg.ExcelFile)
		return &Result{Ledger: excel.New(cfg.ExcelFile)}, nil

	case config.BackendSheets:
		cli, err := google.New(ctx, google.Options{
			SpreadsheetID:      cfg.GoogleSheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets ledger", "spreadsheet_id", cfg.GoogleSheetID)
		return &Result{Ledger: cli}, nil

	case config.BackendSQLite:
		db, err := storage.NewSQLiteLedger(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
		}
		f.logger.Info("Initialized SQLite ledger", "db_path", cfg.SQLiteDBPath)
		return &Result{Ledger: db, Cleanup: db.Close}, nil

	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres ledger: %w", err)
		}
		f.logger.Info("Initialized Postgres ledger", "location", db.Info().Location)
		return &Result{Ledger: db, Cleanup: db.Close}, nil

	case config.BackendMemory:
		f.logger.Warn("Using in-memory ledger, rows are lost on restart")
		return &Result{Ledger: memory.New()}, nil

	default:
		return nil, fmt.Errorf("unsupported ledger backend: %q", kind)
	}
}
