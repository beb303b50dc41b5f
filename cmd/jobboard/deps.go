package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/config"
	"github.com/Dest1on/jobboard/internal/database"
	"github.com/Dest1on/jobboard/internal/domain/application"
	"github.com/Dest1on/jobboard/internal/observability"
	"github.com/Dest1on/jobboard/internal/repository/sqlrepo"
	"github.com/Dest1on/jobboard/internal/storage"
)

// Constructors shared by the fx graph of "serve" and the one-shot commands.

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.LogLevel)
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	return database.Open(ctx, database.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
		ConnectTimeout:  cfg.DBConnectTimeout,
	}, logger)
}

func newDialect(cfg *config.Config) (sqlrepo.Dialect, error) {
	return sqlrepo.DialectFor(cfg.DBDriver)
}

func newApplicationRepository(db *sql.DB, dialect sqlrepo.Dialect) application.Repository {
	return sqlrepo.NewApplicationRepository(db, dialect)
}

func newSink(cfg *config.Config) (storage.Sink, error) {
	switch cfg.StorageBackend {
	case "supabase":
		client := &http.Client{Timeout: cfg.StorageTimeout}
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket, client), nil
	case "local":
		return storage.NewLocal(cfg.LocalStorageDir, cfg.LocalStorageBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
