package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/tempo/go/internal/dbconfig"
	"github.com/mcdev12/tempo/go/internal/run/repository"
	"github.com/mcdev12/tempo/go/internal/run/session"
)

// setupStorage opens the session store selected by driver. The returned func
// releases it.
func setupStorage(ctx context.Context, driver string) (session.Repository, func() error, error) {
	switch driver {
	case "memory":
		log.Warn().Msg("using in-memory store, sessions are lost on restart")
		return repository.NewMemory(), func() error { return nil }, nil

	case "sqlite":
		path := getEnv("SQLITE_PATH", "data/tempo.db")
		store, err := repository.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", path).Msg("connected to sqlite store")
		return store, store.Close, nil

	case "postgres":
		db, err := setupDatabase(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgres(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

func setupDatabase(ctx context.Context) (*sql.DB, error) {
	dbCfg := dbconfig.NewConfigFromEnv()

	database, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	database.SetMaxOpenConns(dbCfg.MaxOpenConns)

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("user", dbCfg.User).
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("connected to database")
	return database, nil
}
