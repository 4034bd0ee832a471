// Package db owns the shared pgx connection pool the stores run on.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
)

var Pool *pgxpool.Pool

// Connectivity check budget at startup. A pool that cannot reach the
// database within this window fails Init rather than limping along.
const pingTimeout = 5 * time.Second

// Init builds the shared pool from configuration and verifies connectivity.
// database.max_conns caps the pool when set; otherwise pgx sizes it from the
// host's CPU count.
func Init(ctx context.Context) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	Pool, err = pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := Pool.Ping(pingCtx); err != nil {
		Pool.Close()
		Pool = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func buildConfig() (*pgxpool.Config, error) {
	connString := viper.GetString("database.url")
	if connString == "" {
		return nil, fmt.Errorf("database.url not configured")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database.url: %w", err)
	}
	if maxConns := viper.GetInt32("database.max_conns"); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	return cfg, nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
	}
}
