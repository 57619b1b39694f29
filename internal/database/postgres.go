package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing is tuned for a small campus deployment; chat keeps a few
// connections warm while item browsing bursts above that.
const (
	maxConns        = 16
	minConns        = 4
	maxConnLifetime = 45 * time.Minute
	maxConnIdleTime = 10 * time.Minute
	connectTimeout  = 10 * time.Second
)

var DB *pgxpool.Pool

func ConnectDB(dbUrl string) error {
	pool, err := newPool(dbUrl)
	if err != nil {
		return err
	}
	DB = pool
	log.Printf("database: pool ready (max_conns=%d)", maxConns)
	return nil
}

func newPool(dbUrl string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbUrl)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnLifetime = maxConnLifetime
	config.MaxConnIdleTime = maxConnIdleTime

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func CloseDB() {
	if DB != nil {
		DB.Close()
	}
}
