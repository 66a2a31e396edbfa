package db

import (
	"context"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

var (
	newPool  = pgxpool.New
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres opens Pool for dsn. Without a dsn, or when the database is
// unreachable, Pool stays nil and wallet tracking is disabled.
func InitPostgres(ctx context.Context, dsn string) {
	if strings.TrimSpace(dsn) == "" {
		log.Println("DATABASE_URL not set, wallet tracking disabled")
		return
	}

	pool, err := newPool(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to parse DATABASE_URL: %v", err)
	}
	if err := pingPool(ctx, pool); err != nil {
		log.Printf("Warning: postgres unavailable, wallet tracking disabled: %v", err)
		pool.Close()
		return
	}
	Pool = pool
	log.Println("Connected to Postgres")
}

// Close releases Pool if it was initialised.
func Close() {
	if Pool == nil {
		return
	}
	Pool.Close()
	Pool = nil
}
