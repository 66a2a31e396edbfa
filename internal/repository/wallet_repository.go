package repository

import (
	"context"
	"strings"

	"aptos-pulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// WalletRepository records which wallets the dashboard asks about so the
// cache warmer knows whose histories to prefetch.
type WalletRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewWalletRepository(pool PgxPool, tracer trace.Tracer) *WalletRepository {
	return &WalletRepository{pool: pool, tracer: tracer}
}

// TouchWallet inserts the wallet or bumps its request counters.
func (r *WalletRepository) TouchWallet(ctx context.Context, address string) error {
	ctx, span := r.tracer.Start(ctx, "wallet-repo.touch-wallet")
	defer span.End()

	address = strings.ToLower(strings.TrimSpace(address))
	span.SetAttributes(attribute.String("wallet", address))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tracked_wallets (address, first_seen, last_requested, request_count)
		 VALUES ($1, NOW(), NOW(), 1)
		 ON CONFLICT (address) DO UPDATE SET
		     last_requested = NOW(),
		     request_count = tracked_wallets.request_count + 1`,
		address,
	)
	return err
}

// RecentWallets returns the most recently requested wallets, newest first.
func (r *WalletRepository) RecentWallets(ctx context.Context, limit int) ([]*domain.TrackedWallet, error) {
	ctx, span := r.tracer.Start(ctx, "wallet-repo.recent-wallets")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT address, first_seen, last_requested, request_count
		 FROM tracked_wallets
		 ORDER BY last_requested DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*domain.TrackedWallet
	for rows.Next() {
		w := &domain.TrackedWallet{}
		if err := rows.Scan(&w.Address, &w.FirstSeen, &w.LastRequested, &w.RequestCount); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}
