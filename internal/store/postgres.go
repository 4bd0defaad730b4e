package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const paymentsSchema = `
CREATE TABLE IF NOT EXISTS payments (
    correlation_id TEXT PRIMARY KEY,
    amount         NUMERIC NOT NULL,
    processed_by   TEXT NOT NULL,
    processed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_payments_processed_by ON payments (processed_by);
`

// Postgres persists the ledger as the payments table: unique
// correlation id, processed_by index, processed_at defaulting to
// insertion time.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	cfg.MinConns = 1
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, paymentsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring payments table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Record(ctx context.Context, payment ProcessedPayment) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO payments (correlation_id, amount, processed_by, processed_at)
		 VALUES ($1, $2::numeric, $3, $4)
		 ON CONFLICT (correlation_id) DO NOTHING`,
		payment.CID, payment.Amount.String(), payment.ProcessedBy, payment.ProcessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}

	return nil
}

func (p *Postgres) Summarize(ctx context.Context, from, to *time.Time) (Summary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT processed_by, COUNT(*), COALESCE(SUM(amount), 0)::text
		 FROM payments
		 WHERE ($1::timestamptz IS NULL OR processed_at >= $1)
		   AND ($2::timestamptz IS NULL OR processed_at <= $2)
		 GROUP BY processed_by`,
		from, to,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("querying payment summary: %w", err)
	}
	defer rows.Close()

	var s Summary
	for rows.Next() {
		var (
			processedBy string
			count       int64
			total       string
		)
		if err := rows.Scan(&processedBy, &count, &total); err != nil {
			return Summary{}, fmt.Errorf("scanning summary row: %w", err)
		}

		amount, err := decimal.NewFromString(total)
		if err != nil {
			return Summary{}, fmt.Errorf("parsing summary amount: %w", err)
		}

		switch processedBy {
		case "default":
			s.Default = SummaryRow{TotalRequests: count, TotalAmount: amount}
		case "fallback":
			s.Fallback = SummaryRow{TotalRequests: count, TotalAmount: amount}
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("reading summary rows: %w", err)
	}

	return roundRows(s), nil
}

func (p *Postgres) Purge(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM payments`); err != nil {
		return fmt.Errorf("purging payments: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
