// Package fx stores admin-maintained exchange rates. Quotes snapshot the rate
// at send time and payments snapshot it at payment time; the two are never
// cross-converted with each other's rates.
package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRate indicates no rate is configured for a currency.
var ErrNoRate = errors.New("fx: no rate configured")

// Rate is IDR per one unit of Currency.
type Rate struct {
	Currency  string    `json:"currency"`
	RateIDR   float64   `json:"rate_idr"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository reads and writes the fx_rates table.
type Repository interface {
	Get(ctx context.Context, currency string) (Rate, error)
	Upsert(ctx context.Context, rate Rate) error
	List(ctx context.Context) ([]Rate, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed fx repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, currency string) (Rate, error) {
	row := r.pool.QueryRow(ctx, `SELECT currency, rate_idr, updated_at FROM fx_rates WHERE currency = $1`, currency)
	var rate Rate
	if err := row.Scan(&rate.Currency, &rate.RateIDR, &rate.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, fmt.Errorf("%w: %s", ErrNoRate, currency)
		}
		return Rate{}, fmt.Errorf("fx: get: %w", err)
	}
	return rate, nil
}

func (r *repository) Upsert(ctx context.Context, rate Rate) error {
	if rate.RateIDR <= 0 {
		return errors.New("fx: rate must be positive")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fx_rates (currency, rate_idr, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (currency) DO UPDATE SET rate_idr = EXCLUDED.rate_idr, updated_at = NOW()
	`, rate.Currency, rate.RateIDR)
	if err != nil {
		return fmt.Errorf("fx: upsert: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context) ([]Rate, error) {
	rows, err := r.pool.Query(ctx, `SELECT currency, rate_idr, updated_at FROM fx_rates ORDER BY currency`)
	if err != nil {
		return nil, fmt.Errorf("fx: list: %w", err)
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.Currency, &rate.RateIDR, &rate.UpdatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}
