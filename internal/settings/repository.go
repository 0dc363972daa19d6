package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotSeeded indicates the settings row has not been provisioned.
var ErrNotSeeded = errors.New("settings: tier rates not seeded")

// Repository loads and stores the pricing settings documents.
type Repository interface {
	Load(ctx context.Context) (TierRates, error)
	Save(ctx context.Context, rates TierRates, updatedBy int64) error
	LoadPolicy(ctx context.Context) (json.RawMessage, error)
	SavePolicy(ctx context.Context, policy json.RawMessage, updatedBy int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed settings repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const (
	settingsKey = "tier_rates"
	policyKey   = "cancellation_policy"
)

func (r *repository) Load(ctx context.Context) (TierRates, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, settingsKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TierRates{}, ErrNotSeeded
		}
		return TierRates{}, fmt.Errorf("settings: load: %w", err)
	}
	var rates TierRates
	if err := json.Unmarshal(raw, &rates); err != nil {
		return TierRates{}, fmt.Errorf("settings: decode: %w", err)
	}
	return rates, nil
}

func (r *repository) Save(ctx context.Context, rates TierRates, updatedBy int64) error {
	raw, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
	`, settingsKey, raw, updatedBy)
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// ErrNoPolicy indicates the cancellation policy document has not been seeded.
var ErrNoPolicy = errors.New("settings: cancellation policy not seeded")

func (r *repository) LoadPolicy(ctx context.Context) (json.RawMessage, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, policyKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPolicy
		}
		return nil, fmt.Errorf("settings: load policy: %w", err)
	}
	return raw, nil
}

func (r *repository) SavePolicy(ctx context.Context, policy json.RawMessage, updatedBy int64) error {
	if !json.Valid(policy) {
		return errors.New("settings: policy must be valid JSON")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
	`, policyKey, policy, updatedBy)
	if err != nil {
		return fmt.Errorf("settings: save policy: %w", err)
	}
	return nil
}
