package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "settings:tier_rates"

// Service exposes pricing settings with a read-through redis cache. The
// pricing and commission engines receive a TierRates value, never this
// service, so recomputation stays deterministic for a given input.
type Service struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
}

// NewService constructs the settings service. cache may be nil in tests.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

// Current returns the active tier rates.
func (s *Service) Current(ctx context.Context) (TierRates, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var rates TierRates
			if err := json.Unmarshal(raw, &rates); err == nil {
				return rates, nil
			}
		} else if err != redis.Nil {
			return TierRates{}, fmt.Errorf("settings: cache get: %w", err)
		}
	}

	rates, err := s.repo.Load(ctx)
	if err != nil {
		return TierRates{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(rates); err == nil {
			_ = s.cache.Set(ctx, cacheKey, raw, s.ttl).Err()
		}
	}
	return rates, nil
}

// CancellationPolicy returns the policy document quotes snapshot at send time.
func (s *Service) CancellationPolicy(ctx context.Context) (json.RawMessage, error) {
	return s.repo.LoadPolicy(ctx)
}

// UpdateCancellationPolicy replaces the policy document. Already-sent quotes
// keep the snapshot frozen on their row.
func (s *Service) UpdateCancellationPolicy(ctx context.Context, policy json.RawMessage, updatedBy int64) error {
	return s.repo.SavePolicy(ctx, policy, updatedBy)
}

// Update stores new rates and invalidates the cache.
func (s *Service) Update(ctx context.Context, rates TierRates, updatedBy int64) error {
	for tier := range rates.MarkupRate {
		if !tier.Valid() {
			return fmt.Errorf("settings: unknown tier %q", tier)
		}
	}
	if err := s.repo.Save(ctx, rates, updatedBy); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, cacheKey).Err()
	}
	return nil
}
