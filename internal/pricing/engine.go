// Package pricing turns a base cost into agent- and client-facing totals.
// All IDR arithmetic is integer; the only rounding steps are the markup
// computation and the display-currency conversion.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/bali-malayali/bali-malayali/internal/settings"
)

// CurrencyIDR is the ledger currency; every stored amount is IDR.
const CurrencyIDR = "IDR"

var (
	// ErrUnknownTier indicates the agent tier has no configured markup.
	ErrUnknownTier = errors.New("pricing: no markup configured for tier")
	// ErrBadExchangeRate indicates a missing or non-positive snapshot rate.
	ErrBadExchangeRate = errors.New("pricing: exchange rate must be positive")
)

// Quotation is the priced result for one base cost.
type Quotation struct {
	BaseCostIDR       int64  `json:"base_cost_idr"`
	MarkupIDR         int64  `json:"markup_idr"`
	FinalTotalIDR     int64  `json:"final_total_idr"`
	DisplayCurrency   string `json:"display_currency"`
	DisplayFinalTotal int64  `json:"display_final_total"`
	ExchangeRateUsed  float64 `json:"exchange_rate_used"`
}

// Price applies the tier markup and converts into the display currency using
// the snapshot rate. The rate is always the one frozen at quote-send time;
// recomputation with the same inputs reproduces the same totals.
func Price(baseCostIDR int64, tier settings.Tier, rateCfg settings.TierRates, displayCurrency string, exchangeRate float64) (Quotation, error) {
	if !tier.Valid() {
		return Quotation{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	markupRate, ok := rateCfg.MarkupRate[tier]
	if !ok {
		return Quotation{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	markup := int64(math.Round(float64(baseCostIDR) * markupRate))
	finalTotal := baseCostIDR + markup

	q := Quotation{
		BaseCostIDR:      baseCostIDR,
		MarkupIDR:        markup,
		FinalTotalIDR:    finalTotal,
		DisplayCurrency:  displayCurrency,
		ExchangeRateUsed: exchangeRate,
	}

	if displayCurrency == "" || displayCurrency == CurrencyIDR {
		q.DisplayCurrency = CurrencyIDR
		q.ExchangeRateUsed = 1
		q.DisplayFinalTotal = finalTotal
		return q, nil
	}

	if exchangeRate <= 0 {
		return Quotation{}, fmt.Errorf("%w: got %v for %s", ErrBadExchangeRate, exchangeRate, displayCurrency)
	}
	q.DisplayFinalTotal = int64(math.Round(float64(finalTotal) / exchangeRate))
	return q, nil
}

// OptionCost is the base cost of one quote option.
type OptionCost struct {
	OptionID    int64
	BaseCostIDR int64
}

// PricedOption pairs an option with its independent pricing result.
type PricedOption struct {
	OptionID int64
	Quotation
}

// PriceOptions prices each option independently and in parallel. Options are
// never averaged or combined; order of the result matches the input.
func PriceOptions(ctx context.Context, options []OptionCost, tier settings.Tier, rateCfg settings.TierRates, displayCurrency string, exchangeRate float64) ([]PricedOption, error) {
	out := make([]PricedOption, len(options))
	g, _ := errgroup.WithContext(ctx)
	for i, opt := range options {
		i, opt := i, opt
		g.Go(func() error {
			q, err := Price(opt.BaseCostIDR, tier, rateCfg, displayCurrency, exchangeRate)
			if err != nil {
				return fmt.Errorf("option %d: %w", opt.OptionID, err)
			}
			out[i] = PricedOption{OptionID: opt.OptionID, Quotation: q}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
