package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bali-malayali/bali-malayali/internal/settings"
)

func testTierRates() settings.TierRates {
	return settings.TierRates{
		MarkupRate: map[settings.Tier]float64{
			settings.TierBronze: 0.10,
			settings.TierSilver: 0.15,
			settings.TierGold:   0.20,
		},
	}
}

func TestPriceGoldTier(t *testing.T) {
	q, err := Price(10000000, settings.TierGold, testTierRates(), CurrencyIDR, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2000000), q.MarkupIDR)
	require.Equal(t, int64(12000000), q.FinalTotalIDR)
	require.Equal(t, CurrencyIDR, q.DisplayCurrency)
	require.Equal(t, int64(12000000), q.DisplayFinalTotal)
	require.Equal(t, 1.0, q.ExchangeRateUsed)
}

func TestPriceMarkupRounding(t *testing.T) {
	// 0.15 x 333 = 49.95, rounds to 50.
	q, err := Price(333, settings.TierSilver, testTierRates(), CurrencyIDR, 1)
	require.NoError(t, err)
	require.Equal(t, int64(50), q.MarkupIDR)
	require.Equal(t, int64(383), q.FinalTotalIDR)
}

func TestPriceDisplayConversion(t *testing.T) {
	q, err := Price(10000000, settings.TierGold, testTierRates(), "INR", 190.5)
	require.NoError(t, err)
	require.Equal(t, int64(12000000), q.FinalTotalIDR)
	// 12000000 / 190.5 = 62992.13, rounds to 62992.
	require.Equal(t, int64(62992), q.DisplayFinalTotal)
	require.Equal(t, 190.5, q.ExchangeRateUsed)
}

func TestPriceEmptyCurrencyDefaultsToIDR(t *testing.T) {
	q, err := Price(500000, settings.TierBronze, testTierRates(), "", 0)
	require.NoError(t, err)
	require.Equal(t, CurrencyIDR, q.DisplayCurrency)
	require.Equal(t, q.FinalTotalIDR, q.DisplayFinalTotal)
}

func TestPriceBadExchangeRate(t *testing.T) {
	_, err := Price(500000, settings.TierBronze, testTierRates(), "INR", 0)
	require.ErrorIs(t, err, ErrBadExchangeRate)
}

func TestPriceUnknownTier(t *testing.T) {
	_, err := Price(500000, "platinum", testTierRates(), CurrencyIDR, 1)
	require.ErrorIs(t, err, ErrUnknownTier)

	cfg := settings.TierRates{MarkupRate: map[settings.Tier]float64{}}
	_, err = Price(500000, settings.TierGold, cfg, CurrencyIDR, 1)
	require.ErrorIs(t, err, ErrUnknownTier)
}

func TestPriceOptionsIndependent(t *testing.T) {
	options := []OptionCost{
		{OptionID: 1, BaseCostIDR: 10000000},
		{OptionID: 2, BaseCostIDR: 15000000},
		{OptionID: 3, BaseCostIDR: 7},
	}
	priced, err := PriceOptions(context.Background(), options, settings.TierGold, testTierRates(), CurrencyIDR, 1)
	require.NoError(t, err)
	require.Len(t, priced, 3)

	// Order matches the input and each option prices on its own base cost.
	require.Equal(t, int64(1), priced[0].OptionID)
	require.Equal(t, int64(12000000), priced[0].FinalTotalIDR)
	require.Equal(t, int64(18000000), priced[1].FinalTotalIDR)
	// 0.20 x 7 = 1.4, rounds to 1: rounding happens per option.
	require.Equal(t, int64(1), priced[2].MarkupIDR)
	require.Equal(t, int64(8), priced[2].FinalTotalIDR)
}

func TestPriceOptionsPropagatesError(t *testing.T) {
	options := []OptionCost{{OptionID: 1, BaseCostIDR: 100}}
	_, err := PriceOptions(context.Background(), options, "platinum", testTierRates(), CurrencyIDR, 1)
	require.ErrorIs(t, err, ErrUnknownTier)
}
