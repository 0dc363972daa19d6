package settings

// Tier enumerates agent tiers.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

// TierRates carries the percentages applied per tier. Values are fractions
// (0.20 == 20%), seeded by deployment, never compiled in.
type TierRates struct {
	MarkupRate      map[Tier]float64 `json:"markup_rate"`
	ReferralRate    map[Tier]float64 `json:"referral_rate"`
	IncentiveRate   map[Tier]float64 `json:"incentive_rate"`
	QuoteValidityHr int              `json:"quote_validity_hr"`
}

// MarkupFor returns the markup fraction for a tier, zero when unset.
func (r TierRates) MarkupFor(t Tier) float64 {
	return r.MarkupRate[t]
}

// ReferralFor returns the referral commission fraction for a tier.
func (r TierRates) ReferralFor(t Tier) float64 {
	return r.ReferralRate[t]
}

// IncentiveFor returns the originating incentive fraction for a tier.
func (r TierRates) IncentiveFor(t Tier) float64 {
	return r.IncentiveRate[t]
}
