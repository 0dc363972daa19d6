package commissions

import (
	"math"

	"github.com/bali-malayali/bali-malayali/internal/agents"
	"github.com/bali-malayali/bali-malayali/internal/settings"
)

// Compute derives the commission set owed for a paid quote. The result is a
// pure function of its inputs; rates come from the passed configuration, never
// from ambient state. A rate of zero means that commission does not apply.
func Compute(quoteID, finalTotalIDR int64, owner agents.Agent, referrer *agents.Agent, cfg settings.TierRates) []Commission {
	var out []Commission

	if referrer != nil {
		if rate := cfg.ReferralFor(referrer.Tier); rate > 0 {
			out = append(out, Commission{
				QuoteID:            quoteID,
				OriginatingAgentID: owner.ID,
				ReferrerID:         &referrer.ID,
				AmountIDR:          int64(math.Round(float64(finalTotalIDR) * rate)),
				Type:               TypeReferral,
				Status:             StatusPending,
			})
		}
	}

	if rate := cfg.IncentiveFor(owner.Tier); rate > 0 {
		out = append(out, Commission{
			QuoteID:            quoteID,
			OriginatingAgentID: owner.ID,
			AmountIDR:          int64(math.Round(float64(finalTotalIDR) * rate)),
			Type:               TypeOriginating,
			Status:             StatusPending,
		})
	}

	return out
}
