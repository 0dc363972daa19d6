// Package commissions materialises the money owed to agents once a quote is
// paid. Rows are written exactly once per (quote, type); only status moves
// afterwards.
package commissions

import "time"

// Type distinguishes the two commission kinds of a paid quote.
type Type string

const (
	// TypeReferral pays the agent who referred the quote's owner.
	TypeReferral Type = "referral"
	// TypeOriginating pays the owning agent's own tier incentive.
	TypeOriginating Type = "originating"
)

// Status tracks payout progress.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReleased Status = "released"
)

// Commission is one payout owed for a paid quote.
type Commission struct {
	ID                 int64     `json:"id"`
	QuoteID            int64     `json:"quote_id"`
	OriginatingAgentID int64     `json:"originating_agent_id"`
	ReferrerID         *int64    `json:"referrer_id,omitempty"`
	AmountIDR          int64     `json:"amount_idr"`
	Type               Type      `json:"type"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	ReleasedAt         *time.Time `json:"released_at,omitempty"`
}
