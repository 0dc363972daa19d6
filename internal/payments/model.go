// Package payments is the reconciliation ledger. Payments accumulate against
// a quote until the verified sum covers the final total; settlement then fires
// the paid transition exactly once.
package payments

import (
	"fmt"
	"time"
)

// Status tracks verification of one payment row.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Payment is one ledger row. AmountIDR is AmountPaid converted with the rate
// at payment time; settlement sums AmountIDR, never reconverts.
type Payment struct {
	ID           int64      `json:"id"`
	QuoteID      int64      `json:"quote_id"`
	AgentID      int64      `json:"agent_id"`
	AmountPaid   int64      `json:"amount_paid"`
	CurrencyPaid string     `json:"currency_paid"`
	AmountIDR    int64      `json:"amount_idr"`
	FxRateUsed   float64    `json:"fx_rate_used"`
	IsManual     bool       `json:"is_manual"`
	Status       Status     `json:"status"`
	ProofURL     *string    `json:"proof_url,omitempty"`
	RejectReason *string    `json:"reject_reason,omitempty"`
	GatewayRef   *string    `json:"gateway_ref,omitempty"`
	VerifiedBy   *int64     `json:"verified_by,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// MissingProofError reports verification of a manual payment without a proof
// reference.
type MissingProofError struct {
	PaymentID int64
	QuoteID   int64
}

func (e *MissingProofError) Error() string {
	return fmt.Sprintf("payments: payment %d (quote %d): manual payment needs a proof reference before verification", e.PaymentID, e.QuoteID)
}
