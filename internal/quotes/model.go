package quotes

import (
	"encoding/json"
	"time"

	"github.com/bali-malayali/bali-malayali/internal/catalog"
)

// Status is the quote lifecycle state. The schema enum is authoritative;
// the four-state subset some dashboards show is a projection of this one.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusRevised  Status = "revised"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
	StatusExpired  Status = "expired"
	StatusVoid     Status = "void"
	StatusOnHold   Status = "on_hold_external_issue"
)

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusExpired, StatusVoid:
		return true
	}
	return false
}

// Quote is the priced offer an agent sends a client.
type Quote struct {
	ID               int64           `json:"id"`
	AgentID          int64           `json:"agent_id"`
	ClientID         int64           `json:"client_id"`
	TravelStart      time.Time       `json:"travel_start"`
	TravelEnd        time.Time       `json:"travel_end"`
	Pax              int             `json:"pax"`
	Children         int             `json:"children"`
	Status           Status          `json:"status"`
	BaseCostIDR      int64           `json:"base_cost_idr"`
	MarkupIDR        int64           `json:"markup_idr"`
	FinalTotalIDR    int64           `json:"final_total_idr"`
	DisplayCurrency  string          `json:"display_currency"`
	ExchangeRateUsed float64         `json:"exchange_rate_used"`
	PolicySnapshot   json.RawMessage `json:"cancellation_policy_snapshot,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	TripStatus       string          `json:"trip_status,omitempty"`
	SelectedOptionID *int64          `json:"selected_option_id,omitempty"`
	HoldPrevStatus   *Status         `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Nights returns the stay length in nights.
func (q Quote) Nights() int {
	return int(q.TravelEnd.Sub(q.TravelStart).Hours() / 24)
}

// Option is one priced alternative of a quote. Options are compared side by
// side and priced independently; the client picks exactly one at approval.
type Option struct {
	ID            int64   `json:"id"`
	QuoteID       int64   `json:"quote_id"`
	OptionNumber  int     `json:"option_number"`
	HotelRoomIDs  []int64 `json:"hotel_room_ids"`
	RoomCostIDR   int64   `json:"room_cost_idr"`
	LandCostIDR   int64   `json:"land_cost_idr"`
	TotalCostIDR  int64   `json:"total_cost_idr"`
	MarkupIDR     int64   `json:"markup_idr"`
	FinalTotalIDR int64   `json:"final_total_idr"`
}

// Day is one itinerary day row of a quote.
type Day struct {
	ID          int64          `json:"id"`
	QuoteID     int64          `json:"quote_id"`
	DayNumber   int            `json:"day_number"`
	DayDate     time.Time      `json:"day_date"`
	Region      catalog.Region `json:"region"`
	Activities  []string       `json:"activities"`
	EntryFeeIDs []int64        `json:"entry_fee_ids"`
}

// StatusChange is one row of the append-only quote_status_history log. It is
// the audit source only; current state always lives on the quote row.
type StatusChange struct {
	ID        int64     `json:"id"`
	QuoteID   int64     `json:"quote_id"`
	From      Status    `json:"status_from"`
	To        Status    `json:"status_to"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// Version is a frozen copy of a quote taken every time a sent quote is
// revised, so the client-facing document trail stays reconstructable.
type Version struct {
	ID            int64           `json:"id"`
	QuoteID       int64           `json:"quote_id"`
	VersionNumber int             `json:"version_number"`
	Snapshot      json.RawMessage `json:"snapshot"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Dispute tracks an external issue holding a quote. ResumeStatus remembers
// where the quote goes back to once the issue resolves.
type Dispute struct {
	ID           int64      `json:"id"`
	QuoteID      int64      `json:"quote_id"`
	Reason       string     `json:"reason"`
	ResumeStatus Status     `json:"resume_status"`
	OpenedBy     int64      `json:"opened_by"`
	OpenedAt     time.Time  `json:"opened_at"`
	ResolvedBy   *int64     `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}
