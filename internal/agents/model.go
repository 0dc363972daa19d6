package agents

import (
	"time"

	"github.com/bali-malayali/bali-malayali/internal/settings"
)

// Agent is a travel agent using the platform. Tier drives markup and
// commission percentages; ReferredBy forms an acyclic referral chain.
type Agent struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Tier       settings.Tier `json:"tier"`
	ReferredBy *int64        `json:"referred_by_agent_id,omitempty"`
	IsApproved bool          `json:"is_approved"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Client is a traveller owned exclusively by one agent.
type Client struct {
	ID        int64     `json:"id"`
	AgentID   int64     `json:"agent_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
