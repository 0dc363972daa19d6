package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/bali-malayali/bali-malayali/internal/settings"
)

var (
	// ErrReferralCycle indicates the new referral edge would close a loop.
	// Cycles are rejected here, at write time; no runtime traversal ever
	// needs to guard against them.
	ErrReferralCycle = errors.New("agents: referral chain would form a cycle")
	// ErrUnknownTier indicates an unrecognised tier value.
	ErrUnknownTier = errors.New("agents: unknown tier")
)

// maxReferralDepth bounds chain walks; a healthy chain is a handful of hops.
const maxReferralDepth = 32

// Service handles agent and client management.
type Service struct {
	repo Repository
}

// NewService builds the agents service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns one agent.
func (s *Service) Get(ctx context.Context, id int64) (*Agent, error) {
	return s.repo.Get(ctx, id)
}

// Create registers an agent, validating the tier and the referral chain.
func (s *Service) Create(ctx context.Context, agent Agent) (int64, error) {
	if !agent.Tier.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, agent.Tier)
	}
	if agent.ReferredBy != nil {
		if err := s.checkReferralChain(ctx, *agent.ReferredBy); err != nil {
			return 0, err
		}
	}
	return s.repo.Create(ctx, agent)
}

// Approve flips the admin approval flag.
func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.repo.Approve(ctx, id)
}

// SetTier moves an agent to a different tier. Existing sent quotes keep the
// pricing frozen at their send time; only future pricing changes.
func (s *Service) SetTier(ctx context.Context, id int64, tier settings.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return s.repo.SetTier(ctx, id, string(tier))
}

// Referrer resolves the direct referrer of an agent, nil when unreferred.
func (s *Service) Referrer(ctx context.Context, agentID int64) (*Agent, error) {
	agent, err := s.repo.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.ReferredBy == nil {
		return nil, nil
	}
	return s.repo.Get(ctx, *agent.ReferredBy)
}

// CreateClient registers a traveller under the owning agent.
func (s *Service) CreateClient(ctx context.Context, client Client) (int64, error) {
	if _, err := s.repo.Get(ctx, client.AgentID); err != nil {
		return 0, err
	}
	return s.repo.CreateClient(ctx, client)
}

// GetClient returns one client.
func (s *Service) GetClient(ctx context.Context, id int64) (*Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients returns the agent's book of clients.
func (s *Service) ListClients(ctx context.Context, agentID int64) ([]Client, error) {
	return s.repo.ListClients(ctx, agentID)
}

// checkReferralChain walks upward from the proposed referrer. The new agent
// does not exist yet so any loop must already involve existing rows; a depth
// overrun is treated the same as a cycle.
func (s *Service) checkReferralChain(ctx context.Context, referrerID int64) error {
	seen := map[int64]bool{}
	current := referrerID
	for depth := 0; depth < maxReferralDepth; depth++ {
		if seen[current] {
			return ErrReferralCycle
		}
		seen[current] = true
		agent, err := s.repo.Get(ctx, current)
		if err != nil {
			return err
		}
		if agent.ReferredBy == nil {
			return nil
		}
		current = *agent.ReferredBy
	}
	return ErrReferralCycle
}
