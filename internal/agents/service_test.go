package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bali-malayali/bali-malayali/internal/settings"
)

type memoryAgentRepo struct {
	agents  map[int64]Agent
	clients map[int64]Client
	nextID  int64
}

func newMemoryAgentRepo() *memoryAgentRepo {
	return &memoryAgentRepo{agents: make(map[int64]Agent), clients: make(map[int64]Client)}
}

func (r *memoryAgentRepo) Get(ctx context.Context, id int64) (*Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *memoryAgentRepo) Create(ctx context.Context, agent Agent) (int64, error) {
	r.nextID++
	agent.ID = r.nextID
	r.agents[agent.ID] = agent
	return agent.ID, nil
}

func (r *memoryAgentRepo) Approve(ctx context.Context, id int64) error {
	a, ok := r.agents[id]
	if !ok {
		return ErrNotFound
	}
	a.IsApproved = true
	r.agents[id] = a
	return nil
}

func (r *memoryAgentRepo) SetTier(ctx context.Context, id int64, tier string) error {
	a, ok := r.agents[id]
	if !ok {
		return ErrNotFound
	}
	a.Tier = settings.Tier(tier)
	r.agents[id] = a
	return nil
}

func (r *memoryAgentRepo) GetClient(ctx context.Context, id int64) (*Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memoryAgentRepo) CreateClient(ctx context.Context, client Client) (int64, error) {
	r.nextID++
	client.ID = r.nextID
	r.clients[client.ID] = client
	return client.ID, nil
}

func (r *memoryAgentRepo) ListClients(ctx context.Context, agentID int64) ([]Client, error) {
	var out []Client
	for _, c := range r.clients {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestCreateValidatesTier(t *testing.T) {
	svc := NewService(newMemoryAgentRepo())
	_, err := svc.Create(context.Background(), Agent{Name: "Kerala Travels", Tier: "platinum"})
	require.ErrorIs(t, err, ErrUnknownTier)

	id, err := svc.Create(context.Background(), Agent{Name: "Kerala Travels", Tier: settings.TierGold})
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestCreateRejectsReferralCycle(t *testing.T) {
	repo := newMemoryAgentRepo()
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), Agent{Name: "A", Tier: settings.TierGold})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), Agent{Name: "B", Tier: settings.TierSilver, ReferredBy: &a})
	require.NoError(t, err)

	// Chains referencing existing agents are fine.
	_, err = svc.Create(context.Background(), Agent{Name: "C", Tier: settings.TierBronze, ReferredBy: &b})
	require.NoError(t, err)

	// Corrupt the stored chain into a loop; the next write must refuse it.
	rowA := repo.agents[a]
	rowA.ReferredBy = &b
	repo.agents[a] = rowA
	_, err = svc.Create(context.Background(), Agent{Name: "D", Tier: settings.TierBronze, ReferredBy: &a})
	require.ErrorIs(t, err, ErrReferralCycle)
}

func TestCreateRejectsUnknownReferrer(t *testing.T) {
	svc := NewService(newMemoryAgentRepo())
	missing := int64(404)
	_, err := svc.Create(context.Background(), Agent{Name: "A", Tier: settings.TierGold, ReferredBy: &missing})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetTier(t *testing.T) {
	repo := newMemoryAgentRepo()
	svc := NewService(repo)
	id, _ := svc.Create(context.Background(), Agent{Name: "A", Tier: settings.TierBronze})

	require.ErrorIs(t, svc.SetTier(context.Background(), id, "diamond"), ErrUnknownTier)
	require.NoError(t, svc.SetTier(context.Background(), id, settings.TierGold))
	require.Equal(t, settings.TierGold, repo.agents[id].Tier)
}

func TestReferrer(t *testing.T) {
	svc := NewService(newMemoryAgentRepo())
	a, _ := svc.Create(context.Background(), Agent{Name: "A", Tier: settings.TierGold})
	b, _ := svc.Create(context.Background(), Agent{Name: "B", Tier: settings.TierSilver, ReferredBy: &a})

	ref, err := svc.Referrer(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, a, ref.ID)

	ref, err = svc.Referrer(context.Background(), a)
	require.NoError(t, err)
	require.Nil(t, ref)
}

func TestClients(t *testing.T) {
	svc := NewService(newMemoryAgentRepo())
	agentID, _ := svc.Create(context.Background(), Agent{Name: "A", Tier: settings.TierGold})

	_, err := svc.CreateClient(context.Background(), Client{AgentID: 999, Name: "Ghost"})
	require.ErrorIs(t, err, ErrNotFound)

	id, err := svc.CreateClient(context.Background(), Client{AgentID: agentID, Name: "Anil Kumar"})
	require.NoError(t, err)

	c, err := svc.GetClient(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "Anil Kumar", c.Name)

	list, err := svc.ListClients(context.Background(), agentID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
