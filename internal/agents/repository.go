package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing agent or client row.
var ErrNotFound = errors.New("agents: record not found")

// Repository provides access to agents and their clients.
type Repository interface {
	Get(ctx context.Context, id int64) (*Agent, error)
	Create(ctx context.Context, agent Agent) (int64, error)
	Approve(ctx context.Context, id int64) error
	SetTier(ctx context.Context, id int64, tier string) error

	GetClient(ctx context.Context, id int64) (*Client, error)
	CreateClient(ctx context.Context, client Client) (int64, error)
	ListClients(ctx context.Context, agentID int64) ([]Client, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed agents repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Agent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, tier, referred_by_agent_id, is_approved, created_at, updated_at
		FROM agents WHERE id = $1
	`, id)
	var a Agent
	if err := row.Scan(&a.ID, &a.Name, &a.Tier, &a.ReferredBy, &a.IsApproved, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agents: get: %w", err)
	}
	return &a, nil
}

func (r *repository) Create(ctx context.Context, agent Agent) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO agents (name, tier, referred_by_agent_id, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`, agent.Name, agent.Tier, agent.ReferredBy, agent.IsApproved).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("agents: create: %w", err)
	}
	return id, nil
}

func (r *repository) Approve(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE agents SET is_approved = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("agents: approve: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetTier(ctx context.Context, id int64, tier string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE agents SET tier = $2, updated_at = NOW() WHERE id = $1`, id, tier)
	if err != nil {
		return fmt.Errorf("agents: set tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, agent_id, name, created_at FROM clients WHERE id = $1`, id)
	var c Client
	if err := row.Scan(&c.ID, &c.AgentID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agents: get client: %w", err)
	}
	return &c, nil
}

func (r *repository) CreateClient(ctx context.Context, client Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (agent_id, name, created_at) VALUES ($1, $2, NOW()) RETURNING id
	`, client.AgentID, client.Name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("agents: create client: %w", err)
	}
	return id, nil
}

func (r *repository) ListClients(ctx context.Context, agentID int64) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, agent_id, name, created_at FROM clients WHERE agent_id = $1 ORDER BY id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("agents: list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.AgentID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
