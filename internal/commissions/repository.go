package commissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing commission row.
var ErrNotFound = errors.New("commissions: record not found")

// DuplicateCommissionError reports an insert that hit the (quote_id, type)
// uniqueness guard. It signals a safe no-op, not a fault; callers log it and
// move on.
type DuplicateCommissionError struct {
	QuoteID int64
	Type    Type
}

func (e *DuplicateCommissionError) Error() string {
	return fmt.Sprintf("commissions: quote %d already has a %s commission", e.QuoteID, e.Type)
}

// Repository is the storage port for commissions.
type Repository interface {
	Create(ctx context.Context, c Commission) (int64, error)
	Get(ctx context.Context, id int64) (*Commission, error)
	ListByQuote(ctx context.Context, quoteID int64) ([]Commission, error)
	ListByAgent(ctx context.Context, agentID int64) ([]Commission, error)
	Release(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed commission repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, c Commission) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO commissions (quote_id, originating_agent_id, referrer_id, amount_idr, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`, c.QuoteID, c.OriginatingAgentID, c.ReferrerID, c.AmountIDR, c.Type, c.Status).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, &DuplicateCommissionError{QuoteID: c.QuoteID, Type: c.Type}
		}
		return 0, fmt.Errorf("commissions: create: %w", err)
	}
	return id, nil
}

const commissionColumns = `id, quote_id, originating_agent_id, referrer_id, amount_idr, type, status, created_at, released_at`

func (r *repository) Get(ctx context.Context, id int64) (*Commission, error) {
	var c Commission
	err := r.pool.QueryRow(ctx, `SELECT `+commissionColumns+` FROM commissions WHERE id = $1`, id).
		Scan(&c.ID, &c.QuoteID, &c.OriginatingAgentID, &c.ReferrerID, &c.AmountIDR, &c.Type, &c.Status, &c.CreatedAt, &c.ReleasedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("commissions: get: %w", err)
	}
	return &c, nil
}

func (r *repository) ListByQuote(ctx context.Context, quoteID int64) ([]Commission, error) {
	return r.list(ctx, `SELECT `+commissionColumns+` FROM commissions WHERE quote_id = $1 ORDER BY id`, quoteID)
}

func (r *repository) ListByAgent(ctx context.Context, agentID int64) ([]Commission, error) {
	return r.list(ctx, `
		SELECT `+commissionColumns+` FROM commissions
		WHERE originating_agent_id = $1 OR referrer_id = $1 ORDER BY id DESC
	`, agentID)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]Commission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("commissions: list: %w", err)
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		var c Commission
		if err := rows.Scan(&c.ID, &c.QuoteID, &c.OriginatingAgentID, &c.ReferrerID, &c.AmountIDR, &c.Type, &c.Status, &c.CreatedAt, &c.ReleasedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Release(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE commissions SET status = $2, released_at = NOW() WHERE id = $1 AND status = $3
	`, id, StatusReleased, StatusPending)
	if err != nil {
		return fmt.Errorf("commissions: release: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
