package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bali-malayali/bali-malayali/internal/platform/db"
)

// ErrNotFound indicates a missing payment row.
var ErrNotFound = errors.New("payments: record not found")

// Repository is the storage port for the ledger. LockQuote takes the quote
// row lock so same-quote verifications serialise; the settlement check and
// paid transition then cannot race each other.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Create(ctx context.Context, p Payment) (int64, error)
	Get(ctx context.Context, id int64) (*Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*Payment, error)
	FindByGatewayRef(ctx context.Context, ref string) (*Payment, error)
	ListByQuote(ctx context.Context, quoteID int64) ([]Payment, error)
	SetProof(ctx context.Context, id int64, proofURL string) error
	MarkVerified(ctx context.Context, id, verifiedBy int64) error
	MarkRejected(ctx context.Context, id, verifiedBy int64, reason string) error
	SumVerifiedIDR(ctx context.Context, quoteID int64) (int64, error)
	LockQuote(ctx context.Context, quoteID int64) (finalTotalIDR int64, status string, err error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed ledger repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const paymentColumns = `id, quote_id, agent_id, amount_paid, currency_paid, amount_idr, fx_rate_used,
	is_manual, status, proof_url, reject_reason, gateway_ref, verified_by, verified_at, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.QuoteID, &p.AgentID, &p.AmountPaid, &p.CurrencyPaid, &p.AmountIDR, &p.FxRateUsed,
		&p.IsManual, &p.Status, &p.ProofURL, &p.RejectReason, &p.GatewayRef, &p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payments: scan: %w", err)
	}
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (quote_id, agent_id, amount_paid, currency_paid, amount_idr, fx_rate_used,
			is_manual, status, proof_url, gateway_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id
	`, p.QuoteID, p.AgentID, p.AmountPaid, p.CurrencyPaid, p.AmountIDR, p.FxRateUsed,
		p.IsManual, p.Status, p.ProofURL, p.GatewayRef).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("payments: create: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) FindByGatewayRef(ctx context.Context, ref string) (*Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_ref = $1`, ref))
}

func (r *repository) ListByQuote(ctx context.Context, quoteID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE quote_id = $1 ORDER BY id`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("payments: list: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) SetProof(ctx context.Context, id int64, proofURL string) error {
	tag, err := r.db.Exec(ctx, `UPDATE payments SET proof_url = $2 WHERE id = $1 AND status = $3`, id, proofURL, StatusPending)
	if err != nil {
		return fmt.Errorf("payments: set proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkVerified(ctx context.Context, id, verifiedBy int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $2, verified_by = $3, verified_at = NOW() WHERE id = $1
	`, id, StatusVerified, verifiedBy)
	if err != nil {
		return fmt.Errorf("payments: mark verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkRejected(ctx context.Context, id, verifiedBy int64, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $2, verified_by = $3, verified_at = NOW(), reject_reason = $4 WHERE id = $1
	`, id, StatusRejected, verifiedBy, reason)
	if err != nil {
		return fmt.Errorf("payments: mark rejected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SumVerifiedIDR(ctx context.Context, quoteID int64) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_idr), 0) FROM payments WHERE quote_id = $1 AND status = $2
	`, quoteID, StatusVerified).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("payments: sum verified: %w", err)
	}
	return sum, nil
}

func (r *repository) LockQuote(ctx context.Context, quoteID int64) (int64, string, error) {
	var finalTotal int64
	var status string
	err := r.db.QueryRow(ctx, `SELECT final_total_idr, status FROM quotes WHERE id = $1 FOR UPDATE`, quoteID).
		Scan(&finalTotal, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrNotFound
		}
		return 0, "", fmt.Errorf("payments: lock quote: %w", err)
	}
	return finalTotal, status, nil
}
