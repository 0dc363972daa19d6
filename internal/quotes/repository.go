package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bali-malayali/bali-malayali/internal/platform/db"
)

// ErrNotFound indicates a missing quote-related row.
var ErrNotFound = errors.New("quotes: record not found")

// Repository is the storage port for quotes. WithTx hands the callback a
// repository bound to one transaction; GetForUpdate only locks inside one.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Get(ctx context.Context, id int64) (*Quote, error)
	GetForUpdate(ctx context.Context, id int64) (*Quote, error)
	Create(ctx context.Context, q Quote) (int64, error)
	UpdateHeader(ctx context.Context, q Quote) error
	UpdatePricing(ctx context.Context, id int64, baseCost, markup, finalTotal int64, currency string, rate float64) error
	UpdateStatus(ctx context.Context, id int64, to Status) error
	SetSendSnapshot(ctx context.Context, id int64, policy json.RawMessage, rate float64, expiresAt time.Time) error
	SetSelectedOption(ctx context.Context, id, optionID int64) error
	SetHoldPrev(ctx context.Context, id int64, prev *Status) error
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
	ListDueForExpiry(ctx context.Context, now time.Time) ([]int64, error)

	ReplaceDays(ctx context.Context, quoteID int64, days []Day) error
	ListDays(ctx context.Context, quoteID int64) ([]Day, error)

	ReplaceOptions(ctx context.Context, quoteID int64, options []Option) error
	ListOptions(ctx context.Context, quoteID int64) ([]Option, error)
	GetOption(ctx context.Context, id int64) (*Option, error)
	UpdateOptionPricing(ctx context.Context, id int64, totalCost, markup, finalTotal int64) error

	AppendHistory(ctx context.Context, change StatusChange) error
	ListHistory(ctx context.Context, quoteID int64) ([]StatusChange, error)

	InsertVersion(ctx context.Context, v Version) (int64, error)
	ListVersions(ctx context.Context, quoteID int64) ([]Version, error)

	CreateDispute(ctx context.Context, d Dispute) (int64, error)
	GetOpenDispute(ctx context.Context, quoteID int64) (*Dispute, error)
	ResolveDispute(ctx context.Context, id, resolvedBy int64) error
}

// ListQuotesRequest filters quote listings.
type ListQuotesRequest struct {
	AgentID  *int64
	ClientID *int64
	Status   *Status
	Limit    int
	Offset   int
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

// NewRepository constructs a pgx-backed quote repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quoteColumns = `id, agent_id, client_id, travel_start, travel_end, pax, children, status,
	base_cost_idr, markup_idr, final_total_idr, display_currency, exchange_rate_used,
	cancellation_policy_snapshot, expires_at, trip_status, selected_option_id, hold_prev_status,
	created_at, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.AgentID, &q.ClientID, &q.TravelStart, &q.TravelEnd, &q.Pax, &q.Children,
		&q.Status, &q.BaseCostIDR, &q.MarkupIDR, &q.FinalTotalIDR, &q.DisplayCurrency, &q.ExchangeRateUsed,
		&q.PolicySnapshot, &q.ExpiresAt, &q.TripStatus, &q.SelectedOptionID, &q.HoldPrevStatus,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("quotes: scan: %w", err)
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	return scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Quote, error) {
	return scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) Create(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotes (agent_id, client_id, travel_start, travel_end, pax, children, status,
			display_currency, exchange_rate_used, trip_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`, q.AgentID, q.ClientID, q.TravelStart, q.TravelEnd, q.Pax, q.Children, q.Status,
		q.DisplayCurrency, q.ExchangeRateUsed, q.TripStatus).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("quotes: create: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, q Quote) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotes SET travel_start = $2, travel_end = $3, pax = $4, children = $5,
			display_currency = $6, updated_at = NOW()
		WHERE id = $1
	`, q.ID, q.TravelStart, q.TravelEnd, q.Pax, q.Children, q.DisplayCurrency)
	if err != nil {
		return fmt.Errorf("quotes: update header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdatePricing(ctx context.Context, id int64, baseCost, markup, finalTotal int64, currency string, rate float64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE quotes SET base_cost_idr = $2, markup_idr = $3, final_total_idr = $4,
			display_currency = $5, exchange_rate_used = $6, updated_at = NOW()
		WHERE id = $1
	`, id, baseCost, markup, finalTotal, currency, rate)
	if err != nil {
		return fmt.Errorf("quotes: update pricing: %w", err)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, to Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET status = $2, updated_at = NOW() WHERE id = $1`, id, to)
	if err != nil {
		return fmt.Errorf("quotes: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetSendSnapshot(ctx context.Context, id int64, policy json.RawMessage, rate float64, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE quotes SET cancellation_policy_snapshot = $2, exchange_rate_used = $3,
			expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`, id, policy, rate, expiresAt)
	if err != nil {
		return fmt.Errorf("quotes: set send snapshot: %w", err)
	}
	return nil
}

func (r *repository) SetSelectedOption(ctx context.Context, id, optionID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE quotes SET selected_option_id = $2, updated_at = NOW() WHERE id = $1`, id, optionID)
	if err != nil {
		return fmt.Errorf("quotes: set selected option: %w", err)
	}
	return nil
}

func (r *repository) SetHoldPrev(ctx context.Context, id int64, prev *Status) error {
	_, err := r.db.Exec(ctx, `UPDATE quotes SET hold_prev_status = $2, updated_at = NOW() WHERE id = $1`, id, prev)
	if err != nil {
		return fmt.Errorf("quotes: set hold prev: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	where := "WHERE TRUE"
	var args []any
	arg := 1
	if req.AgentID != nil {
		where += fmt.Sprintf(" AND agent_id = $%d", arg)
		args = append(args, *req.AgentID)
		arg++
	}
	if req.ClientID != nil {
		where += fmt.Sprintf(" AND client_id = $%d", arg)
		args = append(args, *req.ClientID)
		arg++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", arg)
		args = append(args, *req.Status)
		arg++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotes "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("quotes: count: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM quotes %s ORDER BY id DESC LIMIT $%d OFFSET $%d", quoteColumns, where, arg, arg+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("quotes: list: %w", err)
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) ListDueForExpiry(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM quotes
		WHERE status IN ($1, $2) AND expires_at IS NOT NULL AND expires_at < $3
	`, StatusSent, StatusApproved, now)
	if err != nil {
		return nil, fmt.Errorf("quotes: list due for expiry: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) ReplaceDays(ctx context.Context, quoteID int64, days []Day) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quote_days WHERE quote_id = $1`, quoteID); err != nil {
		return fmt.Errorf("quotes: delete days: %w", err)
	}
	for _, day := range days {
		activities, err := json.Marshal(day.Activities)
		if err != nil {
			return fmt.Errorf("quotes: encode activities: %w", err)
		}
		_, err = r.db.Exec(ctx, `
			INSERT INTO quote_days (quote_id, day_number, day_date, region, activities, entry_fee_ids)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, quoteID, day.DayNumber, day.DayDate, day.Region, activities, day.EntryFeeIDs)
		if err != nil {
			return fmt.Errorf("quotes: insert day: %w", err)
		}
	}
	return nil
}

func (r *repository) ListDays(ctx context.Context, quoteID int64) ([]Day, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quote_id, day_number, day_date, region, activities, entry_fee_ids
		FROM quote_days WHERE quote_id = $1 ORDER BY day_number
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("quotes: list days: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var day Day
		var activities []byte
		if err := rows.Scan(&day.ID, &day.QuoteID, &day.DayNumber, &day.DayDate, &day.Region, &activities, &day.EntryFeeIDs); err != nil {
			return nil, err
		}
		if len(activities) > 0 {
			if err := json.Unmarshal(activities, &day.Activities); err != nil {
				return nil, fmt.Errorf("quotes: decode activities: %w", err)
			}
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (r *repository) ReplaceOptions(ctx context.Context, quoteID int64, options []Option) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quote_options WHERE quote_id = $1`, quoteID); err != nil {
		return fmt.Errorf("quotes: delete options: %w", err)
	}
	for _, opt := range options {
		_, err := r.db.Exec(ctx, `
			INSERT INTO quote_options (quote_id, option_number, hotel_room_ids, room_cost_idr,
				land_cost_idr, total_cost_idr, markup_idr, final_total_idr)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, quoteID, opt.OptionNumber, opt.HotelRoomIDs, opt.RoomCostIDR,
			opt.LandCostIDR, opt.TotalCostIDR, opt.MarkupIDR, opt.FinalTotalIDR)
		if err != nil {
			return fmt.Errorf("quotes: insert option: %w", err)
		}
	}
	return nil
}

func (r *repository) ListOptions(ctx context.Context, quoteID int64) ([]Option, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quote_id, option_number, hotel_room_ids, room_cost_idr, land_cost_idr,
			total_cost_idr, markup_idr, final_total_idr
		FROM quote_options WHERE quote_id = $1 ORDER BY option_number
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("quotes: list options: %w", err)
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var opt Option
		if err := rows.Scan(&opt.ID, &opt.QuoteID, &opt.OptionNumber, &opt.HotelRoomIDs, &opt.RoomCostIDR,
			&opt.LandCostIDR, &opt.TotalCostIDR, &opt.MarkupIDR, &opt.FinalTotalIDR); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func (r *repository) GetOption(ctx context.Context, id int64) (*Option, error) {
	var opt Option
	err := r.db.QueryRow(ctx, `
		SELECT id, quote_id, option_number, hotel_room_ids, room_cost_idr, land_cost_idr,
			total_cost_idr, markup_idr, final_total_idr
		FROM quote_options WHERE id = $1
	`, id).Scan(&opt.ID, &opt.QuoteID, &opt.OptionNumber, &opt.HotelRoomIDs, &opt.RoomCostIDR,
		&opt.LandCostIDR, &opt.TotalCostIDR, &opt.MarkupIDR, &opt.FinalTotalIDR)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("quotes: get option: %w", err)
	}
	return &opt, nil
}

func (r *repository) UpdateOptionPricing(ctx context.Context, id int64, totalCost, markup, finalTotal int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE quote_options SET total_cost_idr = $2, markup_idr = $3, final_total_idr = $4 WHERE id = $1
	`, id, totalCost, markup, finalTotal)
	if err != nil {
		return fmt.Errorf("quotes: update option pricing: %w", err)
	}
	return nil
}

func (r *repository) AppendHistory(ctx context.Context, change StatusChange) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO quote_status_history (quote_id, status_from, status_to, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
	`, change.QuoteID, change.From, change.To, change.ChangedBy, change.ChangedAt)
	if err != nil {
		return fmt.Errorf("quotes: append history: %w", err)
	}
	return nil
}

func (r *repository) ListHistory(ctx context.Context, quoteID int64) ([]StatusChange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quote_id, status_from, status_to, changed_by, changed_at
		FROM quote_status_history WHERE quote_id = $1 ORDER BY id
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("quotes: list history: %w", err)
	}
	defer rows.Close()

	var changes []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.QuoteID, &c.From, &c.To, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *repository) InsertVersion(ctx context.Context, v Version) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quote_versions (quote_id, version_number, snapshot, created_at)
		VALUES ($1, COALESCE((SELECT MAX(version_number) FROM quote_versions WHERE quote_id = $1), 0) + 1, $2, NOW())
		RETURNING id
	`, v.QuoteID, v.Snapshot).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("quotes: insert version: %w", err)
	}
	return id, nil
}

func (r *repository) ListVersions(ctx context.Context, quoteID int64) ([]Version, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quote_id, version_number, snapshot, created_at
		FROM quote_versions WHERE quote_id = $1 ORDER BY version_number
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("quotes: list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.QuoteID, &v.VersionNumber, &v.Snapshot, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *repository) CreateDispute(ctx context.Context, d Dispute) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO disputes (quote_id, reason, resume_status, opened_by, opened_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`, d.QuoteID, d.Reason, d.ResumeStatus, d.OpenedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("quotes: create dispute: %w", err)
	}
	return id, nil
}

func (r *repository) GetOpenDispute(ctx context.Context, quoteID int64) (*Dispute, error) {
	var d Dispute
	err := r.db.QueryRow(ctx, `
		SELECT id, quote_id, reason, resume_status, opened_by, opened_at, resolved_by, resolved_at
		FROM disputes WHERE quote_id = $1 AND resolved_at IS NULL
		ORDER BY id DESC LIMIT 1
	`, quoteID).Scan(&d.ID, &d.QuoteID, &d.Reason, &d.ResumeStatus, &d.OpenedBy, &d.OpenedAt, &d.ResolvedBy, &d.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("quotes: get open dispute: %w", err)
	}
	return &d, nil
}

func (r *repository) ResolveDispute(ctx context.Context, id, resolvedBy int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE disputes SET resolved_by = $2, resolved_at = NOW() WHERE id = $1 AND resolved_at IS NULL
	`, id, resolvedBy)
	if err != nil {
		return fmt.Errorf("quotes: resolve dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
