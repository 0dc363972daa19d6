package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing catalog row.
var ErrNotFound = errors.New("catalog: record not found")

// Repository provides access to the rate catalog.
type Repository interface {
	GetRoom(ctx context.Context, id int64) (*HotelRoom, error)
	ListRooms(ctx context.Context, hotelID int64) ([]HotelRoom, error)
	CreateRoom(ctx context.Context, room HotelRoom) (int64, error)

	ListRoomRates(ctx context.Context, roomID int64) ([]SeasonalRate, error)
	CreateRoomRate(ctx context.Context, rate SeasonalRate) (int64, error)

	ListTransportRates(ctx context.Context, region Region) ([]TransportRate, error)
	CreateTransportRate(ctx context.Context, rate TransportRate) (int64, error)

	GetEntryFees(ctx context.Context, ids []int64) ([]EntryFee, error)
	CreateEntryFee(ctx context.Context, fee EntryFee) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetRoom(ctx context.Context, id int64) (*HotelRoom, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, hotel_id, name, base_price_idr, child_price_idr, extra_adult_price_idr,
		       max_capacity, allow_child, allow_triple, created_at, updated_at
		FROM hotel_rooms WHERE id = $1
	`, id)
	var room HotelRoom
	err := row.Scan(&room.ID, &room.HotelID, &room.Name, &room.BasePriceIDR, &room.ChildPriceIDR,
		&room.ExtraAdultPriceIDR, &room.MaxCapacity, &room.AllowChild, &room.AllowTriple,
		&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get room: %w", err)
	}
	return &room, nil
}

func (r *repository) ListRooms(ctx context.Context, hotelID int64) ([]HotelRoom, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, hotel_id, name, base_price_idr, child_price_idr, extra_adult_price_idr,
		       max_capacity, allow_child, allow_triple, created_at, updated_at
		FROM hotel_rooms WHERE hotel_id = $1 ORDER BY id
	`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []HotelRoom
	for rows.Next() {
		var room HotelRoom
		if err := rows.Scan(&room.ID, &room.HotelID, &room.Name, &room.BasePriceIDR, &room.ChildPriceIDR,
			&room.ExtraAdultPriceIDR, &room.MaxCapacity, &room.AllowChild, &room.AllowTriple,
			&room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *repository) CreateRoom(ctx context.Context, room HotelRoom) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO hotel_rooms (hotel_id, name, base_price_idr, child_price_idr, extra_adult_price_idr,
			max_capacity, allow_child, allow_triple, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id
	`, room.HotelID, room.Name, room.BasePriceIDR, room.ChildPriceIDR, room.ExtraAdultPriceIDR,
		room.MaxCapacity, room.AllowChild, room.AllowTriple).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create room: %w", err)
	}
	return id, nil
}

func (r *repository) ListRoomRates(ctx context.Context, roomID int64) ([]SeasonalRate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, hotel_room_id, season, start_date, end_date, rate_idr
		FROM seasonal_rates WHERE hotel_room_id = $1 ORDER BY start_date
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list room rates: %w", err)
	}
	defer rows.Close()

	var rates []SeasonalRate
	for rows.Next() {
		var rate SeasonalRate
		if err := rows.Scan(&rate.ID, &rate.HotelRoomID, &rate.Season, &rate.StartDate, &rate.EndDate, &rate.RateIDR); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

func (r *repository) CreateRoomRate(ctx context.Context, rate SeasonalRate) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO seasonal_rates (hotel_room_id, season, start_date, end_date, rate_idr)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rate.HotelRoomID, rate.Season, rate.StartDate, rate.EndDate, rate.RateIDR).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create room rate: %w", err)
	}
	return id, nil
}

func (r *repository) ListTransportRates(ctx context.Context, region Region) ([]TransportRate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, region, vehicle_type, pax_limit, rate_per_day_idr
		FROM transport_rates WHERE region = $1 ORDER BY pax_limit
	`, region)
	if err != nil {
		return nil, fmt.Errorf("catalog: list transport rates: %w", err)
	}
	defer rows.Close()

	var rates []TransportRate
	for rows.Next() {
		var rate TransportRate
		if err := rows.Scan(&rate.ID, &rate.Region, &rate.VehicleType, &rate.PaxLimit, &rate.RatePerDayIDR); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

func (r *repository) CreateTransportRate(ctx context.Context, rate TransportRate) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transport_rates (region, vehicle_type, pax_limit, rate_per_day_idr)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, rate.Region, rate.VehicleType, rate.PaxLimit, rate.RatePerDayIDR).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create transport rate: %w", err)
	}
	return id, nil
}

func (r *repository) GetEntryFees(ctx context.Context, ids []int64) ([]EntryFee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, location, price_idr FROM entry_fees WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog: get entry fees: %w", err)
	}
	defer rows.Close()

	var fees []EntryFee
	for rows.Next() {
		var fee EntryFee
		if err := rows.Scan(&fee.ID, &fee.Location, &fee.PriceIDR); err != nil {
			return nil, err
		}
		fees = append(fees, fee)
	}
	return fees, rows.Err()
}

func (r *repository) CreateEntryFee(ctx context.Context, fee EntryFee) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO entry_fees (location, price_idr) VALUES ($1, $2) RETURNING id
	`, fee.Location, fee.PriceIDR).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create entry fee: %w", err)
	}
	return id, nil
}
