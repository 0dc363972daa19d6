package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bali-malayali/bali-malayali/internal/shared"
)

var (
	// ErrRateOverlap indicates a new seasonal rate range collides with an
	// existing one for the same room.
	ErrRateOverlap = errors.New("catalog: seasonal rate ranges overlap")
	// ErrInvalidRange indicates end_date is not after start_date.
	ErrInvalidRange = errors.New("catalog: end_date must be after start_date")
)

// Service guards catalog invariants on top of the repository.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService builds the catalog service. audit may be nil in tests.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// GetRoom returns one room.
func (s *Service) GetRoom(ctx context.Context, id int64) (*HotelRoom, error) {
	return s.repo.GetRoom(ctx, id)
}

// ListRooms returns all rooms for a hotel.
func (s *Service) ListRooms(ctx context.Context, hotelID int64) ([]HotelRoom, error) {
	return s.repo.ListRooms(ctx, hotelID)
}

// CreateRoom stores a room after occupancy sanity checks.
func (s *Service) CreateRoom(ctx context.Context, room HotelRoom, actorID int64) (int64, error) {
	if room.BasePriceIDR <= 0 {
		return 0, errors.New("catalog: base price must be positive")
	}
	if room.MaxCapacity < 2 {
		return 0, errors.New("catalog: max capacity below base occupancy")
	}
	id, err := s.repo.CreateRoom(ctx, room)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actorID, "room.create", "hotel_room", id)
	return id, nil
}

// ListRoomRates returns the seasonal rates configured for a room.
func (s *Service) ListRoomRates(ctx context.Context, roomID int64) ([]SeasonalRate, error) {
	return s.repo.ListRoomRates(ctx, roomID)
}

// CreateRoomRate stores a seasonal rate, rejecting overlapping ranges.
func (s *Service) CreateRoomRate(ctx context.Context, rate SeasonalRate, actorID int64) (int64, error) {
	if !rate.EndDate.After(rate.StartDate) {
		return 0, ErrInvalidRange
	}
	if rate.RateIDR <= 0 {
		return 0, errors.New("catalog: rate must be positive")
	}
	existing, err := s.repo.ListRoomRates(ctx, rate.HotelRoomID)
	if err != nil {
		return 0, err
	}
	for _, other := range existing {
		if rate.StartDate.Before(other.EndDate) && other.StartDate.Before(rate.EndDate) {
			return 0, fmt.Errorf("%w: room %d, existing rate %d", ErrRateOverlap, rate.HotelRoomID, other.ID)
		}
	}
	id, err := s.repo.CreateRoomRate(ctx, rate)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actorID, "rate.create", "seasonal_rate", id)
	return id, nil
}

// ListTransportRates returns the vehicle tiers for a region ordered by pax limit.
func (s *Service) ListTransportRates(ctx context.Context, region Region) ([]TransportRate, error) {
	return s.repo.ListTransportRates(ctx, region)
}

// CreateTransportRate stores a vehicle tier.
func (s *Service) CreateTransportRate(ctx context.Context, rate TransportRate, actorID int64) (int64, error) {
	if rate.PaxLimit <= 0 {
		return 0, errors.New("catalog: pax limit must be positive")
	}
	if rate.RatePerDayIDR <= 0 {
		return 0, errors.New("catalog: rate must be positive")
	}
	id, err := s.repo.CreateTransportRate(ctx, rate)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actorID, "transport.create", "transport_rate", id)
	return id, nil
}

// GetEntryFees loads fees by id.
func (s *Service) GetEntryFees(ctx context.Context, ids []int64) ([]EntryFee, error) {
	return s.repo.GetEntryFees(ctx, ids)
}

// CreateEntryFee stores an admission fee.
func (s *Service) CreateEntryFee(ctx context.Context, fee EntryFee, actorID int64) (int64, error) {
	if fee.PriceIDR < 0 {
		return 0, errors.New("catalog: price must not be negative")
	}
	id, err := s.repo.CreateEntryFee(ctx, fee)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actorID, "entryfee.create", "entry_fee", id)
	return id, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
	})
}
