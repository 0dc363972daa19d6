// Package rates resolves seasonal nightly room rates. Resolution is a pure
// function of its inputs: no clock reads, no promotional fallbacks.
package rates

import (
	"errors"
	"fmt"
	"time"

	"github.com/bali-malayali/bali-malayali/internal/catalog"
)

// baseOccupancy is the number of adults covered by base_price_idr.
const baseOccupancy = 2

// RateGapError reports a night not covered by any seasonal rate. There is no
// default-rate fallback; an uncovered night blocks the whole resolution.
type RateGapError struct {
	RoomID int64
	Night  time.Time
}

func (e *RateGapError) Error() string {
	return fmt.Sprintf("rates: no seasonal rate covers night %s for room %d", e.Night.Format("2006-01-02"), e.RoomID)
}

// CapacityError reports a party composition the room cannot host.
type CapacityError struct {
	RoomID   int64
	Adults   int
	Children int
	Reason   string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("rates: room %d cannot host %d adults / %d children: %s", e.RoomID, e.Adults, e.Children, e.Reason)
}

// ErrInvalidStay indicates a non-positive date range.
var ErrInvalidStay = errors.New("rates: check-out must be after check-in")

// NightlyRate is the resolved rate for one night of the stay.
type NightlyRate struct {
	Night   time.Time `json:"night"`
	RateIDR int64     `json:"rate_idr"`
}

// RoomCost is the full resolution result for one room and stay.
type RoomCost struct {
	NightlyRates     []NightlyRate `json:"nightly_rates"`
	TotalRoomCostIDR int64         `json:"total_room_cost_idr"`
}

// ResolveRoomRate resolves the cost of housing the party in room for each
// night in [checkIn, checkOut). seasonRates must be the configured ranges for
// that room; order does not matter.
func ResolveRoomRate(room catalog.HotelRoom, seasonRates []catalog.SeasonalRate, checkIn, checkOut time.Time, adults, children int) (RoomCost, error) {
	if !checkOut.After(checkIn) {
		return RoomCost{}, ErrInvalidStay
	}
	if adults < 1 {
		return RoomCost{}, &CapacityError{RoomID: room.ID, Adults: adults, Children: children, Reason: "at least one adult required"}
	}
	if children > 0 && !room.AllowChild {
		return RoomCost{}, &CapacityError{RoomID: room.ID, Adults: adults, Children: children, Reason: "children not allowed"}
	}
	if adults == 3 && !room.AllowTriple {
		return RoomCost{}, &CapacityError{RoomID: room.ID, Adults: adults, Children: children, Reason: "triple occupancy not allowed"}
	}
	if adults > 3 {
		return RoomCost{}, &CapacityError{RoomID: room.ID, Adults: adults, Children: children, Reason: "more than three adults per room"}
	}
	if adults+children > room.MaxCapacity {
		return RoomCost{}, &CapacityError{RoomID: room.ID, Adults: adults, Children: children, Reason: "exceeds max capacity"}
	}

	var surchargePerNight int64
	if extra := adults - baseOccupancy; extra > 0 {
		surchargePerNight += int64(extra) * room.ExtraAdultPriceIDR
	}
	surchargePerNight += int64(children) * room.ChildPriceIDR

	var cost RoomCost
	for night := checkIn; night.Before(checkOut); night = night.AddDate(0, 0, 1) {
		rate, ok := rateForNight(seasonRates, night)
		if !ok {
			return RoomCost{}, &RateGapError{RoomID: room.ID, Night: night}
		}
		nightly := rate.RateIDR + surchargePerNight
		cost.NightlyRates = append(cost.NightlyRates, NightlyRate{Night: night, RateIDR: nightly})
		cost.TotalRoomCostIDR += nightly
	}
	return cost, nil
}

func rateForNight(seasonRates []catalog.SeasonalRate, night time.Time) (catalog.SeasonalRate, bool) {
	for _, rate := range seasonRates {
		if rate.Covers(night) {
			return rate, true
		}
	}
	return catalog.SeasonalRate{}, false
}
