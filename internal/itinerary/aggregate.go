// Package itinerary sums a day-by-day plan plus the selected room into a base
// cost. Like rate resolution, aggregation is side-effect free.
package itinerary

import (
	"fmt"
	"sort"
	"time"

	"github.com/bali-malayali/bali-malayali/internal/catalog"
	"github.com/bali-malayali/bali-malayali/internal/rates"
)

// Day is one itinerary day of a quote.
type Day struct {
	Number      int            `json:"number"`
	Date        time.Time      `json:"date"`
	Region      catalog.Region `json:"region"`
	Activities  []string       `json:"activities"`
	EntryFeeIDs []int64        `json:"entry_fee_ids"`
}

// ItineraryGapError reports a day plan that is not a contiguous 1..N sequence
// matching the stay's night count.
type ItineraryGapError struct {
	QuoteID int64
	Detail  string
}

func (e *ItineraryGapError) Error() string {
	return fmt.Sprintf("itinerary: quote %d: %s", e.QuoteID, e.Detail)
}

// NoTransportTierError reports that no vehicle tier fits the party size.
type NoTransportTierError struct {
	QuoteID   int64
	DayNumber int
	Region    catalog.Region
	Pax       int
}

func (e *NoTransportTierError) Error() string {
	return fmt.Sprintf("itinerary: quote %d day %d: no %s vehicle tier fits %d pax", e.QuoteID, e.DayNumber, e.Region, e.Pax)
}

// UnknownEntryFeeError reports a referenced fee missing from the catalog.
type UnknownEntryFeeError struct {
	QuoteID   int64
	DayNumber int
	FeeID     int64
}

func (e *UnknownEntryFeeError) Error() string {
	return fmt.Sprintf("itinerary: quote %d day %d: unknown entry fee %d", e.QuoteID, e.DayNumber, e.FeeID)
}

// Input bundles everything aggregation needs, pre-fetched by the caller so
// the computation itself never touches the store.
type Input struct {
	QuoteID        int64
	Days           []Day
	Room           catalog.HotelRoom
	RoomRates      []catalog.SeasonalRate
	TransportRates map[catalog.Region][]catalog.TransportRate
	EntryFees      map[int64]catalog.EntryFee
	CheckIn        time.Time
	CheckOut       time.Time
	Adults         int
	Children       int
}

// Breakdown is the aggregated base cost with its parts.
type Breakdown struct {
	RoomCostIDR      int64               `json:"room_cost_idr"`
	TransportCostIDR int64               `json:"transport_cost_idr"`
	EntryFeeCostIDR  int64               `json:"entry_fee_cost_idr"`
	BaseCostIDR      int64               `json:"base_cost_idr"`
	NightlyRates     []rates.NightlyRate `json:"nightly_rates"`
}

// Aggregate validates the day plan and sums room, transport and entry-fee
// costs into the quote's base cost.
func Aggregate(in Input) (Breakdown, error) {
	if err := ValidatePlan(in); err != nil {
		return Breakdown{}, err
	}

	roomCost, err := rates.ResolveRoomRate(in.Room, in.RoomRates, in.CheckIn, in.CheckOut, in.Adults, in.Children)
	if err != nil {
		return Breakdown{}, err
	}

	transport, fees, err := LandCost(in)
	if err != nil {
		return Breakdown{}, err
	}

	out := Breakdown{
		RoomCostIDR:      roomCost.TotalRoomCostIDR,
		TransportCostIDR: transport,
		EntryFeeCostIDR:  fees,
		NightlyRates:     roomCost.NightlyRates,
	}
	out.BaseCostIDR = out.RoomCostIDR + out.TransportCostIDR + out.EntryFeeCostIDR
	return out, nil
}

// ValidatePlan checks that the day plan is a contiguous 1..N sequence that
// matches the stay's night count and falls inside the travel window.
func ValidatePlan(in Input) error {
	nights := int(in.CheckOut.Sub(in.CheckIn).Hours() / 24)
	return validateDays(in, nights)
}

// LandCost sums the room-independent costs of the plan: transport per day and
// entry fees per head. Callers pricing several room alternatives against the
// same plan compute this once.
func LandCost(in Input) (transportIDR, entryFeeIDR int64, err error) {
	totalPax := in.Adults + in.Children
	for _, day := range in.Days {
		tier, ok := pickTransportTier(in.TransportRates[day.Region], totalPax)
		if !ok {
			return 0, 0, &NoTransportTierError{QuoteID: in.QuoteID, DayNumber: day.Number, Region: day.Region, Pax: totalPax}
		}
		transportIDR += tier.RatePerDayIDR

		for _, feeID := range day.EntryFeeIDs {
			fee, ok := in.EntryFees[feeID]
			if !ok {
				return 0, 0, &UnknownEntryFeeError{QuoteID: in.QuoteID, DayNumber: day.Number, FeeID: feeID}
			}
			entryFeeIDR += fee.PriceIDR * int64(totalPax)
		}
	}
	return transportIDR, entryFeeIDR, nil
}

func validateDays(in Input, nights int) error {
	if len(in.Days) == 0 {
		return &ItineraryGapError{QuoteID: in.QuoteID, Detail: "no days planned"}
	}
	if len(in.Days) != nights {
		return &ItineraryGapError{QuoteID: in.QuoteID, Detail: fmt.Sprintf("%d days planned for %d nights", len(in.Days), nights)}
	}

	days := make([]Day, len(in.Days))
	copy(days, in.Days)
	sort.Slice(days, func(i, j int) bool { return days[i].Number < days[j].Number })

	for i, day := range days {
		if day.Number != i+1 {
			return &ItineraryGapError{QuoteID: in.QuoteID, Detail: fmt.Sprintf("day numbers not contiguous at position %d (got %d)", i+1, day.Number)}
		}
		if day.Date.Before(in.CheckIn) || day.Date.After(in.CheckOut) {
			return &ItineraryGapError{QuoteID: in.QuoteID, Detail: fmt.Sprintf("day %d dated %s outside travel window", day.Number, day.Date.Format("2006-01-02"))}
		}
	}
	return nil
}

// pickTransportTier selects the smallest tier that fits the party. tiers are
// stored ordered by pax_limit but selection does not rely on that.
func pickTransportTier(tiers []catalog.TransportRate, pax int) (catalog.TransportRate, bool) {
	var best catalog.TransportRate
	found := false
	for _, tier := range tiers {
		if tier.PaxLimit < pax {
			continue
		}
		if !found || tier.PaxLimit < best.PaxLimit {
			best = tier
			found = true
		}
	}
	return best, found
}
