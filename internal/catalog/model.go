package catalog

import "time"

// Season enumerates seasonal rate bands.
type Season string

const (
	SeasonLow  Season = "low"
	SeasonHigh Season = "high"
	SeasonPeak Season = "peak"
)

// Region enumerates itinerary regions served by the transport fleet.
type Region string

const (
	RegionMainland   Region = "mainland"
	RegionNusaPenida Region = "nusa_penida"
)

// HotelRoom is a bookable room category. base_price_idr covers up to two
// adults per night; surcharges apply per extra head where allowed.
type HotelRoom struct {
	ID                 int64     `json:"id"`
	HotelID            int64     `json:"hotel_id"`
	Name               string    `json:"name"`
	BasePriceIDR       int64     `json:"base_price_idr"`
	ChildPriceIDR      int64     `json:"child_price_idr"`
	ExtraAdultPriceIDR int64     `json:"extra_adult_price_idr"`
	MaxCapacity        int       `json:"max_capacity"`
	AllowChild         bool      `json:"allow_child"`
	AllowTriple        bool      `json:"allow_triple"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SeasonalRate overrides the nightly rate of a room for [StartDate, EndDate).
// Ranges for the same room must not overlap.
type SeasonalRate struct {
	ID          int64     `json:"id"`
	HotelRoomID int64     `json:"hotel_room_id"`
	Season      Season    `json:"season"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	RateIDR     int64     `json:"rate_idr"`
}

// Covers reports whether the rate range contains the given night.
func (r SeasonalRate) Covers(night time.Time) bool {
	return !night.Before(r.StartDate) && night.Before(r.EndDate)
}

// TransportRate is a per-day vehicle tier. The smallest PaxLimit >= party size
// wins when resolving a day's transport cost.
type TransportRate struct {
	ID            int64  `json:"id"`
	Region        Region `json:"region"`
	VehicleType   string `json:"vehicle_type"`
	PaxLimit      int    `json:"pax_limit"`
	RatePerDayIDR int64  `json:"rate_per_day_idr"`
}

// EntryFee is a per-head admission charge for an attraction.
type EntryFee struct {
	ID       int64  `json:"id"`
	Location string `json:"location"`
	PriceIDR int64  `json:"price_idr"`
}
