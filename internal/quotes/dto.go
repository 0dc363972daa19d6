package quotes

import (
	"time"

	"github.com/bali-malayali/bali-malayali/internal/catalog"
)

// CreateQuoteRequest opens a draft quote for a client.
type CreateQuoteRequest struct {
	ClientID        int64         `json:"client_id" validate:"required,gt=0"`
	TravelStart     time.Time     `json:"travel_start" validate:"required"`
	TravelEnd       time.Time     `json:"travel_end" validate:"required"`
	Pax             int           `json:"pax" validate:"required,gt=0"`
	Children        int           `json:"children" validate:"gte=0"`
	DisplayCurrency string        `json:"display_currency" validate:"omitempty,len=3,uppercase"`
	Days            []DayInput    `json:"days" validate:"omitempty,dive"`
	Options         []OptionInput `json:"options" validate:"required,min=1,max=3,dive"`
}

// UpdateItineraryRequest replaces the editable body of a draft or revised
// quote. Header fields are optional; zero values leave them unchanged.
type UpdateItineraryRequest struct {
	TravelStart     *time.Time    `json:"travel_start"`
	TravelEnd       *time.Time    `json:"travel_end"`
	Pax             *int          `json:"pax" validate:"omitempty,gt=0"`
	Children        *int          `json:"children" validate:"omitempty,gte=0"`
	DisplayCurrency *string       `json:"display_currency" validate:"omitempty,len=3,uppercase"`
	Days            []DayInput    `json:"days" validate:"omitempty,dive"`
	Options         []OptionInput `json:"options" validate:"omitempty,min=1,max=3,dive"`
}

// DayInput is one itinerary day as submitted by the agent.
type DayInput struct {
	DayNumber   int       `json:"day_number" validate:"required,gt=0"`
	DayDate     time.Time `json:"day_date" validate:"required"`
	Region      string    `json:"region" validate:"required,oneof=mainland nusa_penida"`
	Activities  []string  `json:"activities"`
	EntryFeeIDs []int64   `json:"entry_fee_ids" validate:"omitempty,dive,gt=0"`
}

func (d DayInput) toDay() Day {
	return Day{
		DayNumber:   d.DayNumber,
		DayDate:     d.DayDate,
		Region:      catalog.Region(d.Region),
		Activities:  d.Activities,
		EntryFeeIDs: d.EntryFeeIDs,
	}
}

// OptionInput is one room alternative as submitted by the agent.
type OptionInput struct {
	HotelRoomIDs []int64 `json:"hotel_room_ids" validate:"required,min=1,max=4,dive,gt=0"`
}

// ApproveRequest records the client's accepted option.
type ApproveRequest struct {
	SelectedOptionID int64 `json:"selected_option_id" validate:"required,gt=0"`
}

// HoldRequest places a quote on hold for an external issue.
type HoldRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// QuoteDetail is the full read model returned to the agent.
type QuoteDetail struct {
	Quote   Quote          `json:"quote"`
	Days    []Day          `json:"days"`
	Options []Option       `json:"options"`
	History []StatusChange `json:"history"`
}

// PricedQuote is the result of a repricing run.
type PricedQuote struct {
	Quote             Quote    `json:"quote"`
	Options           []Option `json:"options"`
	DisplayFinalTotal int64    `json:"display_final_total"`
}
