package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
)

// Handler exposes the rate catalog API. Reads are open to every agent;
// writes are back-office only.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the catalog handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog/hotels/{id}/rooms", h.ListRooms)
	r.Get("/catalog/rooms/{id}", h.ShowRoom)
	r.Get("/catalog/rooms/{id}/rates", h.ListRoomRates)
	r.Get("/catalog/transport", h.ListTransportRates)
	r.Get("/catalog/entry-fees", h.ListEntryFees)
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Post("/catalog/rooms", h.CreateRoom)
		r.Post("/catalog/rooms/{id}/rates", h.CreateRoomRate)
		r.Post("/catalog/transport", h.CreateTransportRate)
		r.Post("/catalog/entry-fees", h.CreateEntryFee)
	})
}

type createRoomRequest struct {
	HotelID            int64  `json:"hotel_id" validate:"required,gt=0"`
	Name               string `json:"name" validate:"required,max=200"`
	BasePriceIDR       int64  `json:"base_price_idr" validate:"required,gt=0"`
	ChildPriceIDR      int64  `json:"child_price_idr" validate:"gte=0"`
	ExtraAdultPriceIDR int64  `json:"extra_adult_price_idr" validate:"gte=0"`
	MaxCapacity        int    `json:"max_capacity" validate:"required,gte=2"`
	AllowChild         bool   `json:"allow_child"`
	AllowTriple        bool   `json:"allow_triple"`
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	var req createRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateRoom(r.Context(), HotelRoom{
		HotelID:            req.HotelID,
		Name:               req.Name,
		BasePriceIDR:       req.BasePriceIDR,
		ChildPriceIDR:      req.ChildPriceIDR,
		ExtraAdultPriceIDR: req.ExtraAdultPriceIDR,
		MaxCapacity:        req.MaxCapacity,
		AllowChild:         req.AllowChild,
		AllowTriple:        req.AllowTriple,
	}, actor.AgentID)
	if err != nil {
		h.respondError(w, "create room", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) ShowRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	room, err := h.service.GetRoom(r.Context(), id)
	if err != nil {
		h.respondError(w, "get room", err)
		return
	}
	httpx.JSON(w, http.StatusOK, room)
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := h.paramID(w, r)
	if !ok {
		return
	}
	rooms, err := h.service.ListRooms(r.Context(), hotelID)
	if err != nil {
		h.respondError(w, "list rooms", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

type createRoomRateRequest struct {
	Season    string    `json:"season" validate:"required,oneof=low high peak"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	RateIDR   int64     `json:"rate_idr" validate:"required,gt=0"`
}

func (h *Handler) CreateRoomRate(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	roomID, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req createRoomRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateRoomRate(r.Context(), SeasonalRate{
		HotelRoomID: roomID,
		Season:      Season(req.Season),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		RateIDR:     req.RateIDR,
	}, actor.AgentID)
	if err != nil {
		h.respondError(w, "create seasonal rate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) ListRoomRates(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.paramID(w, r)
	if !ok {
		return
	}
	seasonRates, err := h.service.ListRoomRates(r.Context(), roomID)
	if err != nil {
		h.respondError(w, "list seasonal rates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rates": seasonRates})
}

type createTransportRateRequest struct {
	Region        string `json:"region" validate:"required,oneof=mainland nusa_penida"`
	VehicleType   string `json:"vehicle_type" validate:"required,max=100"`
	PaxLimit      int    `json:"pax_limit" validate:"required,gt=0"`
	RatePerDayIDR int64  `json:"rate_per_day_idr" validate:"required,gt=0"`
}

func (h *Handler) CreateTransportRate(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	var req createTransportRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateTransportRate(r.Context(), TransportRate{
		Region:        Region(req.Region),
		VehicleType:   req.VehicleType,
		PaxLimit:      req.PaxLimit,
		RatePerDayIDR: req.RatePerDayIDR,
	}, actor.AgentID)
	if err != nil {
		h.respondError(w, "create transport rate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) ListTransportRates(w http.ResponseWriter, r *http.Request) {
	region := Region(r.URL.Query().Get("region"))
	if region != RegionMainland && region != RegionNusaPenida {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "region must be mainland or nusa_penida")
		return
	}
	tiers, err := h.service.ListTransportRates(r.Context(), region)
	if err != nil {
		h.respondError(w, "list transport rates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transport_rates": tiers})
}

type createEntryFeeRequest struct {
	Location string `json:"location" validate:"required,max=200"`
	PriceIDR int64  `json:"price_idr" validate:"gte=0"`
}

func (h *Handler) CreateEntryFee(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	var req createEntryFeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateEntryFee(r.Context(), EntryFee{Location: req.Location, PriceIDR: req.PriceIDR}, actor.AgentID)
	if err != nil {
		h.respondError(w, "create entry fee", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) ListEntryFees(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	for _, part := range strings.Split(r.URL.Query().Get("ids"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "ids must be positive integers")
			return
		}
		ids = append(ids, id)
	}
	fees, err := h.service.GetEntryFees(r.Context(), ids)
	if err != nil {
		h.respondError(w, "list entry fees", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entry_fees": fees})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrRateOverlap), errors.Is(err, ErrInvalidRange):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Rate", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(action+" failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
