package quotes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/itinerary"
	"github.com/bali-malayali/bali-malayali/internal/pricing"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
	"github.com/bali-malayali/bali-malayali/internal/rates"
	"github.com/bali-malayali/bali-malayali/internal/shared"
)

// Handler exposes the quote API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the quote handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	q, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.respondError(w, r, "create quote", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, r, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	req := ListQuotesRequest{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := Status(v)
		req.Status = &status
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		if clientID, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ClientID = &clientID
		}
	}
	page, perPage := 1, 50
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			perPage = n
		}
	}
	req.Limit = perPage
	req.Offset = (page - 1) * perPage

	quotes, total, err := h.service.List(r.Context(), actor, req)
	if err != nil {
		h.respondError(w, r, "list quotes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotes":     quotes,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) UpdateItinerary(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req UpdateItineraryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateItinerary(r.Context(), actor, id, req); err != nil {
		h.respondError(w, r, "update itinerary", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reprice(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	priced, err := h.service.Reprice(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, r, "reprice quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, priced)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "send quote", func(actor identity.Identity, id int64) error {
		return h.service.Send(r.Context(), actor, id)
	})
}

func (h *Handler) Revise(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "revise quote", func(actor identity.Identity, id int64) error {
		return h.service.Revise(r.Context(), actor, id)
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Approve(r.Context(), actor, id, req); err != nil {
		h.respondError(w, r, "approve quote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "void quote", func(actor identity.Identity, id int64) error {
		return h.service.Void(r.Context(), actor, id)
	})
}

func (h *Handler) Hold(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req HoldRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Hold(r.Context(), actor, id, req); err != nil {
		h.respondError(w, r, "hold quote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "resume quote", func(actor identity.Identity, id int64) error {
		return h.service.Resume(r.Context(), actor, id)
	})
}

// ExpireDue runs the expiry sweep on demand. The cron job covers the steady
// state; this endpoint exists for operators who cannot wait ten minutes.
func (h *Handler) ExpireDue(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ExpireDue(r.Context())
	if err != nil {
		h.respondError(w, r, "expire due quotes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"expired": n})
}

func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	versions, err := h.service.Versions(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, r, "list versions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, fn func(identity.Identity, int64) error) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	if err := fn(actor, id); err != nil {
		h.respondError(w, r, action, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (identity.Identity, int64, bool) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return identity.Identity{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return identity.Identity{}, 0, false
	}
	return actor, id, true
}

// respondError surfaces the specific error kind and offending entity id so the
// caller can point the agent at the exact broken input.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var (
		invalid    *InvalidTransitionError
		noOption   *NoOptionSelectedError
		rateGap    *rates.RateGapError
		capacity   *rates.CapacityError
		planGap    *itinerary.ItineraryGapError
		noTier     *itinerary.NoTransportTierError
		unknownFee *itinerary.UnknownEntryFeeError
	)
	switch {
	case errors.As(err, &invalid):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", invalid.Error())
	case errors.As(err, &noOption):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Option Selected", noOption.Error())
	case errors.As(err, &rateGap):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Rate Gap", rateGap.Error())
	case errors.As(err, &capacity):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Capacity Exceeded", capacity.Error())
	case errors.As(err, &planGap):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Itinerary Gap", planGap.Error())
	case errors.As(err, &noTier):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Transport Tier", noTier.Error())
	case errors.As(err, &unknownFee):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Entry Fee", unknownFee.Error())
	case errors.Is(err, fx.ErrNoRate), errors.Is(err, pricing.ErrBadExchangeRate), errors.Is(err, pricing.ErrUnknownTier):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Pricing Input Missing", err.Error())
	case errors.Is(err, ErrNotEditable):
		httpx.Problem(w, http.StatusConflict, "Not Editable", err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrNotApproved):
		httpx.Problem(w, http.StatusForbidden, "Agent Not Approved", err.Error())
	default:
		h.logger.Error(action+" failed", "path", r.URL.Path, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
