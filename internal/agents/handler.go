package agents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
	"github.com/bali-malayali/bali-malayali/internal/settings"
)

// Handler exposes agent and client management. Registration and tier moves
// are back-office operations; agents manage their own client book.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the agents handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/agents/{id}", h.Show)
	r.Post("/clients", h.CreateClient)
	r.Get("/clients", h.ListClients)
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Post("/agents", h.Create)
		r.Post("/agents/{id}/approve", h.Approve)
		r.Put("/agents/{id}/tier", h.SetTier)
	})
}

type createAgentRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Tier       string `json:"tier" validate:"required,oneof=bronze silver gold"`
	ReferredBy *int64 `json:"referred_by_agent_id" validate:"omitempty,gt=0"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.Create(r.Context(), Agent{
		Name:       req.Name,
		Tier:       settings.Tier(req.Tier),
		ReferredBy: req.ReferredBy,
	})
	if err != nil {
		h.respondError(w, "create agent", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	agent, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get agent", err)
		return
	}
	httpx.JSON(w, http.StatusOK, agent)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.Approve(r.Context(), id); err != nil {
		h.respondError(w, "approve agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setTierRequest struct {
	Tier string `json:"tier" validate:"required,oneof=bronze silver gold"`
}

func (h *Handler) SetTier(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req setTierRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetTier(r.Context(), id, settings.Tier(req.Tier)); err != nil {
		h.respondError(w, "set agent tier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createClientRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req createClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateClient(r.Context(), Client{AgentID: actor.AgentID, Name: req.Name})
	if err != nil {
		h.respondError(w, "create client", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	clients, err := h.service.ListClients(r.Context(), actor.AgentID)
	if err != nil {
		h.respondError(w, "list clients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clients": clients})
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
	case errors.Is(err, ErrReferralCycle):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Referral Cycle", err.Error())
	case errors.Is(err, ErrUnknownTier):
		httpx.Problem(w, http.StatusBadRequest, "Unknown Tier", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(action+" failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
