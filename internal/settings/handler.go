package settings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
)

// Handler exposes the pricing settings API. All routes are back-office only.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the settings handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Get("/settings/tier-rates", h.ShowTierRates)
		r.Put("/settings/tier-rates", h.UpdateTierRates)
		r.Get("/settings/cancellation-policy", h.ShowPolicy)
		r.Put("/settings/cancellation-policy", h.UpdatePolicy)
	})
}

func (h *Handler) ShowTierRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.Current(r.Context())
	if err != nil {
		h.respondError(w, "load tier rates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rates)
}

func (h *Handler) UpdateTierRates(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	var rates TierRates
	if err := httpx.DecodeJSON(r, &rates); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.Update(r.Context(), rates, actor.AgentID); err != nil {
		h.respondError(w, "update tier rates", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ShowPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.service.CancellationPolicy(r.Context())
	if err != nil {
		h.respondError(w, "load cancellation policy", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(policy)
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	var policy json.RawMessage
	if err := httpx.DecodeJSON(r, &policy); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.UpdateCancellationPolicy(r.Context(), policy, actor.AgentID); err != nil {
		h.respondError(w, "update cancellation policy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrNotSeeded), errors.Is(err, ErrNoPolicy):
		httpx.Problem(w, http.StatusNotFound, "Not Seeded", err.Error())
	default:
		h.logger.Error(action+" failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
