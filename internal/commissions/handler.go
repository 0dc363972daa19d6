package commissions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
)

// Handler exposes the commission API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the commission handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/commissions", h.List)
	r.Get("/quotes/{id}/commissions", h.ListByQuote)
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Post("/commissions/{id}/release", h.Release)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	agentID := actor.AgentID
	if actor.Role == identity.RoleAdmin {
		if v := r.URL.Query().Get("agent_id"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				agentID = parsed
			}
		}
	}
	out, err := h.service.ListByAgent(r.Context(), agentID)
	if err != nil {
		h.logger.Error("list commissions failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"commissions": out})
}

func (h *Handler) ListByQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || quoteID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}
	out, err := h.service.ListByQuote(r.Context(), quoteID)
	if err != nil {
		h.logger.Error("list quote commissions failed", "quote_id", quoteID, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"commissions": out})
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid commission id")
		return
	}
	if err := h.service.Release(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrNotPending):
			httpx.Problem(w, http.StatusConflict, "Not Pending", err.Error())
		default:
			h.logger.Error("release commission failed", "commission_id", id, "error", err)
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
