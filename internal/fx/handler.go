package fx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
)

// Handler exposes the exchange rate table. Rates are read by everyone and
// maintained by the back office.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	validate *validator.Validate
}

// NewHandler builds the fx handler.
func NewHandler(logger *slog.Logger, repo Repository, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validate}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/fx-rates", h.List)
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Put("/fx-rates", h.Upsert)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rates, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list fx rates failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rates": rates})
}

type upsertRateRequest struct {
	Currency string  `json:"currency" validate:"required,len=3,uppercase"`
	RateIDR  float64 `json:"rate_idr" validate:"required,gt=0"`
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.repo.Upsert(r.Context(), Rate{Currency: req.Currency, RateIDR: req.RateIDR}); err != nil {
		if errors.Is(err, ErrNoRate) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("upsert fx rate failed", "currency", req.Currency, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
