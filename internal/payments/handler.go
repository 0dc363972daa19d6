package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
	"github.com/bali-malayali/bali-malayali/internal/shared"
)

// Handler exposes the ledger API plus the gateway callback.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	idem     *shared.IdempotencyStore
}

// NewHandler builds the payments handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// SetIdempotencyStore enables Idempotency-Key handling on Record. Agents on
// flaky connections resubmit the same payment form; the key collapses those
// into one ledger row.
func (h *Handler) SetIdempotencyStore(s *shared.IdempotencyStore) { h.idem = s }

// MountRoutes mounts the identity-guarded ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payments", h.Record)
	r.Post("/payments/{id}/proof", h.AttachProof)
	r.Get("/quotes/{id}/payments", h.ListByQuote)
	r.Get("/quotes/{id}/settled", h.Settled)
	r.Post("/quotes/{id}/payments/intent", h.CreateIntent)
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Post("/payments/{id}/verify", h.Verify)
		r.Post("/payments/{id}/reject", h.Reject)
	})
}

// MountCallbackRoutes mounts the gateway webhook, outside the identity
// middleware; the signature check is the authentication.
func (h *Handler) MountCallbackRoutes(r chi.Router) {
	r.Post("/callbacks/midtrans", h.GatewayCallback)
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), key, "payments"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "payment already recorded for this key")
				return
			}
			h.respondError(w, "record payment", err)
			return
		}
	}
	p, err := h.service.Record(r.Context(), actor, req)
	if err != nil {
		h.respondError(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

type attachProofRequest struct {
	ProofURL string `json:"proof_url" validate:"required,url"`
}

func (h *Handler) AttachProof(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req attachProofRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AttachProof(r.Context(), id, req.ProofURL); err != nil {
		h.respondError(w, "attach proof", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	settled, err := h.service.Verify(r.Context(), id, actor.AgentID)
	if err != nil {
		h.respondError(w, "verify payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"settled": settled})
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.FromContext(r.Context())
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Reject(r.Context(), id, actor.AgentID, req.Reason); err != nil {
		h.respondError(w, "reject payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListByQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	out, err := h.service.ListByQuote(r.Context(), id)
	if err != nil {
		h.respondError(w, "list payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (h *Handler) Settled(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	settled, err := h.service.IsSettled(r.Context(), id)
	if err != nil {
		h.respondError(w, "settlement check", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"settled": settled})
}

type intentRequest struct {
	ClientName string `json:"client_name" validate:"omitempty,max=100"`
}

func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req intentRequest
	_ = httpx.DecodeJSON(r, &req)
	intent, err := h.service.CreateGatewayIntent(r.Context(), actor, id, req.ClientName)
	if err != nil {
		h.respondError(w, "create payment intent", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, intent)
}

func (h *Handler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var n Notification
	if err := httpx.DecodeJSON(r, &n); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.service.HandleGatewayNotification(r.Context(), n); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			httpx.Problem(w, http.StatusUnauthorized, "Invalid Signature", "")
			return
		}
		h.logger.Error("gateway callback failed", "order_id", n.OrderID, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	// Always 200 on processed callbacks so the gateway stops retrying.
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
	var missingProof *MissingProofError
	switch {
	case errors.As(err, &missingProof):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Proof", missingProof.Error())
	case errors.Is(err, ErrAlreadyFinal):
		httpx.Problem(w, http.StatusConflict, "Already Final", err.Error())
	case errors.Is(err, ErrQuoteNotPayable):
		httpx.Problem(w, http.StatusConflict, "Quote Not Payable", err.Error())
	case errors.Is(err, fx.ErrNoRate):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Exchange Rate", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNoGateway):
		httpx.Problem(w, http.StatusServiceUnavailable, "Gateway Unavailable", err.Error())
	default:
		h.logger.Error(action+" failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
