package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/observability"
	"github.com/bali-malayali/bali-malayali/internal/pricing"
	"github.com/bali-malayali/bali-malayali/internal/quotes"
)

var (
	// ErrAlreadyFinal indicates a verify/reject attempt on a payment that is
	// no longer pending.
	ErrAlreadyFinal = errors.New("payments: payment already verified or rejected")
	// ErrQuoteNotPayable indicates a payment recorded against a quote that is
	// not approved.
	ErrQuoteNotPayable = errors.New("payments: quote must be approved before payments apply")
)

// QuotePayer triggers the approved->paid transition. The implementation is
// idempotent for already-paid quotes.
type QuotePayer interface {
	MarkPaid(ctx context.Context, quoteID, actorID int64) error
}

// FxSource supplies the conversion rate frozen on each payment row.
type FxSource interface {
	Get(ctx context.Context, currency string) (fx.Rate, error)
}

// EventSink receives fire-and-forget payment events.
type EventSink interface {
	QuoteEvent(ctx context.Context, event string, quoteID int64)
}

// RecordPaymentRequest records money received against a quote.
type RecordPaymentRequest struct {
	QuoteID    int64   `json:"quote_id" validate:"required,gt=0"`
	AmountPaid int64   `json:"amount_paid" validate:"required,gt=0"`
	Currency   string  `json:"currency" validate:"required,len=3,uppercase"`
	IsManual   bool    `json:"is_manual"`
	ProofURL   *string `json:"proof_url" validate:"omitempty,url"`
}

// Service is the reconciliation ledger.
type Service struct {
	repo    Repository
	quotes  QuotePayer
	fx      FxSource
	gw      *Gateway
	events  EventSink
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewService builds the ledger service. events and metrics may be nil.
func NewService(repo Repository, quotes QuotePayer, fxSrc FxSource, log *slog.Logger) *Service {
	return &Service{repo: repo, quotes: quotes, fx: fxSrc, log: log}
}

// SetEventSink wires the notification sink.
func (s *Service) SetEventSink(e EventSink) { s.events = e }

// SetGateway wires the online payment gateway.
func (s *Service) SetGateway(g *Gateway) { s.gw = g }

// SetMetrics wires prometheus counters.
func (s *Service) SetMetrics(m *observability.Metrics) { s.metrics = m }

// Record writes a pending ledger row. The conversion rate is frozen here, at
// payment time; settlement later sums the frozen amount_idr values and never
// reconverts with the quote's snapshot rate.
func (s *Service) Record(ctx context.Context, actor identity.Identity, req RecordPaymentRequest) (*Payment, error) {
	rate := 1.0
	if req.Currency != pricing.CurrencyIDR {
		fxRate, err := s.fx.Get(ctx, req.Currency)
		if err != nil {
			return nil, err
		}
		rate = fxRate.RateIDR
	}

	p := Payment{
		QuoteID:      req.QuoteID,
		AgentID:      actor.AgentID,
		AmountPaid:   req.AmountPaid,
		CurrencyPaid: req.Currency,
		AmountIDR:    int64(math.Round(float64(req.AmountPaid) * rate)),
		FxRateUsed:   rate,
		IsManual:     req.IsManual,
		Status:       StatusPending,
		ProofURL:     req.ProofURL,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		_, status, err := tx.LockQuote(ctx, req.QuoteID)
		if err != nil {
			return err
		}
		if status != string(quotes.StatusApproved) {
			return fmt.Errorf("%w: quote %d is %s", ErrQuoteNotPayable, req.QuoteID, status)
		}
		p.ID, err = tx.Create(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.QuoteEvent(ctx, "payment.received", req.QuoteID)
	}
	return s.repo.Get(ctx, p.ID)
}

// AttachProof stores the proof reference on a pending manual payment.
func (s *Service) AttachProof(ctx context.Context, paymentID int64, proofURL string) error {
	return s.repo.SetProof(ctx, paymentID, proofURL)
}

// Verify marks a payment verified and runs the settlement check under the
// quote row lock. Reaching settlement triggers the paid transition; the
// transition's own guard makes a second trigger a no-op, so re-verification
// of an already-settled quote stays safe.
func (s *Service) Verify(ctx context.Context, paymentID, verifierID int64) (settled bool, err error) {
	var quoteID int64
	var quoteStatus string
	alreadyVerified := false

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		p, err := tx.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		quoteID = p.QuoteID
		if p.Status == StatusVerified {
			// Retried webhook or double-click; nothing more to do.
			alreadyVerified = true
			return nil
		}
		if p.Status == StatusRejected {
			return ErrAlreadyFinal
		}
		if p.IsManual && (p.ProofURL == nil || *p.ProofURL == "") {
			return &MissingProofError{PaymentID: p.ID, QuoteID: p.QuoteID}
		}

		finalTotal, status, err := tx.LockQuote(ctx, p.QuoteID)
		if err != nil {
			return err
		}
		quoteStatus = status

		if err := tx.MarkVerified(ctx, paymentID, verifierID); err != nil {
			return err
		}
		sum, err := tx.SumVerifiedIDR(ctx, p.QuoteID)
		if err != nil {
			return err
		}
		settled = sum >= finalTotal
		return nil
	})
	if err != nil {
		return false, err
	}
	if alreadyVerified {
		settled, err = s.IsSettled(ctx, quoteID)
		if err != nil {
			return false, err
		}
		// A redelivery of a settled payment re-runs the paid transition.
		// MarkPaid is idempotent and repairs anything the original
		// settlement left behind, like a failed commission insert.
		if settled {
			if err := s.quotes.MarkPaid(ctx, quoteID, verifierID); err != nil {
				return settled, fmt.Errorf("payments: settlement transition: %w", err)
			}
		}
		return settled, nil
	}

	if s.metrics != nil {
		s.metrics.PaymentsVerified.Inc()
	}
	if s.events != nil {
		s.events.QuoteEvent(ctx, "payment.verified", quoteID)
	}

	if settled && quoteStatus == string(quotes.StatusApproved) {
		if err := s.quotes.MarkPaid(ctx, quoteID, verifierID); err != nil {
			return settled, fmt.Errorf("payments: settlement transition: %w", err)
		}
	}
	return settled, nil
}

// Reject finalises a pending payment as rejected; its amount never counts
// toward settlement.
func (s *Service) Reject(ctx context.Context, paymentID, verifierID int64, reason string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		p, err := tx.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != StatusPending {
			return ErrAlreadyFinal
		}
		return tx.MarkRejected(ctx, paymentID, verifierID, reason)
	})
}

// IsSettled reports whether verified payments cover the quote's final total.
func (s *Service) IsSettled(ctx context.Context, quoteID int64) (bool, error) {
	var settled bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		finalTotal, _, err := tx.LockQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		sum, err := tx.SumVerifiedIDR(ctx, quoteID)
		if err != nil {
			return err
		}
		settled = sum >= finalTotal
		return nil
	})
	return settled, err
}

// ListByQuote returns the ledger rows of one quote.
func (s *Service) ListByQuote(ctx context.Context, quoteID int64) ([]Payment, error) {
	return s.repo.ListByQuote(ctx, quoteID)
}

// VerifyByGatewayRef auto-verifies the payment tied to a gateway order id.
// Called from the gateway callback; verifier 0 marks the gateway itself.
func (s *Service) VerifyByGatewayRef(ctx context.Context, ref string) (bool, error) {
	p, err := s.repo.FindByGatewayRef(ctx, ref)
	if err != nil {
		return false, err
	}
	return s.Verify(ctx, p.ID, 0)
}

// ErrNoGateway indicates the online gateway is not configured.
var ErrNoGateway = errors.New("payments: gateway not configured")

// CreateGatewayIntent records a pending online payment for the outstanding
// balance and opens the gateway transaction for it. The gateway call happens
// after the row commit; a failed call leaves a pending row that expires with
// the gateway order.
func (s *Service) CreateGatewayIntent(ctx context.Context, actor identity.Identity, quoteID int64, clientName string) (*Intent, error) {
	if s.gw == nil {
		return nil, ErrNoGateway
	}

	orderID := OrderID(quoteID)
	var remaining int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		finalTotal, status, err := tx.LockQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		if status != string(quotes.StatusApproved) {
			return fmt.Errorf("%w: quote %d is %s", ErrQuoteNotPayable, quoteID, status)
		}
		sum, err := tx.SumVerifiedIDR(ctx, quoteID)
		if err != nil {
			return err
		}
		remaining = finalTotal - sum
		if remaining <= 0 {
			return fmt.Errorf("%w: quote %d already settled", ErrQuoteNotPayable, quoteID)
		}
		_, err = tx.Create(ctx, Payment{
			QuoteID:      quoteID,
			AgentID:      actor.AgentID,
			AmountPaid:   remaining,
			CurrencyPaid: pricing.CurrencyIDR,
			AmountIDR:    remaining,
			FxRateUsed:   1,
			Status:       StatusPending,
			GatewayRef:   &orderID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.gw.CreateIntent(ctx, orderID, remaining, clientName)
}

// HandleGatewayNotification applies a signature-checked gateway callback to
// the ledger. Unknown order ids are ignored so gateway retries settle down.
func (s *Service) HandleGatewayNotification(ctx context.Context, n Notification) error {
	if s.gw == nil {
		return ErrNoGateway
	}
	if err := s.gw.VerifySignature(n); err != nil {
		return err
	}

	p, err := s.repo.FindByGatewayRef(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.WarnContext(ctx, "gateway callback for unknown order", "order_id", n.OrderID)
			return nil
		}
		return err
	}

	if n.Success() {
		_, err = s.Verify(ctx, p.ID, 0)
		return err
	}

	switch n.TransactionStatus {
	case "deny", "cancel", "expire", "failure":
		if err := s.Reject(ctx, p.ID, 0, "gateway: "+n.TransactionStatus); err != nil && !errors.Is(err, ErrAlreadyFinal) {
			return err
		}
	}
	return nil
}
