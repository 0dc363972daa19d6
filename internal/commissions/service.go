package commissions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bali-malayali/bali-malayali/internal/agents"
	"github.com/bali-malayali/bali-malayali/internal/observability"
	"github.com/bali-malayali/bali-malayali/internal/quotes"
	"github.com/bali-malayali/bali-malayali/internal/settings"
)

var (
	// ErrQuoteNotPaid indicates commission creation for a quote that has not
	// reached paid.
	ErrQuoteNotPaid = errors.New("commissions: quote is not paid")
	// ErrNotPending indicates a release attempt on a non-pending commission.
	ErrNotPending = errors.New("commissions: only pending commissions can be released")
)

// QuoteSource reads the quote being commissioned.
type QuoteSource interface {
	Get(ctx context.Context, id int64) (*quotes.Quote, error)
}

// AgentSource resolves agents along the referral edge.
type AgentSource interface {
	Get(ctx context.Context, id int64) (*agents.Agent, error)
}

// SettingsSource supplies the commission percentages.
type SettingsSource interface {
	Current(ctx context.Context) (settings.TierRates, error)
}

// EventSink receives fire-and-forget commission events.
type EventSink interface {
	QuoteEvent(ctx context.Context, event string, quoteID int64)
}

// Service creates and releases commissions. Creation is idempotent: the
// (quote_id, type) uniqueness guard makes repeat runs safe no-ops.
type Service struct {
	repo     Repository
	quotes   QuoteSource
	agents   AgentSource
	settings SettingsSource
	events   EventSink
	metrics  *observability.Metrics
	log      *slog.Logger
}

// NewService builds the commissions service. events and metrics may be nil.
func NewService(repo Repository, quoteSrc QuoteSource, agentSrc AgentSource, set SettingsSource, log *slog.Logger) *Service {
	return &Service{repo: repo, quotes: quoteSrc, agents: agentSrc, settings: set, log: log}
}

// SetEventSink wires the notification sink.
func (s *Service) SetEventSink(e EventSink) { s.events = e }

// SetMetrics wires prometheus counters.
func (s *Service) SetMetrics(m *observability.Metrics) { s.metrics = m }

// CreateForQuote materialises the commission set for a paid quote. Duplicate
// inserts are swallowed and logged; they mean a previous run already wrote the
// row.
func (s *Service) CreateForQuote(ctx context.Context, quoteID int64) error {
	q, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return err
	}
	if q.Status != quotes.StatusPaid {
		return ErrQuoteNotPaid
	}

	owner, err := s.agents.Get(ctx, q.AgentID)
	if err != nil {
		return err
	}
	var referrer *agents.Agent
	if owner.ReferredBy != nil {
		referrer, err = s.agents.Get(ctx, *owner.ReferredBy)
		if err != nil {
			return err
		}
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return err
	}

	for _, c := range Compute(quoteID, q.FinalTotalIDR, *owner, referrer, cfg) {
		if _, err := s.repo.Create(ctx, c); err != nil {
			var dup *DuplicateCommissionError
			if errors.As(err, &dup) {
				s.log.InfoContext(ctx, "commission already exists, skipping",
					"quote_id", dup.QuoteID, "type", string(dup.Type))
				continue
			}
			return err
		}
		if s.metrics != nil {
			s.metrics.CommissionsCreated.Inc()
		}
		if s.events != nil {
			s.events.QuoteEvent(ctx, "commission.created", quoteID)
		}
	}
	return nil
}

// ListByQuote returns the commission set of one quote.
func (s *Service) ListByQuote(ctx context.Context, quoteID int64) ([]Commission, error) {
	return s.repo.ListByQuote(ctx, quoteID)
}

// ListByAgent returns commissions where the agent earns either side.
func (s *Service) ListByAgent(ctx context.Context, agentID int64) ([]Commission, error) {
	return s.repo.ListByAgent(ctx, agentID)
}

// Release moves a pending commission to released.
func (s *Service) Release(ctx context.Context, id int64) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != StatusPending {
		return ErrNotPending
	}
	return s.repo.Release(ctx, id)
}
