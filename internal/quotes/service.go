package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bali-malayali/bali-malayali/internal/agents"
	"github.com/bali-malayali/bali-malayali/internal/catalog"
	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/itinerary"
	"github.com/bali-malayali/bali-malayali/internal/observability"
	"github.com/bali-malayali/bali-malayali/internal/pricing"
	"github.com/bali-malayali/bali-malayali/internal/rates"
	"github.com/bali-malayali/bali-malayali/internal/settings"
	"github.com/bali-malayali/bali-malayali/internal/shared"
)

// ErrNotEditable indicates an itinerary or pricing change on a quote that is
// no longer in an editable status.
var ErrNotEditable = errors.New("quotes: quote editable only while draft or revised")

// Catalog is the slice of the rate catalog quotes need for pricing.
type Catalog interface {
	GetRoom(ctx context.Context, id int64) (*catalog.HotelRoom, error)
	ListRoomRates(ctx context.Context, roomID int64) ([]catalog.SeasonalRate, error)
	ListTransportRates(ctx context.Context, region catalog.Region) ([]catalog.TransportRate, error)
	GetEntryFees(ctx context.Context, ids []int64) ([]catalog.EntryFee, error)
}

// SettingsSource supplies tier rates and the cancellation policy document.
type SettingsSource interface {
	Current(ctx context.Context) (settings.TierRates, error)
	CancellationPolicy(ctx context.Context) (json.RawMessage, error)
}

// FxSource supplies the exchange rate snapshotted at send time.
type FxSource interface {
	Get(ctx context.Context, currency string) (fx.Rate, error)
}

// AgentDirectory resolves the owning agent's tier.
type AgentDirectory interface {
	Get(ctx context.Context, id int64) (*agents.Agent, error)
}

// CommissionCreator materialises commissions when a quote turns paid. The
// implementation is idempotent; repeat calls for the same quote are no-ops.
type CommissionCreator interface {
	CreateForQuote(ctx context.Context, quoteID int64) error
}

// EventSink receives fire-and-forget lifecycle events.
type EventSink interface {
	QuoteEvent(ctx context.Context, event string, quoteID int64)
}

// Service orchestrates quote pricing and the lifecycle state machine.
type Service struct {
	repo        Repository
	catalog     Catalog
	settings    SettingsSource
	fx          FxSource
	agents      AgentDirectory
	commissions CommissionCreator
	events      EventSink
	metrics     *observability.Metrics
	log         *slog.Logger
	validity    time.Duration
	now         func() time.Time
}

// NewService builds the quotes service. metrics, events and commissions may be
// nil; validity is the fallback when settings carry no quote_validity_hr.
func NewService(repo Repository, cat Catalog, set SettingsSource, fxSrc FxSource, dir AgentDirectory, validity time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		settings: set,
		fx:       fxSrc,
		agents:   dir,
		log:      log,
		validity: validity,
		now:      time.Now,
	}
}

// SetCommissionCreator wires the commission side effect. Wired after
// construction because commissions consume quote data themselves.
func (s *Service) SetCommissionCreator(c CommissionCreator) { s.commissions = c }

// SetEventSink wires the notification sink.
func (s *Service) SetEventSink(e EventSink) { s.events = e }

// SetMetrics wires prometheus counters.
func (s *Service) SetMetrics(m *observability.Metrics) { s.metrics = m }

// Create opens a draft quote with its initial itinerary and options. The
// draft is stored unpriced; pricing runs on demand and is authoritative at
// send time.
func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateQuoteRequest) (*Quote, error) {
	if !actor.IsApproved {
		return nil, shared.ErrNotApproved
	}
	if !req.TravelEnd.After(req.TravelStart) {
		return nil, errors.New("quotes: travel_end must be after travel_start")
	}

	currency := req.DisplayCurrency
	if currency == "" {
		currency = pricing.CurrencyIDR
	}

	var created *Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		id, err := tx.Create(ctx, Quote{
			AgentID:         actor.AgentID,
			ClientID:        req.ClientID,
			TravelStart:     req.TravelStart,
			TravelEnd:       req.TravelEnd,
			Pax:             req.Pax,
			Children:        req.Children,
			Status:          StatusDraft,
			DisplayCurrency: currency,
		})
		if err != nil {
			return err
		}
		if err := tx.ReplaceDays(ctx, id, daysFromInput(req.Days)); err != nil {
			return err
		}
		if err := tx.ReplaceOptions(ctx, id, optionsFromInput(id, req.Options)); err != nil {
			return err
		}
		created, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns the quote with days, options and status history.
func (s *Service) Get(ctx context.Context, actor identity.Identity, id int64) (*QuoteDetail, error) {
	q, err := s.ownedQuote(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	days, err := s.repo.ListDays(ctx, id)
	if err != nil {
		return nil, err
	}
	options, err := s.repo.ListOptions(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QuoteDetail{Quote: *q, Days: days, Options: options, History: history}, nil
}

// List returns the actor's quotes; admins see everyone's.
func (s *Service) List(ctx context.Context, actor identity.Identity, req ListQuotesRequest) ([]Quote, int, error) {
	if actor.Role != identity.RoleAdmin {
		req.AgentID = &actor.AgentID
	}
	return s.repo.List(ctx, req)
}

// UpdateItinerary replaces the editable body of a draft or revised quote.
func (s *Service) UpdateItinerary(ctx context.Context, actor identity.Identity, id int64, req UpdateItineraryRequest) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		if q.Status != StatusDraft && q.Status != StatusRevised {
			return fmt.Errorf("%w: quote %d is %s", ErrNotEditable, id, q.Status)
		}

		if req.TravelStart != nil {
			q.TravelStart = *req.TravelStart
		}
		if req.TravelEnd != nil {
			q.TravelEnd = *req.TravelEnd
		}
		if req.Pax != nil {
			q.Pax = *req.Pax
		}
		if req.Children != nil {
			q.Children = *req.Children
		}
		if req.DisplayCurrency != nil {
			q.DisplayCurrency = *req.DisplayCurrency
		}
		if !q.TravelEnd.After(q.TravelStart) {
			return errors.New("quotes: travel_end must be after travel_start")
		}
		if err := tx.UpdateHeader(ctx, *q); err != nil {
			return err
		}
		if req.Days != nil {
			if err := tx.ReplaceDays(ctx, id, daysFromInput(req.Days)); err != nil {
				return err
			}
		}
		if req.Options != nil {
			if err := tx.ReplaceOptions(ctx, id, optionsFromInput(id, req.Options)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reprice recomputes every option of the quote and the quote totals from the
// current catalog, settings and exchange rate. Only draft and revised quotes
// reprice; everything from sent onward carries the totals frozen at send and
// rejects the call.
func (s *Service) Reprice(ctx context.Context, actor identity.Identity, id int64) (*PricedQuote, error) {
	var priced *PricedQuote
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		if q.Status != StatusDraft && q.Status != StatusRevised {
			return fmt.Errorf("%w: quote %d is %s", ErrNotEditable, id, q.Status)
		}
		rate, err := s.exchangeRate(ctx, q.DisplayCurrency)
		if err != nil {
			return err
		}
		priced, err = s.priceAndStore(ctx, tx, q, rate)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.QuotesPriced.Inc()
	}
	return priced, nil
}

// Send freezes the quote and moves it to sent. Pricing is recomputed first so
// the frozen totals always reflect the itinerary as sent; the exchange rate,
// cancellation policy and expiry clock are snapshotted here.
func (s *Service) Send(ctx context.Context, actor identity.Identity, id int64) error {
	policy, err := s.settings.CancellationPolicy(ctx)
	if err != nil {
		return err
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		if err := CanTransition(id, q.Status, StatusSent); err != nil {
			return err
		}

		rate, err := s.exchangeRate(ctx, q.DisplayCurrency)
		if err != nil {
			return err
		}
		if _, err := s.priceAndStore(ctx, tx, q, rate); err != nil {
			return err
		}

		validity := s.validity
		if cfg.QuoteValidityHr > 0 {
			validity = time.Duration(cfg.QuoteValidityHr) * time.Hour
		}
		expiresAt := s.now().Add(validity)
		if err := tx.SetSendSnapshot(ctx, id, policy, rate, expiresAt); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusSent); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: id, From: q.Status, To: StatusSent, ChangedBy: actor.AgentID})
	})
	if err != nil {
		return err
	}
	s.afterTransition(ctx, id, StatusSent, "quote.sent")
	return nil
}

// Revise reopens a sent quote for edits, freezing the outgoing document as a
// version first.
func (s *Service) Revise(ctx context.Context, actor identity.Identity, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		if err := CanTransition(id, q.Status, StatusRevised); err != nil {
			return err
		}

		days, err := tx.ListDays(ctx, id)
		if err != nil {
			return err
		}
		options, err := tx.ListOptions(ctx, id)
		if err != nil {
			return err
		}
		snapshot, err := json.Marshal(QuoteDetail{Quote: *q, Days: days, Options: options})
		if err != nil {
			return fmt.Errorf("quotes: encode version: %w", err)
		}
		if _, err := tx.InsertVersion(ctx, Version{QuoteID: id, Snapshot: snapshot}); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusRevised); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: id, From: q.Status, To: StatusRevised, ChangedBy: actor.AgentID})
	})
	if err != nil {
		return err
	}
	s.afterTransition(ctx, id, StatusRevised, "quote.revised")
	return nil
}

// Approve records the client's acceptance of exactly one option.
func (s *Service) Approve(ctx context.Context, actor identity.Identity, id int64, req ApproveRequest) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		if err := CanTransition(id, q.Status, StatusApproved); err != nil {
			return err
		}
		if req.SelectedOptionID == 0 {
			return &NoOptionSelectedError{QuoteID: id}
		}
		opt, err := tx.GetOption(ctx, req.SelectedOptionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return &NoOptionSelectedError{QuoteID: id}
			}
			return err
		}
		if opt.QuoteID != id {
			return &NoOptionSelectedError{QuoteID: id}
		}

		if err := tx.SetSelectedOption(ctx, id, opt.ID); err != nil {
			return err
		}
		// Quote totals follow the accepted option from here on.
		if err := tx.UpdatePricing(ctx, id, opt.TotalCostIDR, opt.MarkupIDR, opt.FinalTotalIDR, q.DisplayCurrency, q.ExchangeRateUsed); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusApproved); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: id, From: q.Status, To: StatusApproved, ChangedBy: actor.AgentID})
	})
	if err != nil {
		return err
	}
	s.afterTransition(ctx, id, StatusApproved, "quote.approved")
	return nil
}

// MarkPaid moves an approved quote to paid and fires commission creation.
// Called by payment settlement under the settlement's row lock; a quote that
// is already paid is a no-op so settlement retries stay safe.
func (s *Service) MarkPaid(ctx context.Context, quoteID, actorID int64) error {
	alreadyPaid := false
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if q.Status == StatusPaid {
			alreadyPaid = true
			return nil
		}
		if err := CanTransition(quoteID, q.Status, StatusPaid); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, quoteID, StatusPaid); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: quoteID, From: q.Status, To: StatusPaid, ChangedBy: actorID})
	})
	if err != nil {
		return err
	}

	// Commission rows carry a unique (quote_id, type) guard, so the creator
	// runs on retries too: a creation that failed after the original
	// transition committed is repaired by the next settlement redelivery.
	if s.commissions != nil {
		if err := s.commissions.CreateForQuote(ctx, quoteID); err != nil {
			s.log.ErrorContext(ctx, "commission creation failed", "quote_id", quoteID, "error", err)
		}
	}
	if alreadyPaid {
		s.log.InfoContext(ctx, "quote already paid, settlement retry ignored", "quote_id", quoteID)
		return nil
	}
	s.afterTransition(ctx, quoteID, StatusPaid, "quote.paid")
	return nil
}

// Expire moves a stale quote to expired. changed_by 0 marks the scheduler.
func (s *Service) Expire(ctx context.Context, quoteID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := CanTransition(quoteID, q.Status, StatusExpired); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, quoteID, StatusExpired); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: quoteID, From: q.Status, To: StatusExpired, ChangedBy: 0})
	})
	if err != nil {
		return err
	}
	s.afterTransition(ctx, quoteID, StatusExpired, "quote.expired")
	return nil
}

// ExpireDue sweeps quotes past their expiry clock. Races with a concurrent
// approval resolve under the row lock; the loser's transition is rejected and
// skipped.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	ids, err := s.repo.ListDueForExpiry(ctx, s.now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if err := s.Expire(ctx, id); err != nil {
			var invalid *InvalidTransitionError
			if errors.As(err, &invalid) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// Void cancels a quote from any non-terminal status.
func (s *Service) Void(ctx context.Context, actor identity.Identity, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		if err := CanTransition(id, q.Status, StatusVoid); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusVoid); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: id, From: q.Status, To: StatusVoid, ChangedBy: actor.AgentID})
	})
	if err != nil {
		return err
	}
	s.afterTransition(ctx, id, StatusVoid, "quote.void")
	return nil
}

// Hold parks a quote on an external issue, remembering where it resumes.
func (s *Service) Hold(ctx context.Context, actor identity.Identity, id int64, req HoldRequest) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		if err := CanTransition(id, q.Status, StatusOnHold); err != nil {
			return err
		}
		if _, err := tx.CreateDispute(ctx, Dispute{
			QuoteID:      id,
			Reason:       req.Reason,
			ResumeStatus: q.Status,
			OpenedBy:     actor.AgentID,
		}); err != nil {
			return err
		}
		prev := q.Status
		if err := tx.SetHoldPrev(ctx, id, &prev); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusOnHold); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: id, From: q.Status, To: StatusOnHold, ChangedBy: actor.AgentID})
	})
	if err != nil {
		return err
	}
	s.afterTransition(ctx, id, StatusOnHold, "quote.on_hold")
	return nil
}

// Resume closes the open dispute and returns the quote to the status it held
// before the issue.
func (s *Service) Resume(ctx context.Context, actor identity.Identity, id int64) error {
	var resumed Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.owns(actor, q); err != nil {
			return err
		}
		dispute, err := tx.GetOpenDispute(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return &InvalidTransitionError{QuoteID: id, From: q.Status, To: q.Status}
			}
			return err
		}
		resumed = dispute.ResumeStatus
		if err := CanTransition(id, q.Status, resumed); err != nil {
			return err
		}
		if err := tx.ResolveDispute(ctx, dispute.ID, actor.AgentID); err != nil {
			return err
		}
		if err := tx.SetHoldPrev(ctx, id, nil); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, resumed); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, StatusChange{QuoteID: id, From: q.Status, To: resumed, ChangedBy: actor.AgentID})
	})
	if err != nil {
		return err
	}
	s.afterTransition(ctx, id, resumed, "quote.resumed")
	return nil
}

// Versions lists the frozen revision snapshots of a quote.
func (s *Service) Versions(ctx context.Context, actor identity.Identity, id int64) ([]Version, error) {
	if _, err := s.ownedQuote(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, id)
}

// priceAndStore prices every option against the current itinerary and writes
// the results through tx. The quote-level totals mirror the selected option
// when one exists, the first option otherwise.
func (s *Service) priceAndStore(ctx context.Context, tx Repository, q *Quote, exchangeRate float64) (*PricedQuote, error) {
	days, err := tx.ListDays(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	options, err := tx.ListOptions(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, &NoOptionSelectedError{QuoteID: q.ID}
	}

	agent, err := s.agents.Get(ctx, q.AgentID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	in, err := s.buildItineraryInput(ctx, q, days)
	if err != nil {
		return nil, err
	}
	if err := itinerary.ValidatePlan(in); err != nil {
		return nil, err
	}
	transport, fees, err := itinerary.LandCost(in)
	if err != nil {
		return nil, err
	}
	landCost := transport + fees

	costs := make([]pricing.OptionCost, len(options))
	for i := range options {
		roomCost, err := s.optionRoomCost(ctx, q, options[i].HotelRoomIDs)
		if err != nil {
			return nil, err
		}
		options[i].RoomCostIDR = roomCost
		options[i].LandCostIDR = landCost
		costs[i] = pricing.OptionCost{OptionID: options[i].ID, BaseCostIDR: roomCost + landCost}
	}

	priced, err := pricing.PriceOptions(ctx, costs, agent.Tier, cfg, q.DisplayCurrency, exchangeRate)
	if err != nil {
		return nil, err
	}

	var displayTotal int64
	for i, p := range priced {
		options[i].TotalCostIDR = p.BaseCostIDR
		options[i].MarkupIDR = p.MarkupIDR
		options[i].FinalTotalIDR = p.FinalTotalIDR
		if err := tx.UpdateOptionPricing(ctx, options[i].ID, p.BaseCostIDR, p.MarkupIDR, p.FinalTotalIDR); err != nil {
			return nil, err
		}
	}

	lead := 0
	if q.SelectedOptionID != nil {
		for i, opt := range options {
			if opt.ID == *q.SelectedOptionID {
				lead = i
				break
			}
		}
	}
	leadPrice := priced[lead]
	displayTotal = leadPrice.DisplayFinalTotal
	if err := tx.UpdatePricing(ctx, q.ID, leadPrice.BaseCostIDR, leadPrice.MarkupIDR, leadPrice.FinalTotalIDR, leadPrice.DisplayCurrency, leadPrice.ExchangeRateUsed); err != nil {
		return nil, err
	}

	q.BaseCostIDR = leadPrice.BaseCostIDR
	q.MarkupIDR = leadPrice.MarkupIDR
	q.FinalTotalIDR = leadPrice.FinalTotalIDR
	q.DisplayCurrency = leadPrice.DisplayCurrency
	q.ExchangeRateUsed = leadPrice.ExchangeRateUsed
	return &PricedQuote{Quote: *q, Options: options, DisplayFinalTotal: displayTotal}, nil
}

// optionRoomCost sums the stay cost of an option's rooms. A single room hosts
// the whole party; multi-room options split the party as evenly as possible,
// adults first, so occupancy rules apply per room.
func (s *Service) optionRoomCost(ctx context.Context, q *Quote, roomIDs []int64) (int64, error) {
	parties := splitParty(q.Pax, q.Children, len(roomIDs))
	var total int64
	for i, roomID := range roomIDs {
		room, err := s.catalog.GetRoom(ctx, roomID)
		if err != nil {
			return 0, err
		}
		seasonRates, err := s.catalog.ListRoomRates(ctx, roomID)
		if err != nil {
			return 0, err
		}
		cost, err := rates.ResolveRoomRate(*room, seasonRates, q.TravelStart, q.TravelEnd, parties[i].adults, parties[i].children)
		if err != nil {
			return 0, err
		}
		total += cost.TotalRoomCostIDR
	}
	return total, nil
}

func (s *Service) buildItineraryInput(ctx context.Context, q *Quote, days []Day) (itinerary.Input, error) {
	in := itinerary.Input{
		QuoteID:  q.ID,
		CheckIn:  q.TravelStart,
		CheckOut: q.TravelEnd,
		Adults:   q.Pax,
		Children: q.Children,
	}

	regions := map[catalog.Region]bool{}
	var feeIDs []int64
	seenFees := map[int64]bool{}
	for _, day := range days {
		in.Days = append(in.Days, itinerary.Day{
			Number:      day.DayNumber,
			Date:        day.DayDate,
			Region:      day.Region,
			Activities:  day.Activities,
			EntryFeeIDs: day.EntryFeeIDs,
		})
		regions[day.Region] = true
		for _, feeID := range day.EntryFeeIDs {
			if !seenFees[feeID] {
				seenFees[feeID] = true
				feeIDs = append(feeIDs, feeID)
			}
		}
	}

	in.TransportRates = map[catalog.Region][]catalog.TransportRate{}
	for region := range regions {
		tiers, err := s.catalog.ListTransportRates(ctx, region)
		if err != nil {
			return itinerary.Input{}, err
		}
		in.TransportRates[region] = tiers
	}

	in.EntryFees = map[int64]catalog.EntryFee{}
	if len(feeIDs) > 0 {
		fetched, err := s.catalog.GetEntryFees(ctx, feeIDs)
		if err != nil {
			return itinerary.Input{}, err
		}
		for _, fee := range fetched {
			in.EntryFees[fee.ID] = fee
		}
	}
	return in, nil
}

func (s *Service) exchangeRate(ctx context.Context, currency string) (float64, error) {
	if currency == "" || currency == pricing.CurrencyIDR {
		return 1, nil
	}
	rate, err := s.fx.Get(ctx, currency)
	if err != nil {
		return 0, err
	}
	return rate.RateIDR, nil
}

func (s *Service) ownedQuote(ctx context.Context, actor identity.Identity, id int64) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.owns(actor, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) owns(actor identity.Identity, q *Quote) error {
	if actor.Role == identity.RoleAdmin || actor.AgentID == q.AgentID {
		return nil
	}
	return shared.ErrForbidden
}

func (s *Service) afterTransition(ctx context.Context, quoteID int64, to Status, event string) {
	if s.metrics != nil {
		s.metrics.QuoteTransitions.WithLabelValues(string(to)).Inc()
	}
	if s.events != nil {
		s.events.QuoteEvent(ctx, event, quoteID)
	}
}

type party struct {
	adults   int
	children int
}

func splitParty(adults, children, nRooms int) []party {
	parties := make([]party, nRooms)
	for i := 0; i < adults; i++ {
		parties[i%nRooms].adults++
	}
	for i := 0; i < children; i++ {
		parties[i%nRooms].children++
	}
	return parties
}

func daysFromInput(inputs []DayInput) []Day {
	days := make([]Day, 0, len(inputs))
	for _, in := range inputs {
		days = append(days, in.toDay())
	}
	return days
}

func optionsFromInput(quoteID int64, inputs []OptionInput) []Option {
	options := make([]Option, 0, len(inputs))
	for i, in := range inputs {
		options = append(options, Option{
			QuoteID:      quoteID,
			OptionNumber: i + 1,
			HotelRoomIDs: in.HotelRoomIDs,
		})
	}
	return options
}
