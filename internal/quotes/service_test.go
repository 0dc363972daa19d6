package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bali-malayali/bali-malayali/internal/agents"
	"github.com/bali-malayali/bali-malayali/internal/catalog"
	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/settings"
	"github.com/bali-malayali/bali-malayali/internal/shared"
)

type memoryQuoteRepo struct {
	quotes   map[int64]Quote
	days     map[int64][]Day
	options  map[int64][]Option
	history  []StatusChange
	versions map[int64][]Version
	disputes map[int64]Dispute
	nextID   int64
}

func newMemoryQuoteRepo() *memoryQuoteRepo {
	return &memoryQuoteRepo{
		quotes:   make(map[int64]Quote),
		days:     make(map[int64][]Day),
		options:  make(map[int64][]Option),
		versions: make(map[int64][]Version),
		disputes: make(map[int64]Dispute),
	}
}

func (r *memoryQuoteRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryQuoteRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryQuoteRepo) Get(ctx context.Context, id int64) (*Quote, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (r *memoryQuoteRepo) GetForUpdate(ctx context.Context, id int64) (*Quote, error) {
	return r.Get(ctx, id)
}

func (r *memoryQuoteRepo) Create(ctx context.Context, q Quote) (int64, error) {
	q.ID = r.id()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	r.quotes[q.ID] = q
	return q.ID, nil
}

func (r *memoryQuoteRepo) UpdateHeader(ctx context.Context, q Quote) error {
	stored, ok := r.quotes[q.ID]
	if !ok {
		return ErrNotFound
	}
	stored.TravelStart = q.TravelStart
	stored.TravelEnd = q.TravelEnd
	stored.Pax = q.Pax
	stored.Children = q.Children
	stored.DisplayCurrency = q.DisplayCurrency
	r.quotes[q.ID] = stored
	return nil
}

func (r *memoryQuoteRepo) UpdatePricing(ctx context.Context, id int64, baseCost, markup, finalTotal int64, currency string, rate float64) error {
	q, ok := r.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.BaseCostIDR = baseCost
	q.MarkupIDR = markup
	q.FinalTotalIDR = finalTotal
	q.DisplayCurrency = currency
	q.ExchangeRateUsed = rate
	r.quotes[id] = q
	return nil
}

func (r *memoryQuoteRepo) UpdateStatus(ctx context.Context, id int64, to Status) error {
	q, ok := r.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = to
	r.quotes[id] = q
	return nil
}

func (r *memoryQuoteRepo) SetSendSnapshot(ctx context.Context, id int64, policy json.RawMessage, rate float64, expiresAt time.Time) error {
	q, ok := r.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.PolicySnapshot = policy
	q.ExchangeRateUsed = rate
	q.ExpiresAt = &expiresAt
	r.quotes[id] = q
	return nil
}

func (r *memoryQuoteRepo) SetSelectedOption(ctx context.Context, id, optionID int64) error {
	q, ok := r.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.SelectedOptionID = &optionID
	r.quotes[id] = q
	return nil
}

func (r *memoryQuoteRepo) SetHoldPrev(ctx context.Context, id int64, prev *Status) error {
	q, ok := r.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.HoldPrevStatus = prev
	r.quotes[id] = q
	return nil
}

func (r *memoryQuoteRepo) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	var out []Quote
	for _, q := range r.quotes {
		if req.AgentID != nil && q.AgentID != *req.AgentID {
			continue
		}
		if req.ClientID != nil && q.ClientID != *req.ClientID {
			continue
		}
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, q)
	}
	return out, len(out), nil
}

func (r *memoryQuoteRepo) ListDueForExpiry(ctx context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	for _, q := range r.quotes {
		if (q.Status == StatusSent || q.Status == StatusApproved) && q.ExpiresAt != nil && q.ExpiresAt.Before(now) {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (r *memoryQuoteRepo) ReplaceDays(ctx context.Context, quoteID int64, days []Day) error {
	stored := make([]Day, len(days))
	copy(stored, days)
	for i := range stored {
		stored[i].ID = r.id()
		stored[i].QuoteID = quoteID
	}
	r.days[quoteID] = stored
	return nil
}

func (r *memoryQuoteRepo) ListDays(ctx context.Context, quoteID int64) ([]Day, error) {
	return append([]Day(nil), r.days[quoteID]...), nil
}

func (r *memoryQuoteRepo) ReplaceOptions(ctx context.Context, quoteID int64, options []Option) error {
	stored := make([]Option, len(options))
	copy(stored, options)
	for i := range stored {
		stored[i].ID = r.id()
		stored[i].QuoteID = quoteID
	}
	r.options[quoteID] = stored
	return nil
}

func (r *memoryQuoteRepo) ListOptions(ctx context.Context, quoteID int64) ([]Option, error) {
	return append([]Option(nil), r.options[quoteID]...), nil
}

func (r *memoryQuoteRepo) GetOption(ctx context.Context, id int64) (*Option, error) {
	for _, options := range r.options {
		for _, opt := range options {
			if opt.ID == id {
				o := opt
				return &o, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *memoryQuoteRepo) UpdateOptionPricing(ctx context.Context, id int64, totalCost, markup, finalTotal int64) error {
	for quoteID, options := range r.options {
		for i, opt := range options {
			if opt.ID == id {
				options[i].TotalCostIDR = totalCost
				options[i].MarkupIDR = markup
				options[i].FinalTotalIDR = finalTotal
				r.options[quoteID] = options
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *memoryQuoteRepo) AppendHistory(ctx context.Context, change StatusChange) error {
	change.ID = r.id()
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now()
	}
	r.history = append(r.history, change)
	return nil
}

func (r *memoryQuoteRepo) ListHistory(ctx context.Context, quoteID int64) ([]StatusChange, error) {
	var out []StatusChange
	for _, c := range r.history {
		if c.QuoteID == quoteID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryQuoteRepo) InsertVersion(ctx context.Context, v Version) (int64, error) {
	v.ID = r.id()
	v.VersionNumber = len(r.versions[v.QuoteID]) + 1
	v.CreatedAt = time.Now()
	r.versions[v.QuoteID] = append(r.versions[v.QuoteID], v)
	return v.ID, nil
}

func (r *memoryQuoteRepo) ListVersions(ctx context.Context, quoteID int64) ([]Version, error) {
	return append([]Version(nil), r.versions[quoteID]...), nil
}

func (r *memoryQuoteRepo) CreateDispute(ctx context.Context, d Dispute) (int64, error) {
	d.ID = r.id()
	d.OpenedAt = time.Now()
	r.disputes[d.ID] = d
	return d.ID, nil
}

func (r *memoryQuoteRepo) GetOpenDispute(ctx context.Context, quoteID int64) (*Dispute, error) {
	for _, d := range r.disputes {
		if d.QuoteID == quoteID && d.ResolvedAt == nil {
			dd := d
			return &dd, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryQuoteRepo) ResolveDispute(ctx context.Context, id, resolvedBy int64) error {
	d, ok := r.disputes[id]
	if !ok || d.ResolvedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	d.ResolvedBy = &resolvedBy
	d.ResolvedAt = &now
	r.disputes[id] = d
	return nil
}

type fakeCatalog struct {
	rooms     map[int64]catalog.HotelRoom
	roomRates map[int64][]catalog.SeasonalRate
	transport map[catalog.Region][]catalog.TransportRate
	fees      map[int64]catalog.EntryFee
}

func (f *fakeCatalog) GetRoom(ctx context.Context, id int64) (*catalog.HotelRoom, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &room, nil
}

func (f *fakeCatalog) ListRoomRates(ctx context.Context, roomID int64) ([]catalog.SeasonalRate, error) {
	return f.roomRates[roomID], nil
}

func (f *fakeCatalog) ListTransportRates(ctx context.Context, region catalog.Region) ([]catalog.TransportRate, error) {
	return f.transport[region], nil
}

func (f *fakeCatalog) GetEntryFees(ctx context.Context, ids []int64) ([]catalog.EntryFee, error) {
	var out []catalog.EntryFee
	for _, id := range ids {
		if fee, ok := f.fees[id]; ok {
			out = append(out, fee)
		}
	}
	return out, nil
}

type fakeSettings struct {
	rates  settings.TierRates
	policy json.RawMessage
}

func (f *fakeSettings) Current(ctx context.Context) (settings.TierRates, error) {
	return f.rates, nil
}

func (f *fakeSettings) CancellationPolicy(ctx context.Context) (json.RawMessage, error) {
	return f.policy, nil
}

type fakeFx struct {
	rates map[string]float64
}

func (f *fakeFx) Get(ctx context.Context, currency string) (fx.Rate, error) {
	rate, ok := f.rates[currency]
	if !ok {
		return fx.Rate{}, fx.ErrNoRate
	}
	return fx.Rate{Currency: currency, RateIDR: rate}, nil
}

type fakeAgentDir struct {
	agents map[int64]agents.Agent
}

func (f *fakeAgentDir) Get(ctx context.Context, id int64) (*agents.Agent, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, agents.ErrNotFound
	}
	return &a, nil
}

type fakeCommissions struct {
	calls []int64
	err   error
}

func (f *fakeCommissions) CreateForQuote(ctx context.Context, quoteID int64) error {
	f.calls = append(f.calls, quoteID)
	return f.err
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	agentActor = identity.Identity{AgentID: 1, Role: identity.RoleAgent, IsApproved: true}
	adminActor = identity.Identity{AgentID: 99, Role: identity.RoleAdmin, IsApproved: true}
)

func newTestService(t *testing.T) (*Service, *memoryQuoteRepo, *fakeCommissions, *fakeFx) {
	t.Helper()
	repo := newMemoryQuoteRepo()
	cat := &fakeCatalog{
		rooms: map[int64]catalog.HotelRoom{
			7: {ID: 7, BasePriceIDR: 800000, ChildPriceIDR: 250000, ExtraAdultPriceIDR: 400000, MaxCapacity: 3, AllowChild: true, AllowTriple: true},
			8: {ID: 8, BasePriceIDR: 1200000, MaxCapacity: 2},
		},
		roomRates: map[int64][]catalog.SeasonalRate{
			7: {{HotelRoomID: 7, StartDate: date("2026-06-01"), EndDate: date("2026-10-01"), RateIDR: 800000}},
			8: {{HotelRoomID: 8, StartDate: date("2026-06-01"), EndDate: date("2026-10-01"), RateIDR: 1200000}},
		},
		transport: map[catalog.Region][]catalog.TransportRate{
			catalog.RegionMainland: {
				{Region: catalog.RegionMainland, PaxLimit: 5, RatePerDayIDR: 600000},
				{Region: catalog.RegionMainland, PaxLimit: 12, RatePerDayIDR: 1100000},
			},
		},
		fees: map[int64]catalog.EntryFee{
			1: {ID: 1, Location: "Uluwatu Temple", PriceIDR: 50000},
		},
	}
	set := &fakeSettings{
		rates: settings.TierRates{
			MarkupRate:   map[settings.Tier]float64{settings.TierGold: 0.20, settings.TierBronze: 0.10},
			ReferralRate: map[settings.Tier]float64{settings.TierGold: 0.02},
		},
		policy: json.RawMessage(`{"rules":[{"days_before":30,"refund_pct":100}]}`),
	}
	fxSrc := &fakeFx{rates: map[string]float64{"INR": 190.5}}
	dir := &fakeAgentDir{agents: map[int64]agents.Agent{
		1: {ID: 1, Name: "Kerala Holidays", Tier: settings.TierGold, IsApproved: true},
		2: {ID: 2, Name: "Malabar Travels", Tier: settings.TierBronze, IsApproved: true},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(repo, cat, set, fxSrc, dir, 168*time.Hour, logger)
	commissions := &fakeCommissions{}
	svc.SetCommissionCreator(commissions)
	return svc, repo, commissions, fxSrc
}

func createTestQuote(t *testing.T, svc *Service) *Quote {
	t.Helper()
	q, err := svc.Create(context.Background(), agentActor, CreateQuoteRequest{
		ClientID:        1,
		TravelStart:     date("2026-07-10"),
		TravelEnd:       date("2026-07-13"),
		Pax:             2,
		DisplayCurrency: "IDR",
		Days: []DayInput{
			{DayNumber: 1, DayDate: date("2026-07-10"), Region: "mainland"},
			{DayNumber: 2, DayDate: date("2026-07-11"), Region: "mainland"},
			{DayNumber: 3, DayDate: date("2026-07-12"), Region: "mainland"},
		},
		Options: []OptionInput{
			{HotelRoomIDs: []int64{7}},
			{HotelRoomIDs: []int64{8}},
		},
	})
	require.NoError(t, err)
	return q
}

func TestCreateRequiresApprovedAgent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), identity.Identity{AgentID: 1, Role: identity.RoleAgent}, CreateQuoteRequest{})
	require.ErrorIs(t, err, shared.ErrNotApproved)
}

func TestCreateOpensUnpricedDraft(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.Equal(t, StatusDraft, q.Status)
	require.Zero(t, q.FinalTotalIDR)
	require.Nil(t, q.ExpiresAt)
}

func TestSendFreezesPolicyRateAndExpiry(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	now := date("2026-06-01")
	svc.now = func() time.Time { return now }

	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	sent := repo.quotes[q.ID]
	require.Equal(t, StatusSent, sent.Status)
	require.JSONEq(t, `{"rules":[{"days_before":30,"refund_pct":100}]}`, string(sent.PolicySnapshot))
	require.NotNil(t, sent.ExpiresAt)
	require.Equal(t, now.Add(168*time.Hour), *sent.ExpiresAt)

	// Room 2,400,000 + transport 3 x 600,000; gold markup 20%.
	require.Equal(t, int64(4200000), sent.BaseCostIDR)
	require.Equal(t, int64(840000), sent.MarkupIDR)
	require.Equal(t, int64(5040000), sent.FinalTotalIDR)

	history, err := repo.ListHistory(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, StatusDraft, history[0].From)
	require.Equal(t, StatusSent, history[0].To)
}

func TestSendPricesOptionsIndependently(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	options, err := repo.ListOptions(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, options, 2)
	// Option 1: room 2.4M + land 1.8M; option 2: room 3.6M + land 1.8M.
	require.Equal(t, int64(5040000), options[0].FinalTotalIDR)
	require.Equal(t, int64(6480000), options[1].FinalTotalIDR)
	// Quote header mirrors option 1 until a selection exists.
	require.Equal(t, options[0].FinalTotalIDR, repo.quotes[q.ID].FinalTotalIDR)
}

func TestSendTwiceRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	err := svc.Send(context.Background(), agentActor, q.ID)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StatusSent, invalid.From)
}

func TestUpdateItineraryOnlyWhileEditable(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	pax := 3
	err := svc.UpdateItinerary(context.Background(), agentActor, q.ID, UpdateItineraryRequest{Pax: &pax})
	require.ErrorIs(t, err, ErrNotEditable)

	require.NoError(t, svc.Revise(context.Background(), agentActor, q.ID))
	require.NoError(t, svc.UpdateItinerary(context.Background(), agentActor, q.ID, UpdateItineraryRequest{Pax: &pax}))
}

func TestReviseFreezesVersion(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))
	require.NoError(t, svc.Revise(context.Background(), agentActor, q.ID))

	versions, err := svc.Versions(context.Background(), agentActor, q.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, 1, versions[0].VersionNumber)

	var snap QuoteDetail
	require.NoError(t, json.Unmarshal(versions[0].Snapshot, &snap))
	require.Equal(t, q.ID, snap.Quote.ID)
	require.Len(t, snap.Options, 2)
	require.Equal(t, StatusRevised, repo.quotes[q.ID].Status)
}

func TestApproveRequiresOwnOption(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	other := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	var noOpt *NoOptionSelectedError

	err := svc.Approve(context.Background(), agentActor, q.ID, ApproveRequest{})
	require.ErrorAs(t, err, &noOpt)

	err = svc.Approve(context.Background(), agentActor, q.ID, ApproveRequest{SelectedOptionID: 99999})
	require.ErrorAs(t, err, &noOpt)

	otherOptions, _ := repo.ListOptions(context.Background(), other.ID)
	err = svc.Approve(context.Background(), agentActor, q.ID, ApproveRequest{SelectedOptionID: otherOptions[0].ID})
	require.ErrorAs(t, err, &noOpt)
}

func TestApproveCopiesSelectedOptionTotals(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	options, _ := repo.ListOptions(context.Background(), q.ID)
	second := options[1]
	require.NoError(t, svc.Approve(context.Background(), agentActor, q.ID, ApproveRequest{SelectedOptionID: second.ID}))

	approved := repo.quotes[q.ID]
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.SelectedOptionID)
	require.Equal(t, second.ID, *approved.SelectedOptionID)
	require.Equal(t, second.FinalTotalIDR, approved.FinalTotalIDR)
	require.Equal(t, second.MarkupIDR, approved.MarkupIDR)
}

func TestMarkPaidFiresCommissionsOnce(t *testing.T) {
	svc, repo, commissions, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))
	options, _ := repo.ListOptions(context.Background(), q.ID)
	require.NoError(t, svc.Approve(context.Background(), agentActor, q.ID, ApproveRequest{SelectedOptionID: options[0].ID}))

	require.NoError(t, svc.MarkPaid(context.Background(), q.ID, 99))
	require.Equal(t, StatusPaid, repo.quotes[q.ID].Status)
	require.Equal(t, []int64{q.ID}, commissions.calls)

	// A settlement retry skips the transition but still runs the creator;
	// the unique (quote_id, type) guard makes the second run a no-op.
	require.NoError(t, svc.MarkPaid(context.Background(), q.ID, 99))
	require.Equal(t, StatusPaid, repo.quotes[q.ID].Status)
	require.Equal(t, []int64{q.ID, q.ID}, commissions.calls)

	history, _ := repo.ListHistory(context.Background(), q.ID)
	paidTransitions := 0
	for _, h := range history {
		if h.To == StatusPaid {
			paidTransitions++
		}
	}
	require.Equal(t, 1, paidTransitions)
}

func TestMarkPaidRetryRepairsCommissions(t *testing.T) {
	svc, repo, commissions, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))
	options, _ := repo.ListOptions(context.Background(), q.ID)
	require.NoError(t, svc.Approve(context.Background(), agentActor, q.ID, ApproveRequest{SelectedOptionID: options[0].ID}))

	// The creator fails after the transition commits; the quote is paid but
	// the commission set is missing.
	commissions.err = errors.New("commissions unavailable")
	require.NoError(t, svc.MarkPaid(context.Background(), q.ID, 99))
	require.Equal(t, StatusPaid, repo.quotes[q.ID].Status)
	require.Equal(t, []int64{q.ID}, commissions.calls)

	// The next settlement redelivery re-invokes the creator and closes the gap.
	commissions.err = nil
	require.NoError(t, svc.MarkPaid(context.Background(), q.ID, 99))
	require.Equal(t, []int64{q.ID, q.ID}, commissions.calls)
}

func TestMarkPaidRejectedBeforeApproval(t *testing.T) {
	svc, _, commissions, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	err := svc.MarkPaid(context.Background(), q.ID, 99)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Empty(t, commissions.calls)
}

func TestHoldAndResume(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	q := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	require.NoError(t, svc.Hold(context.Background(), agentActor, q.ID, HoldRequest{Reason: "volcano alert"}))
	held := repo.quotes[q.ID]
	require.Equal(t, StatusOnHold, held.Status)
	require.NotNil(t, held.HoldPrevStatus)
	require.Equal(t, StatusSent, *held.HoldPrevStatus)

	require.NoError(t, svc.Resume(context.Background(), agentActor, q.ID))
	resumed := repo.quotes[q.ID]
	require.Equal(t, StatusSent, resumed.Status)
	require.Nil(t, resumed.HoldPrevStatus)

	// No open dispute left; a second resume has nowhere to go.
	err := svc.Resume(context.Background(), agentActor, q.ID)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestExpireDueSweep(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	now := date("2026-06-01")
	svc.now = func() time.Time { return now }

	first := createTestQuote(t, svc)
	second := createTestQuote(t, svc)
	require.NoError(t, svc.Send(context.Background(), agentActor, first.ID))
	require.NoError(t, svc.Send(context.Background(), agentActor, second.ID))

	// Nothing due yet.
	n, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	svc.now = func() time.Time { return now.Add(200 * time.Hour) }
	n, err = svc.ExpireDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, StatusExpired, repo.quotes[first.ID].Status)
	require.Equal(t, StatusExpired, repo.quotes[second.ID].Status)
}

func TestOwnershipScoping(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	q := createTestQuote(t, svc)

	stranger := identity.Identity{AgentID: 2, Role: identity.RoleAgent, IsApproved: true}
	_, err := svc.Get(context.Background(), stranger, q.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Get(context.Background(), adminActor, q.ID)
	require.NoError(t, err)

	list, total, err := svc.List(context.Background(), stranger, ListQuotesRequest{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, list)
}

func TestSendSnapshotsDisplayCurrencyRate(t *testing.T) {
	svc, repo, _, fxSrc := newTestService(t)
	q, err := svc.Create(context.Background(), agentActor, CreateQuoteRequest{
		ClientID:        1,
		TravelStart:     date("2026-07-10"),
		TravelEnd:       date("2026-07-13"),
		Pax:             2,
		DisplayCurrency: "INR",
		Days: []DayInput{
			{DayNumber: 1, DayDate: date("2026-07-10"), Region: "mainland"},
			{DayNumber: 2, DayDate: date("2026-07-11"), Region: "mainland"},
			{DayNumber: 3, DayDate: date("2026-07-12"), Region: "mainland"},
		},
		Options: []OptionInput{{HotelRoomIDs: []int64{7}}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))
	require.Equal(t, 190.5, repo.quotes[q.ID].ExchangeRateUsed)

	// The market moves; the sent quote must not.
	fxSrc.rates["INR"] = 200
	_, err = svc.Reprice(context.Background(), agentActor, q.ID)
	require.ErrorIs(t, err, ErrNotEditable)
	require.Equal(t, 190.5, repo.quotes[q.ID].ExchangeRateUsed)
}

func TestRepriceOnlyWhileEditable(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	q := createTestQuote(t, svc)

	priced, err := svc.Reprice(context.Background(), agentActor, q.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5040000), priced.Quote.FinalTotalIDR)

	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))
	frozen := repo.quotes[q.ID].FinalTotalIDR

	// Admin raises the gold markup; the sent quote keeps its frozen totals.
	svc.settings.(*fakeSettings).rates.MarkupRate[settings.TierGold] = 0.50
	_, err = svc.Reprice(context.Background(), agentActor, q.ID)
	require.ErrorIs(t, err, ErrNotEditable)
	require.Equal(t, frozen, repo.quotes[q.ID].FinalTotalIDR)

	// Revise reopens pricing; the new markup applies from there.
	require.NoError(t, svc.Revise(context.Background(), agentActor, q.ID))
	priced, err = svc.Reprice(context.Background(), agentActor, q.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6300000), priced.Quote.FinalTotalIDR)
}

func TestMultiRoomOptionSplitsParty(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	q, err := svc.Create(context.Background(), agentActor, CreateQuoteRequest{
		ClientID:    1,
		TravelStart: date("2026-07-10"),
		TravelEnd:   date("2026-07-12"),
		Pax:         3,
		Children:    1,
		Days: []DayInput{
			{DayNumber: 1, DayDate: date("2026-07-10"), Region: "mainland"},
			{DayNumber: 2, DayDate: date("2026-07-11"), Region: "mainland"},
		},
		Options: []OptionInput{{HotelRoomIDs: []int64{7, 7}}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Send(context.Background(), agentActor, q.ID))

	options, _ := repo.ListOptions(context.Background(), q.ID)
	// Room A hosts 2 adults, room B 1 adult + 1 child: two base rates plus one
	// child surcharge per night, two nights.
	wantRoom := int64((800000 + 800000 + 250000) * 2)
	require.Equal(t, wantRoom, options[0].RoomCostIDR)
}

func TestSplitPartyRoundRobin(t *testing.T) {
	parties := splitParty(3, 2, 2)
	require.Equal(t, []party{{adults: 2, children: 1}, {adults: 1, children: 1}}, parties)

	parties = splitParty(2, 0, 1)
	require.Equal(t, []party{{adults: 2}}, parties)
}
