package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/identity"
)

type quoteRow struct {
	finalTotalIDR int64
	status        string
}

type memoryLedger struct {
	payments map[int64]Payment
	quotes   map[int64]*quoteRow
	nextID   int64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		payments: make(map[int64]Payment),
		quotes:   make(map[int64]*quoteRow),
	}
}

func (r *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryLedger) Create(ctx context.Context, p Payment) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.payments[p.ID] = p
	return p.ID, nil
}

func (r *memoryLedger) Get(ctx context.Context, id int64) (*Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memoryLedger) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	return r.Get(ctx, id)
}

func (r *memoryLedger) FindByGatewayRef(ctx context.Context, ref string) (*Payment, error) {
	for _, p := range r.payments {
		if p.GatewayRef != nil && *p.GatewayRef == ref {
			pp := p
			return &pp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryLedger) ListByQuote(ctx context.Context, quoteID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.QuoteID == quoteID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryLedger) SetProof(ctx context.Context, id int64, proofURL string) error {
	p, ok := r.payments[id]
	if !ok || p.Status != StatusPending {
		return ErrNotFound
	}
	p.ProofURL = &proofURL
	r.payments[id] = p
	return nil
}

func (r *memoryLedger) MarkVerified(ctx context.Context, id, verifiedBy int64) error {
	p, ok := r.payments[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	p.Status = StatusVerified
	p.VerifiedBy = &verifiedBy
	p.VerifiedAt = &now
	r.payments[id] = p
	return nil
}

func (r *memoryLedger) MarkRejected(ctx context.Context, id, verifiedBy int64, reason string) error {
	p, ok := r.payments[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	p.Status = StatusRejected
	p.VerifiedBy = &verifiedBy
	p.VerifiedAt = &now
	p.RejectReason = &reason
	r.payments[id] = p
	return nil
}

func (r *memoryLedger) SumVerifiedIDR(ctx context.Context, quoteID int64) (int64, error) {
	var sum int64
	for _, p := range r.payments {
		if p.QuoteID == quoteID && p.Status == StatusVerified {
			sum += p.AmountIDR
		}
	}
	return sum, nil
}

func (r *memoryLedger) LockQuote(ctx context.Context, quoteID int64) (int64, string, error) {
	q, ok := r.quotes[quoteID]
	if !ok {
		return 0, "", ErrNotFound
	}
	return q.finalTotalIDR, q.status, nil
}

// fakePayer mirrors the real transition contract: the first call flips the
// quote to paid, later calls are idempotent no-ops. calls records transitions,
// invocations every attempt.
type fakePayer struct {
	ledger      *memoryLedger
	calls       []int64
	invocations int
}

func (f *fakePayer) MarkPaid(ctx context.Context, quoteID, actorID int64) error {
	f.invocations++
	q := f.ledger.quotes[quoteID]
	if q.status == "paid" {
		return nil
	}
	f.calls = append(f.calls, quoteID)
	q.status = "paid"
	return nil
}

type fakeFxSource struct {
	rates map[string]float64
}

func (f *fakeFxSource) Get(ctx context.Context, currency string) (fx.Rate, error) {
	rate, ok := f.rates[currency]
	if !ok {
		return fx.Rate{}, fx.ErrNoRate
	}
	return fx.Rate{Currency: currency, RateIDR: rate}, nil
}

var payActor = identity.Identity{AgentID: 1, Role: identity.RoleAgent, IsApproved: true}

func newTestLedger(t *testing.T) (*Service, *memoryLedger, *fakePayer) {
	t.Helper()
	ledger := newMemoryLedger()
	ledger.quotes[10] = &quoteRow{finalTotalIDR: 12000000, status: "approved"}
	ledger.quotes[11] = &quoteRow{finalTotalIDR: 5000000, status: "sent"}

	payer := &fakePayer{ledger: ledger}
	fxSrc := &fakeFxSource{rates: map[string]float64{"USD": 16250}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(ledger, payer, fxSrc, logger), ledger, payer
}

func TestRecordFreezesConversionRate(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	p, err := svc.Record(context.Background(), payActor, RecordPaymentRequest{
		QuoteID:    10,
		AmountPaid: 100,
		Currency:   "USD",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, p.Status)
	require.Equal(t, int64(1625000), p.AmountIDR)
	require.Equal(t, 16250.0, p.FxRateUsed)
}

func TestRecordRequiresApprovedQuote(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	_, err := svc.Record(context.Background(), payActor, RecordPaymentRequest{
		QuoteID:    11,
		AmountPaid: 100,
		Currency:   "IDR",
	})
	require.ErrorIs(t, err, ErrQuoteNotPayable)
}

func TestVerifyManualNeedsProof(t *testing.T) {
	svc, ledger, _ := newTestLedger(t)
	p, err := svc.Record(context.Background(), payActor, RecordPaymentRequest{
		QuoteID:    10,
		AmountPaid: 12000000,
		Currency:   "IDR",
		IsManual:   true,
	})
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), p.ID, 99)
	var missing *MissingProofError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, p.ID, missing.PaymentID)
	require.Equal(t, int64(10), missing.QuoteID)
	require.Equal(t, StatusPending, ledger.payments[p.ID].Status)

	require.NoError(t, svc.AttachProof(context.Background(), p.ID, "https://proof.example/slip.jpg"))
	settled, err := svc.Verify(context.Background(), p.ID, 99)
	require.NoError(t, err)
	require.True(t, settled)
}

func TestSettlementAcrossInstallments(t *testing.T) {
	svc, ledger, payer := newTestLedger(t)

	record := func(amount int64) int64 {
		p, err := svc.Record(context.Background(), payActor, RecordPaymentRequest{
			QuoteID:    10,
			AmountPaid: amount,
			Currency:   "IDR",
		})
		require.NoError(t, err)
		return p.ID
	}

	first := record(6000000)
	second := record(6000000)

	settled, err := svc.Verify(context.Background(), first, 99)
	require.NoError(t, err)
	require.False(t, settled)
	require.Empty(t, payer.calls)

	settled, err = svc.Verify(context.Background(), second, 99)
	require.NoError(t, err)
	require.True(t, settled)
	require.Equal(t, []int64{10}, payer.calls)
	require.Equal(t, "paid", ledger.quotes[10].status)

	// A webhook retry re-verifies. The paid transition is driven again so a
	// failed post-settlement side effect gets repaired, but it stays a no-op
	// and never fires twice.
	settled, err = svc.Verify(context.Background(), second, 99)
	require.NoError(t, err)
	require.True(t, settled)
	require.Equal(t, []int64{10}, payer.calls)
	require.Equal(t, 2, payer.invocations)
}

func TestSettlementRequiresFullCoverage(t *testing.T) {
	svc, _, payer := newTestLedger(t)
	p, err := svc.Record(context.Background(), payActor, RecordPaymentRequest{
		QuoteID:    10,
		AmountPaid: 11999999,
		Currency:   "IDR",
	})
	require.NoError(t, err)

	settled, err := svc.Verify(context.Background(), p.ID, 99)
	require.NoError(t, err)
	require.False(t, settled)
	require.Empty(t, payer.calls)
}

func TestRejectedAmountsNeverCount(t *testing.T) {
	svc, _, payer := newTestLedger(t)
	record := func(amount int64) int64 {
		p, err := svc.Record(context.Background(), payActor, RecordPaymentRequest{
			QuoteID: 10, AmountPaid: amount, Currency: "IDR",
		})
		require.NoError(t, err)
		return p.ID
	}

	rejected := record(12000000)
	require.NoError(t, svc.Reject(context.Background(), rejected, 99, "bounced transfer"))

	// Rejection is final.
	require.ErrorIs(t, svc.Reject(context.Background(), rejected, 99, "again"), ErrAlreadyFinal)
	_, err := svc.Verify(context.Background(), rejected, 99)
	require.ErrorIs(t, err, ErrAlreadyFinal)

	// Full coverage must come from verified rows only.
	fresh := record(12000000)
	settled, err := svc.Verify(context.Background(), fresh, 99)
	require.NoError(t, err)
	require.True(t, settled)
	require.Equal(t, []int64{10}, payer.calls)
}
