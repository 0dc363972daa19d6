package payments

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testServerKey = "SB-Mid-server-test"

func signNotification(n *Notification) {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + testServerKey))
	n.SignatureKey = hex.EncodeToString(sum[:])
}

func TestVerifySignature(t *testing.T) {
	gw := NewGateway(testServerKey, "sandbox")

	n := Notification{
		OrderID:     "BMQ-10-abc",
		StatusCode:  "200",
		GrossAmount: "12000000.00",
	}
	signNotification(&n)
	require.NoError(t, gw.VerifySignature(n))

	// Uppercase hex from the gateway still matches.
	n.SignatureKey = strings.ToUpper(n.SignatureKey)
	require.NoError(t, gw.VerifySignature(n))

	n.GrossAmount = "1.00"
	require.ErrorIs(t, gw.VerifySignature(n), ErrInvalidSignature)

	n.SignatureKey = ""
	require.ErrorIs(t, gw.VerifySignature(n), ErrInvalidSignature)
}

func TestNotificationSuccess(t *testing.T) {
	cases := []struct {
		status string
		fraud  string
		want   bool
	}{
		{"settlement", "", true},
		{"capture", "", true},
		{"capture", "accept", true},
		{"capture", "challenge", false},
		{"pending", "", false},
		{"deny", "", false},
		{"expire", "", false},
	}
	for _, tc := range cases {
		n := Notification{TransactionStatus: tc.status, FraudStatus: tc.fraud}
		require.Equal(t, tc.want, n.Success(), "%s/%s", tc.status, tc.fraud)
	}
}

func TestOrderIDIncludesQuote(t *testing.T) {
	id := OrderID(42)
	require.True(t, strings.HasPrefix(id, "BMQ-42-"))
	// Retried intents get distinct order ids.
	require.NotEqual(t, id, OrderID(42))
}

func TestHandleGatewayNotificationSettles(t *testing.T) {
	svc, ledger, payer := newTestLedger(t)
	svc.SetGateway(NewGateway(testServerKey, "sandbox"))

	orderID := "BMQ-10-order"
	ledger.Create(context.Background(), Payment{
		QuoteID: 10, AgentID: 1, AmountPaid: 12000000, CurrencyPaid: "IDR",
		AmountIDR: 12000000, FxRateUsed: 1, Status: StatusPending, GatewayRef: &orderID,
	})

	n := Notification{
		TransactionStatus: "settlement",
		StatusCode:        "200",
		OrderID:           orderID,
		GrossAmount:       "12000000.00",
	}
	signNotification(&n)

	require.NoError(t, svc.HandleGatewayNotification(context.Background(), n))
	require.Equal(t, []int64{10}, payer.calls)

	// Midtrans retries callbacks; the second delivery re-drives the
	// idempotent transition without firing it twice.
	require.NoError(t, svc.HandleGatewayNotification(context.Background(), n))
	require.Equal(t, []int64{10}, payer.calls)
	require.Equal(t, 2, payer.invocations)
}

func TestHandleGatewayNotificationRejectsAndIgnores(t *testing.T) {
	svc, ledger, payer := newTestLedger(t)
	svc.SetGateway(NewGateway(testServerKey, "sandbox"))

	orderID := "BMQ-10-order"
	id, _ := ledger.Create(context.Background(), Payment{
		QuoteID: 10, AgentID: 1, AmountPaid: 12000000, CurrencyPaid: "IDR",
		AmountIDR: 12000000, FxRateUsed: 1, Status: StatusPending, GatewayRef: &orderID,
	})

	deny := Notification{TransactionStatus: "deny", StatusCode: "202", OrderID: orderID, GrossAmount: "12000000.00"}
	signNotification(&deny)
	require.NoError(t, svc.HandleGatewayNotification(context.Background(), deny))
	require.Equal(t, StatusRejected, ledger.payments[id].Status)
	require.Empty(t, payer.calls)

	// Tampered payload never touches the ledger.
	bad := deny
	bad.SignatureKey = "deadbeef"
	require.ErrorIs(t, svc.HandleGatewayNotification(context.Background(), bad), ErrInvalidSignature)

	// Unknown order ids are acknowledged so the gateway stops retrying.
	unknown := Notification{TransactionStatus: "settlement", StatusCode: "200", OrderID: "BMQ-99-gone", GrossAmount: "1.00"}
	signNotification(&unknown)
	require.NoError(t, svc.HandleGatewayNotification(context.Background(), unknown))
}

func TestCreateGatewayIntentRequiresGateway(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	_, err := svc.CreateGatewayIntent(context.Background(), payActor, 10, "Anil")
	require.ErrorIs(t, err, ErrNoGateway)
}
