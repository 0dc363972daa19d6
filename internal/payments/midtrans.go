package payments

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrInvalidSignature indicates a callback whose signature does not match the
// server key.
var ErrInvalidSignature = errors.New("payments: invalid gateway signature")

// Gateway wraps the Midtrans Snap client. The core only records intent and
// reacts to callbacks; it never awaits delivery.
type Gateway struct {
	client    snap.Client
	serverKey string
}

// NewGateway builds the gateway client. env is "production" or "sandbox".
func NewGateway(serverKey, env string) *Gateway {
	g := &Gateway{serverKey: serverKey}
	if env == "production" {
		g.client.New(serverKey, midtrans.Production)
	} else {
		g.client.New(serverKey, midtrans.Sandbox)
	}
	return g
}

// Intent is the gateway-side handle for an online payment.
type Intent struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// OrderID builds the gateway order reference for a quote payment. The uuid
// suffix keeps retried intents for the same quote distinct.
func OrderID(quoteID int64) string {
	return fmt.Sprintf("BMQ-%d-%s", quoteID, uuid.NewString())
}

// CreateIntent opens a Snap transaction for the amount in IDR.
func (g *Gateway) CreateIntent(_ context.Context, orderID string, amountIDR int64, clientName string) (*Intent, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amountIDR,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    orderID,
			Price: amountIDR,
			Qty:   1,
			Name:  "Bali trip package",
		}},
	}
	if clientName != "" {
		req.CustomerDetail = &midtrans.CustomerDetails{FName: clientName}
	}

	resp, err := g.client.CreateTransaction(req)
	if err != nil {
		return nil, fmt.Errorf("payments: create gateway intent: %w", err)
	}
	return &Intent{OrderID: orderID, Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// Notification is the callback payload Midtrans posts on status changes.
type Notification struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

// VerifySignature checks SHA512(order_id + status_code + gross_amount + server key).
func (g *Gateway) VerifySignature(n Notification) error {
	raw := n.OrderID + n.StatusCode + n.GrossAmount + g.serverKey
	sum := sha512.Sum512([]byte(raw))
	if n.SignatureKey == "" || hex.EncodeToString(sum[:]) != strings.ToLower(n.SignatureKey) {
		return ErrInvalidSignature
	}
	return nil
}

// Success reports whether the notification confirms money received.
func (n Notification) Success() bool {
	switch n.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return n.FraudStatus == "" || n.FraudStatus == "accept"
	}
	return false
}
