package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIRoot = "https://api.razorpay.com/v1"

// GatewayConfig holds the merchant credentials.
type GatewayConfig struct {
	KeyID     string
	KeySecret string
	// APIRoot overrides the API base URL (tests).
	APIRoot string
}

// Gateway is a Checkout backed by the Razorpay orders API.
type Gateway struct {
	cfg    GatewayConfig
	client *http.Client
}

// NewGateway returns a Gateway, or an error if credentials are missing.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("payment key id and secret are required")
	}
	if cfg.APIRoot == "" {
		cfg.APIRoot = defaultAPIRoot
	}
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: 20 * time.Second}}, nil
}

// KeyID implements Checkout.
func (g *Gateway) KeyID() string { return g.cfg.KeyID }

// CreateOrder implements Checkout.
func (g *Gateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (Order, error) {
	if amount < MinAmount || amount > MaxAmount {
		return Order{}, ErrInvalidAmount
	}
	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": strings.ToUpper(currency),
		"receipt":  receipt,
	})
	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.cfg.APIRoot, "/")+"/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return Order{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Order{}, fmt.Errorf("create order failed (%s): %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	var o Order
	if err := json.Unmarshal(respBody, &o); err != nil {
		return Order{}, fmt.Errorf("create order parse failed: %w", err)
	}
	if o.ID == "" {
		return Order{}, errors.New("create order returned no id")
	}
	return o, nil
}

// Verify implements Checkout. The signature is HMAC-SHA256 over
// "<order_id>|<payment_id>" keyed with the merchant secret, hex encoded.
func (g *Gateway) Verify(c Confirmation) error {
	if c.OrderID == "" || c.PaymentID == "" || c.Signature == "" {
		return ErrBadSignature
	}
	want := Sign(g.cfg.KeySecret, c.OrderID, c.PaymentID)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(c.Signature))) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the confirmation signature for an order and payment.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
