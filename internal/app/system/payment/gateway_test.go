package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGatewayRequiresKeys(t *testing.T) {
	_, err := NewGateway(GatewayConfig{KeyID: "rzp_test"})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	g, err := NewGateway(GatewayConfig{KeyID: "rzp_test", KeySecret: "s3cret"})
	require.NoError(t, err)

	sig := Sign("s3cret", "order_1", "pay_1")
	assert.NoError(t, g.Verify(Confirmation{OrderID: "order_1", PaymentID: "pay_1", Signature: sig}))

	assert.ErrorIs(t, g.Verify(Confirmation{OrderID: "order_1", PaymentID: "pay_2", Signature: sig}), ErrBadSignature)
	assert.ErrorIs(t, g.Verify(Confirmation{OrderID: "order_1", PaymentID: "pay_1", Signature: Sign("other", "order_1", "pay_1")}), ErrBadSignature)
	assert.ErrorIs(t, g.Verify(Confirmation{OrderID: "order_1", PaymentID: "pay_1"}), ErrBadSignature)
}

func TestCreateOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test" || pass != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/orders" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"order_9","amount":50000,"currency":"INR","receipt":"don-1"}`))
	}))
	defer srv.Close()

	g, err := NewGateway(GatewayConfig{KeyID: "rzp_test", KeySecret: "s3cret", APIRoot: srv.URL})
	require.NoError(t, err)

	o, err := g.CreateOrder(context.Background(), 50000, "inr", "don-1")
	require.NoError(t, err)
	assert.Equal(t, Order{ID: "order_9", Amount: 50000, Currency: "INR", Receipt: "don-1"}, o)
	assert.EqualValues(t, 50000, got["amount"])
	assert.Equal(t, "INR", got["currency"])
}

func TestCreateOrderRejectsAmount(t *testing.T) {
	g, err := NewGateway(GatewayConfig{KeyID: "k", KeySecret: "s", APIRoot: "http://127.0.0.1:0"})
	require.NoError(t, err)
	_, err = g.CreateOrder(context.Background(), 10, "INR", "r")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDisabled(t *testing.T) {
	var c Checkout = Disabled{}
	_, err := c.CreateOrder(context.Background(), 1000, "INR", "r")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, c.Verify(Confirmation{}), ErrUnavailable)
	assert.Empty(t, c.KeyID())
}
