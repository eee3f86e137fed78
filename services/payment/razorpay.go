// Package paymentsvc implements fee.PaymentGateway.
package paymentsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/razorpay/razorpay-go"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/fee"
)

type razorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

var _ fee.PaymentGateway = (*razorpayGateway)(nil)

func NewRazorpayGateway(conf *core.Config) fee.PaymentGateway {
	return &razorpayGateway{
		client:    razorpay.NewClient(conf.Razorpay.KeyID, conf.Razorpay.KeySecret),
		keyID:     conf.Razorpay.KeyID,
		keySecret: conf.Razorpay.KeySecret,
	}
}

// NewGateway returns the Razorpay gateway when it is configured, nil otherwise.
func NewGateway(conf *core.Config) fee.PaymentGateway {
	if conf.Razorpay.KeyID == "" || conf.Razorpay.KeySecret == "" {
		return nil
	}
	return NewRazorpayGateway(conf)
}

func (gw *razorpayGateway) KeyID() string { return gw.keyID }

// CreateOrder creates a gateway order; amount is in the currency's smallest unit (paise).
func (gw *razorpayGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, notes map[string]string) (fee.GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	resp, err := gw.client.Order.Create(data, nil)
	if err != nil {
		return fee.GatewayOrder{}, errors.Wrap(err, "creating razorpay order")
	}

	id, ok := resp["id"].(string)
	if !ok || id == "" {
		return fee.GatewayOrder{}, errors.New("razorpay order without id")
	}
	order := fee.GatewayOrder{ID: id, Amount: amount, Currency: currency}
	if amt, ok := resp["amount"].(float64); ok {
		order.Amount = int64(amt)
	}
	if cur, ok := resp["currency"].(string); ok {
		order.Currency = cur
	}
	return order, nil
}

func (gw *razorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return checkSignature(gw.keySecret, orderID, paymentID, signature)
}

// Sign computes the checkout signature: hex(HMAC-SHA256(orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func checkSignature(secret, orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, orderID, paymentID)), []byte(signature))
}

// FakeGateway creates orders locally and verifies signatures made with Sign and its secret.
type FakeGateway struct {
	Secret string
	seq    int64
}

var _ fee.PaymentGateway = (*FakeGateway)(nil)

func NewFakeGateway(secret string) *FakeGateway {
	return &FakeGateway{Secret: secret}
}

func (gw *FakeGateway) KeyID() string { return "rzp_test_fake" }

func (gw *FakeGateway) CreateOrder(_ context.Context, amount int64, currency, _ string, _ map[string]string) (fee.GatewayOrder, error) {
	n := atomic.AddInt64(&gw.seq, 1)
	return fee.GatewayOrder{ID: fmt.Sprintf("order_fake%06d", n), Amount: amount, Currency: currency}, nil
}

func (gw *FakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return checkSignature(gw.Secret, orderID, paymentID, signature)
}
