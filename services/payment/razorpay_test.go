package paymentsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
)

func TestSign(t *testing.T) {
	// hex(HMAC-SHA256("secret", "order_1|pay_1"))
	sig := Sign("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Sign("secret", "order_1", "pay_1"))
	assert.NotEqual(t, sig, Sign("other", "order_1", "pay_1"))
	assert.NotEqual(t, sig, Sign("secret", "order_1", "pay_2"))
}

func TestVerifySignature(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Razorpay.KeyID = "rzp_test_key"
	conf.Razorpay.KeySecret = "secret"
	gw := NewGateway(conf)
	require.NotNil(t, gw)
	assert.Equal(t, "rzp_test_key", gw.KeyID())

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid", "order_1", "pay_1", Sign("secret", "order_1", "pay_1"), true},
		{"wrong payment", "order_1", "pay_2", Sign("secret", "order_1", "pay_1"), false},
		{"wrong secret", "order_1", "pay_1", Sign("nope", "order_1", "pay_1"), false},
		{"empty", "order_1", "pay_1", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gw.VerifySignature(tc.orderID, tc.paymentID, tc.signature))
		})
	}
}

func TestNewGatewayDisabled(t *testing.T) {
	assert.Nil(t, NewGateway(core.NewTestConfig()))
}

func TestFakeGateway(t *testing.T) {
	gw := NewFakeGateway("secret")
	o1, err := gw.CreateOrder(context.Background(), 50000, "INR", "rcpt", nil)
	require.NoError(t, err)
	o2, err := gw.CreateOrder(context.Background(), 100, "INR", "rcpt", nil)
	require.NoError(t, err)

	assert.NotEqual(t, o1.ID, o2.ID)
	assert.Equal(t, int64(50000), o1.Amount)
	assert.True(t, gw.VerifySignature(o1.ID, "pay_1", Sign("secret", o1.ID, "pay_1")))
}
