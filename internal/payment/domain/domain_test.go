package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionFor(t *testing.T) {
	assert.Equal(t, IntentSucceeded, TransitionFor(0))
	assert.Equal(t, IntentCancelled, TransitionFor(1032))
	assert.Equal(t, IntentFailed, TransitionFor(1))
	assert.Equal(t, IntentFailed, TransitionFor(2001))
}

func TestResolution_OrderMapping(t *testing.T) {
	tests := []struct {
		code    int
		order   OrderStatus
		payment PaymentStatus
	}{
		{0, OrderProcessing, PaymentSucceeded},
		{1032, OrderCancelled, PaymentCancelled},
		{1037, OrderPaymentFailed, PaymentFailed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			res := CallbackResult{ResultCode: tt.code}.Resolution(time.Now())
			assert.Equal(t, tt.order, res.OrderStatus())
			assert.Equal(t, tt.payment, res.PaymentStatus())
			assert.True(t, res.Status.IsTerminal())
		})
	}
}

func TestCallbackResult_PositionalMetadata(t *testing.T) {
	full := CallbackResult{
		ResultCode: 0,
		MetadataItems: []MetadataItem{
			{Name: "Amount", Value: "500"},
			{Name: "MpesaReceiptNumber", Value: "NLJ7RT61SV"},
			{Name: "Balance"},
			{Name: "TransactionDate", Value: "20240115103045"},
			{Name: "PhoneNumber", Value: "254712345678"},
		},
	}
	assert.Equal(t, "NLJ7RT61SV", full.ReceiptNumber())
	assert.Equal(t, "20240115103045", full.TransactionDate())
	assert.Equal(t, "254712345678", full.PayerPhone())

	short := CallbackResult{
		MetadataItems: []MetadataItem{
			{Name: "Amount", Value: "500"},
			{Name: "MpesaReceiptNumber", Value: "NLJ7RT61SV"},
			{Name: "TransactionDate", Value: "20240115103045"},
			{Name: "PhoneNumber", Value: "254712345678"},
		},
	}
	assert.Equal(t, "20240115103045", short.TransactionDate())
	assert.Equal(t, "254712345678", short.PayerPhone())

	res := full.Resolution(time.Now())
	require.NotNil(t, res.SettledAt)
	assert.Equal(t, time.Date(2024, 1, 15, 7, 30, 45, 0, time.UTC), *res.SettledAt)
	assert.Equal(t, "NLJ7RT61SV", res.ReceiptNumber)
	assert.Empty(t, res.FailureReason())
}

func TestCallbackResult_NoMetadataOnFailure(t *testing.T) {
	res := CallbackResult{ResultCode: 1, ResultDesc: "The balance is insufficient"}.Resolution(time.Now())
	assert.Equal(t, IntentFailed, res.Status)
	assert.Empty(t, res.ReceiptNumber)
	assert.Nil(t, res.SettledAt)
	assert.Equal(t, "The balance is insufficient", res.FailureReason())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalidInput, KindOf(fmt.Errorf("wrap: %w", ErrInvalidPhoneNumber)))
	assert.Equal(t, KindConfiguration, KindOf(ErrCredentialsInactive))
	assert.Equal(t, KindProviderUnavailable, KindOf(Unavailable("token", fmt.Errorf("dial tcp: refused"))))
	assert.Equal(t, KindProviderRejected, KindOf(fmt.Errorf("submit: %w", &ProviderRejectedError{Code: "400.002.02", Reason: "Bad Request - Invalid Amount"})))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(ErrInvalidPhoneNumber), "2547XXXXXXXX")
	assert.Equal(t, "Bad Request - Invalid Amount", UserMessage(&ProviderRejectedError{Reason: "Bad Request - Invalid Amount"}))
	assert.Contains(t, UserMessage(Unavailable("submit", fmt.Errorf("timeout"))), "try again")
}

func TestCredentialSet_StringHidesSecrets(t *testing.T) {
	c := CredentialSet{TenantID: "platform", ShortCode: "174379", ConsumerKey: "ck", ConsumerSecret: "cs-secret", PassKey: "pk-secret"}
	s := fmt.Sprintf("%v %+v %#v", c, c, c)
	assert.NotContains(t, s, "cs-secret")
	assert.NotContains(t, s, "pk-secret")
}

func TestOrder_ComputeTotals(t *testing.T) {
	o := Order{
		Items: []OrderItem{
			{Quantity: 2, UnitPrice: decimal.NewFromInt(200)},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("50.50")},
		},
		ShippingFee: decimal.NewFromInt(100),
		Discount:    decimal.RequireFromString("0.50"),
	}
	o.ComputeTotals()
	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("450.50")))
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(550)))
}

func TestOrder_AwaitingPayment(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		info PaymentInfo
		at   time.Time
		want bool
	}{
		{"never paid", PaymentInfo{}, now, false},
		{"pending linked intent", PaymentInfo{Status: PaymentPending, IntentID: "i-1"}, now, true},
		{"pending without intent", PaymentInfo{Status: PaymentPending}, now, false},
		{"fresh claim", PaymentInfo{Status: PaymentInitiating}, now, true},
		{"abandoned claim", PaymentInfo{Status: PaymentInitiating}, now.Add(-2 * ClaimTimeout), false},
		{"cancelled", PaymentInfo{Status: PaymentCancelled, IntentID: "i-1"}, now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{PaymentInfo: tt.info, UpdatedAt: tt.at}
			assert.Equal(t, tt.want, o.AwaitingPayment())
		})
	}
}
