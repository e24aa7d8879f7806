package reservation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/bflex/internal/api"
	"github.com/colonyops/bflex/internal/core/notify"
)

const payment9 = `{
	"payment": {
		"id": 9,
		"status": "PAID",
		"gatewayName": "stripe",
		"amount": {"amount": "1234.5", "currency": "EUR"},
		"client": {"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com", "phone": "+100"},
		"allocations": [
			{"reservation": {"id": 1, "paymentType": {"gatewayName": "paypal"}}},
			{"reservation": {"id": 2, "paymentType": {"gatewayName": "stripe"}}},
			{}
		],
		"details": {"charge": "ch_1"}
	}
}`

func TestPayments_Load(t *testing.T) {
	f := &fakeAPI{payments: map[int64]string{9: payment9}}
	s := NewPayments(f, nil)

	p, err := s.Load(context.Background(), 9)
	require.NoError(t, err)

	assert.True(t, p.IsPaid())
	assert.False(t, p.IsPending())
	assert.True(t, p.HasAllocations())
	assert.True(t, p.HasGatewayDetails())
	assert.Equal(t, "EUR 1,234.50", p.FormattedAmount())
	assert.Equal(t, "Grace Hopper", p.ClientName())
	assert.Equal(t, "grace@example.com", p.ClientEmail())
	assert.Equal(t, "+100", p.ClientPhone())

	r, ok := p.RelatedReservation()
	require.True(t, ok)
	assert.Equal(t, "2", r.ID.String())

	assert.Equal(t, []string{"payment-9"}, f.requestIDs)
}

func TestPayments_LoadRequiresID(t *testing.T) {
	s := NewPayments(&fakeAPI{}, nil)
	_, err := s.Load(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestPayments_LoadInvalidResponse(t *testing.T) {
	f := &fakeAPI{payments: map[int64]string{3: `{"items": []}`}}
	s := NewPayments(f, nil)

	_, err := s.Load(context.Background(), 3)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestPayments_LoadFailureShowsDangerToast(t *testing.T) {
	errs, toasts := errorsToToasts(t)
	s := NewPayments(&fakeAPI{err: &api.ResponseError{Status: 500, Message: "gateway down"}}, errs)

	_, err := s.Load(context.Background(), 9)
	require.Error(t, err)
	assert.False(t, s.Loading())

	require.Eventually(t, func() bool {
		shown := toasts.Notifications()
		return len(shown) == 1 && shown[0].Type == notify.TypeDanger && shown[0].Message == "gateway down"
	}, time.Second, 5*time.Millisecond)
}

func TestPayments_ReloadAndClear(t *testing.T) {
	f := &fakeAPI{payments: map[int64]string{9: payment9}}
	s := NewPayments(f, nil)

	_, err := s.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNothingToReload)

	_, err = s.Load(context.Background(), 9)
	require.NoError(t, err)
	_, err = s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls())

	s.Clear()
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestPayment_Statuses(t *testing.T) {
	tests := []struct {
		status PaymentStatus
		check  func(Payment) bool
	}{
		{PaymentPaid, Payment.IsPaid},
		{PaymentPending, Payment.IsPending},
		{PaymentFailed, Payment.IsFailed},
		{PaymentRefunded, Payment.IsRefunded},
		{PaymentPartiallyRefunded, Payment.IsPartiallyRefunded},
		{PaymentCancelled, Payment.IsCancelled},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.check(Payment{Status: tt.status}))
			assert.False(t, tt.check(Payment{Status: "OTHER"}))
		})
	}
}

func TestPayment_WithoutOptionalParts(t *testing.T) {
	var p Payment
	assert.Empty(t, p.FormattedAmount())
	assert.Empty(t, p.ClientName())
	assert.Empty(t, p.ClientEmail())
	assert.Empty(t, p.ClientPhone())
	assert.False(t, p.HasAllocations())
	assert.False(t, p.HasGatewayDetails())
	_, ok := p.RelatedReservation()
	assert.False(t, ok)
}

func TestPayment_HasGatewayDetails(t *testing.T) {
	tests := map[string]bool{
		`null`:            false,
		`[]`:              false,
		`{}`:              false,
		`["auth"]`:        true,
		`{"charge": "x"}`: true,
		`"text"`:          false,
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, Payment{Details: json.RawMessage(raw)}.HasGatewayDetails())
		})
	}
}

func TestMoney_Format(t *testing.T) {
	assert.Equal(t, "EUR 12.00", Money{Amount: 12}.Format())
	assert.Equal(t, "USD 0.99", Money{Amount: 0.99, Currency: "USD"}.Format())
	assert.Equal(t, "XYZ1 5.00", Money{Amount: 5, Currency: "XYZ1"}.Format())
}
