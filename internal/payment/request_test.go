package payment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name string
		req  PaymentRequest
		want []string
	}{
		{
			name: "valid",
			req:  PaymentRequest{Email: "a@b.com", Amount: 1000, Currency: "usd"},
			want: nil,
		},
		{
			name: "all missing",
			req:  PaymentRequest{},
			want: []string{"email", "amount", "currency"},
		},
		{
			name: "missing amount",
			req:  PaymentRequest{Email: "a@b.com", Currency: "usd"},
			want: []string{"amount"},
		},
		{
			name: "missing currency",
			req:  PaymentRequest{Email: "a@b.com", Amount: 500},
			want: []string{"currency"},
		},
		{
			name: "missing email",
			req:  PaymentRequest{Amount: 500, Currency: "eur"},
			want: []string{"email"},
		},
		{
			name: "negative amount",
			req:  PaymentRequest{Email: "a@b.com", Amount: -5, Currency: "usd"},
			want: []string{"amount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ElementsMatch(t, tt.want, tt.req.MissingFields())
		})
	}
}

func TestMissingFieldsAcceptsThreeDSecurePolicies(t *testing.T) {
	for _, policy := range []string{"", "automatic", "any", "challenge"} {
		req := PaymentRequest{Email: "a@b.com", Amount: 100, Currency: "usd", RequestThreeDSecure: policy}
		require.Empty(t, req.MissingFields(), "policy %q", policy)
	}

	bad := PaymentRequest{Email: "a@b.com", Amount: 100, Currency: "usd", RequestThreeDSecure: "always"}
	require.Equal(t, []string{"request_three_d_secure"}, bad.MissingFields())
}
