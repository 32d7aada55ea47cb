package payment

import "context"

// Customer is the processor-side payer identity created for each request.
type Customer struct {
	ID string
}

// Intent is the processor-side payment intent. The client secret authorises
// the payer's client to confirm the payment without server credentials.
type Intent struct {
	ID           string
	ClientSecret string
}

// CustomerParams captures the information needed to create a Customer upstream.
type CustomerParams struct {
	Name           string
	Email          string
	IdempotencyKey string
}

// CardOptions configures card payments on an intent.
type CardOptions struct {
	RequestThreeDSecure string
}

// SofortOptions configures SOFORT payments on an intent.
type SofortOptions struct {
	PreferredLanguage string
}

// MethodOptions is the per-payment-method options map sent with an intent.
// Only entries for method types the caller actually requested are populated.
type MethodOptions struct {
	Card   *CardOptions
	Sofort *SofortOptions
}

// IntentParams captures the information needed to open a payment intent upstream.
type IntentParams struct {
	Amount         int64
	Currency       string
	CustomerID     string
	MethodTypes    []string
	Options        MethodOptions
	IdempotencyKey string
}

// Provider abstracts the operations required from the upstream payment processor.
type Provider interface {
	CreateCustomer(ctx context.Context, p CustomerParams) (Customer, error)
	CreateIntent(ctx context.Context, p IntentParams) (Intent, error)
}
