package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Supported webhook event types. Anything else is acknowledged but unhandled.
const (
	EventPaymentSucceeded = string(stripe.EventTypePaymentIntentSucceeded)
	EventPaymentFailed    = string(stripe.EventTypePaymentIntentPaymentFailed)
)

const upstreamFallbackMessage = "payment processor request failed"

// StripeProvider implements Provider against the live Stripe API.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider builds a Stripe client with a bounded HTTP timeout so a
// stalled upstream call cannot pin a request forever.
func NewStripeProvider(secretKey string, timeout time.Duration) *StripeProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	api := &client.API{}
	api.Init(secretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))
	return &StripeProvider{api: api}
}

// CreateCustomer registers a payer identity with Stripe.
func (s *StripeProvider) CreateCustomer(ctx context.Context, p CustomerParams) (Customer, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(p.Email),
	}
	if strings.TrimSpace(p.Name) != "" {
		params.Name = stripe.String(p.Name)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	cus, err := s.api.Customers.New(params)
	if err != nil {
		return Customer{}, err
	}
	return Customer{ID: cus.ID}, nil
}

// CreateIntent opens a payment intent for the given customer.
func (s *StripeProvider) CreateIntent(ctx context.Context, p IntentParams) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(p.Amount),
		Currency:           stripe.String(p.Currency),
		Customer:           stripe.String(p.CustomerID),
		PaymentMethodTypes: stripe.StringSlice(p.MethodTypes),
	}
	if p.Options.Card != nil || p.Options.Sofort != nil {
		opts := &stripe.PaymentIntentPaymentMethodOptionsParams{}
		if p.Options.Card != nil {
			opts.Card = &stripe.PaymentIntentPaymentMethodOptionsCardParams{
				RequestThreeDSecure: stripe.String(p.Options.Card.RequestThreeDSecure),
			}
		}
		if p.Options.Sofort != nil {
			opts.Sofort = &stripe.PaymentIntentPaymentMethodOptionsSofortParams{
				PreferredLanguage: stripe.String(p.Options.Sofort.PreferredLanguage),
			}
		}
		params.PaymentMethodOptions = opts
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, err
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// UpstreamMessage extracts a human-readable message from an upstream error,
// preferring Stripe's own message over the generic error text.
func UpstreamMessage(err error) string {
	var se *stripe.Error
	if errors.As(err, &se) && strings.TrimSpace(se.Msg) != "" {
		return se.Msg
	}
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		return err.Error()
	}
	return upstreamFallbackMessage
}

// StripeVerifier authenticates webhook payloads against the shared signing
// secret. Verification runs over the exact raw bytes Stripe sent.
type StripeVerifier struct {
	Secret string
}

// Verify checks the signature header and decodes the event envelope.
// Deliveries carry the Stripe account's pinned API version, which rarely
// matches the SDK's, so the version check is skipped; the signature check is
// what authenticates the payload.
func (v StripeVerifier) Verify(payload []byte, sigHeader string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, err
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		out.Object = json.RawMessage(ev.Data.Raw)
	}
	return out, nil
}
