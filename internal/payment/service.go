package payment

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/payment-broker/internal/common"
	"github.com/noah-isme/payment-broker/internal/idempotency"
	"github.com/noah-isme/payment-broker/internal/resilience"
)

const (
	defaultCustomerName = "Guest"
	defaultThreeDSecure = "automatic"
	sofortLanguage      = "en"
)

// Service brokers intent creation against the upstream processor. A fresh
// Customer is created for every request; there is no lookup by email.
type Service struct {
	Provider Provider
	Breaker  *resilience.Breaker
	Logger   zerolog.Logger
}

// CreateIntent creates a Customer and then a PaymentIntent upstream. When the
// inbound request carried an Idempotency-Key, derived keys are forwarded on
// both calls so client retries cannot mint duplicate processor records.
func (s *Service) CreateIntent(ctx context.Context, req PaymentRequest) (Intent, error) {
	if s.Breaker != nil && !s.Breaker.Allow(ctx) {
		return Intent{}, common.NewAppError(
			"UPSTREAM_UNAVAILABLE",
			"payment processor temporarily unavailable",
			http.StatusServiceUnavailable,
			resilience.ErrOpenCircuit,
		)
	}

	idemKey := idempotency.FromContext(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultCustomerName
	}
	customer, err := s.Provider.CreateCustomer(ctx, CustomerParams{
		Name:           name,
		Email:          req.Email,
		IdempotencyKey: deriveKey(idemKey, "customer"),
	})
	if err != nil {
		s.report(ctx, false)
		return Intent{}, upstreamError(err)
	}

	methodTypes := req.PaymentMethodTypes
	if len(methodTypes) == 0 {
		methodTypes = []string{"card"}
	}

	intent, err := s.Provider.CreateIntent(ctx, IntentParams{
		Amount:         req.Amount,
		Currency:       req.Currency,
		CustomerID:     customer.ID,
		MethodTypes:    methodTypes,
		Options:        buildMethodOptions(methodTypes, req.RequestThreeDSecure),
		IdempotencyKey: deriveKey(idemKey, "intent"),
	})
	if err != nil {
		s.report(ctx, false)
		return Intent{}, upstreamError(err)
	}
	s.report(ctx, true)

	s.Logger.Info().
		Str("intent_id", intent.ID).
		Str("customer_id", customer.ID).
		Int64("amount", req.Amount).
		Str("currency", req.Currency).
		Strs("method_types", methodTypes).
		Msg("payment intent created")
	return intent, nil
}

func (s *Service) report(ctx context.Context, success bool) {
	if s.Breaker != nil {
		s.Breaker.Report(ctx, success)
	}
}

// buildMethodOptions populates an options entry for each recognised method
// type the caller supplied. Unrecognised types pass through without options.
func buildMethodOptions(methodTypes []string, threeDSecure string) MethodOptions {
	opts := MethodOptions{}
	for _, mt := range methodTypes {
		switch strings.ToLower(strings.TrimSpace(mt)) {
		case "card":
			policy := strings.TrimSpace(threeDSecure)
			if policy == "" {
				policy = defaultThreeDSecure
			}
			opts.Card = &CardOptions{RequestThreeDSecure: policy}
		case "sofort":
			opts.Sofort = &SofortOptions{PreferredLanguage: sofortLanguage}
		}
	}
	return opts
}

func deriveKey(base, suffix string) string {
	if base == "" {
		return ""
	}
	return base + ":" + suffix
}

func upstreamError(err error) error {
	return common.NewAppError("UPSTREAM_ERROR", UpstreamMessage(err), http.StatusBadGateway, err)
}
