package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/payment-broker/internal/common"
	"github.com/noah-isme/payment-broker/internal/obs"
)

// Event is a verified webhook notification from the processor. Object holds
// the raw nested payload, whose shape depends on Type.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// Verifier authenticates a raw webhook payload against its signature header.
type Verifier interface {
	Verify(payload []byte, sigHeader string) (Event, error)
}

// Webhook handles processor callbacks: signature verification, optional
// replay suppression, and dispatch on event type.
type Webhook struct {
	Verifier  Verifier
	Replay    *redis.Client
	ReplayTTL time.Duration
	Logger    zerolog.Logger
}

// Handle processes a webhook delivery. The body is consumed as raw bytes
// because the signature is computed over the exact bytes sent; any verified
// event is acknowledged with 200 so the processor stops redelivering it.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil {
		common.JSONError(w, http.StatusInternalServerError, "WEBHOOK_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}

	event, err := h.Verifier.Verify(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Logger.Warn().Err(err).Msg("webhook signature verification failed")
		recordWebhook("unknown", "invalid_signature")
		common.JSONError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}

	if h.Replay != nil && h.ReplayTTL > 0 {
		key := "wh:stripe:" + common.Sha256Hex(string(body))
		ok, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			// fail open: a replay-store outage must not reject valid events
			h.Logger.Error().Err(err).Msg("webhook replay store unavailable")
		} else if !ok {
			// The processor redelivers until acknowledged, so a duplicate
			// is acked rather than treated as an error.
			h.Logger.Info().Str("event_id", event.ID).Str("event_type", event.Type).Msg("duplicate webhook delivery skipped")
			recordWebhook(event.Type, "duplicate")
			common.JSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
	}

	h.dispatch(r.Context(), event)
	common.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h Webhook) dispatch(_ context.Context, event Event) {
	switch event.Type {
	case EventPaymentSucceeded:
		var pi struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		}
		_ = json.Unmarshal(event.Object, &pi)
		// Funds captured. Order fulfillment and receipt email hooks go here.
		h.Logger.Info().
			Str("intent_id", pi.ID).
			Str("status", pi.Status).
			Int64("amount", pi.Amount).
			Str("currency", pi.Currency).
			Msg("payment captured")
		recordWebhook(event.Type, "ok")
	case EventPaymentFailed:
		var pi struct {
			ID               string `json:"id"`
			Status           string `json:"status"`
			LastPaymentError struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		}
		_ = json.Unmarshal(event.Object, &pi)
		h.Logger.Warn().
			Str("intent_id", pi.ID).
			Str("status", pi.Status).
			Str("reason", pi.LastPaymentError.Message).
			Msg("payment failed")
		recordWebhook(event.Type, "ok")
	default:
		h.Logger.Info().Str("event_type", event.Type).Msg("unhandled webhook event type")
		recordWebhook(event.Type, "unhandled")
	}
}

func recordWebhook(eventType, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(eventType, result).Inc()
	}
}
