package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/payment-broker/internal/common"
	"github.com/noah-isme/payment-broker/internal/obs"
)

// Handler exposes the HTTP endpoints for intent creation and key discovery.
type Handler struct {
	Svc            *Service
	PublishableKey string
	Logger         zerolog.Logger
}

type createIntentResp struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
}

// Index returns a static service greeting.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{
		"service": "payment-broker",
		"status":  "ok",
	})
}

// StripeKey returns the publishable key the paying client needs to initialise
// the Stripe SDK. The key is optional at startup, so its absence surfaces here.
func (h *Handler) StripeKey(w http.ResponseWriter, _ *http.Request) {
	if strings.TrimSpace(h.PublishableKey) == "" {
		common.JSONError(w, http.StatusInternalServerError, "CONFIG_MISSING", "publishable key is not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"publishableKey": h.PublishableKey})
}

// CreateIntent validates the request and brokers customer plus intent creation
// upstream. Validation failures never reach the processor.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		recordIntent("invalid")
		common.JSONError(w, http.StatusBadRequest, "VALIDATION",
			"missing required fields: "+strings.Join(missing, ", "),
			map[string]any{"missing": missing})
		return
	}

	intent, err := h.Svc.CreateIntent(r.Context(), req)
	if err != nil {
		recordIntent("error")
		status := http.StatusBadGateway
		code := "UPSTREAM_ERROR"
		message := UpstreamMessage(err)
		if ae, ok := common.AsAppError(err); ok {
			status = ae.HTTPStatus
			code = ae.Code
			message = ae.Message
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
		}
		h.Logger.Error().Err(err).Str("code", code).Msg("create payment intent failed")
		common.JSONError(w, status, code, message, nil)
		return
	}

	recordIntent("ok")
	common.JSON(w, http.StatusOK, createIntentResp{ClientSecret: intent.ClientSecret, ID: intent.ID})
}

func recordIntent(result string) {
	if obs.PaymentIntentTotal != nil {
		obs.PaymentIntentTotal.WithLabelValues(result).Inc()
	}
}
