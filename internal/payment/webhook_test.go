package payment

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/noah-isme/payment-broker/internal/obs"
)

const testWebhookSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

// Real deliveries carry the account's pinned API version, so the fixtures do too.
func eventPayload(eventType string, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","api_version":"2020-08-27","type":%q,"data":{"object":%s}}`, eventType, object))
}

func deliver(t *testing.T, h Webhook, payload []byte, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", header)
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

func newWebhook() Webhook {
	return Webhook{Verifier: StripeVerifier{Secret: testWebhookSecret}, Logger: zerolog.Nop()}
}

func TestWebhookVerifiedEventIsAcknowledged(t *testing.T) {
	h := newWebhook()
	payload := eventPayload("payment_intent.succeeded", `{"id":"pi_123","status":"succeeded","amount":1000,"currency":"usd"}`)

	rr := deliver(t, h, payload, signedHeader(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "received")
}

func TestWebhookOlderAPIVersionIsAccepted(t *testing.T) {
	h := newWebhook()
	payload := []byte(`{"id":"evt_old","api_version":"2020-08-27","type":"payment_intent.succeeded","data":{"object":{"id":"pi_old","status":"succeeded","amount":700,"currency":"usd"}}}`)

	rr := deliver(t, h, payload, signedHeader(t, payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, rr.Code, "signature, not API version, authenticates a delivery")
}

func TestWebhookTamperedBodyIsRejected(t *testing.T) {
	h := newWebhook()
	payload := eventPayload("payment_intent.succeeded", `{"id":"pi_123","status":"succeeded"}`)
	header := signedHeader(t, payload, testWebhookSecret)

	tampered := []byte(strings.Replace(string(payload), "pi_123", "pi_124", 1))
	rr := deliver(t, h, tampered, header)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "INVALID_SIGNATURE")
}

func TestWebhookWrongSecretIsRejected(t *testing.T) {
	h := newWebhook()
	payload := eventPayload("payment_intent.succeeded", `{"id":"pi_123"}`)

	rr := deliver(t, h, payload, signedHeader(t, payload, "whsec_other"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookAllEventTypesAcknowledged(t *testing.T) {
	h := newWebhook()
	cases := []struct {
		eventType string
		object    string
	}{
		{"payment_intent.succeeded", `{"id":"pi_1","status":"succeeded","amount":500,"currency":"eur"}`},
		{"payment_intent.payment_failed", `{"id":"pi_2","status":"requires_payment_method","last_payment_error":{"message":"card declined"}}`},
		{"charge.refunded", `{"id":"ch_1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			payload := eventPayload(tc.eventType, tc.object)
			rr := deliver(t, h, payload, signedHeader(t, payload, testWebhookSecret))
			require.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestWebhookDuplicateDeliveryAckedButSkipped(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	obs.MustRegisterDomainMetrics("brokertest", nil)

	h := newWebhook()
	h.Replay = client
	h.ReplayTTL = time.Minute

	payload := eventPayload("payment_intent.succeeded", `{"id":"pi_9","status":"succeeded"}`)
	header := signedHeader(t, payload, testWebhookSecret)

	handled := testutil.ToFloat64(obs.PaymentWebhookTotal.WithLabelValues("payment_intent.succeeded", "ok"))
	skipped := testutil.ToFloat64(obs.PaymentWebhookTotal.WithLabelValues("payment_intent.succeeded", "duplicate"))

	rr1 := deliver(t, h, payload, header)
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := deliver(t, h, payload, header)
	require.Equal(t, http.StatusOK, rr2.Code, "duplicates are acked to stop redelivery")

	require.Equal(t, handled+1,
		testutil.ToFloat64(obs.PaymentWebhookTotal.WithLabelValues("payment_intent.succeeded", "ok")),
		"dispatch must run exactly once")
	require.Equal(t, skipped+1,
		testutil.ToFloat64(obs.PaymentWebhookTotal.WithLabelValues("payment_intent.succeeded", "duplicate")),
		"second delivery must be recorded as a duplicate")
}

func TestWebhookUnconfiguredVerifier(t *testing.T) {
	h := Webhook{Logger: zerolog.Nop()}
	rr := deliver(t, h, []byte("{}"), "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
