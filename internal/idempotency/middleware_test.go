package idempotency

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestGuardPassesThroughWithoutKey(t *testing.T) {
	guard := Guard{}
	called := 0
	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		require.Empty(t, FromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/create-payment-intent", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, called)
}

func TestGuardExposesKeyOnContext(t *testing.T) {
	guard := Guard{}
	var seen string
	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/create-payment-intent", nil)
	req.Header.Set("Idempotency-Key", "order-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "order-42", seen)
}

func TestGuardRejectsDuplicate(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	guard := Guard{R: client, TTL: time.Minute}
	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/create-payment-intent", nil)
	req.Header.Set("Idempotency-Key", "order-42")

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusConflict, rr2.Code)
	require.Contains(t, rr2.Body.String(), "IDEMPOTENT_REPLAY")
}
