// Package idempotency guards write endpoints against duplicate submissions.
//
// The middleware locks each Idempotency-Key in Redis so a concurrent retry is
// rejected, and exposes the key on the request context so downstream calls to
// the payment processor can pass derived idempotency keys of their own.
package idempotency

import (
	"context"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/payment-broker/internal/common"
)

type ctxKey struct{}

// FromContext returns the Idempotency-Key supplied with the current request.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// WithKey attaches an idempotency key to the context. Exported for tests.
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// Guard provides an Idempotency-Key middleware backed by Redis.
type Guard struct {
	R   *redis.Client
	TTL time.Duration
}

// Middleware enforces idempotency semantics for write endpoints. Requests
// without a key pass through untouched, preserving the processor-side
// duplicate-record behavior the caller opted into.
func (g Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		r = r.WithContext(WithKey(r.Context(), key))
		if g.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		lock := "idem:" + common.Sha256Hex(key)
		ok, err := g.R.SetNX(r.Context(), lock, "locked", g.TTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !ok {
			common.JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// ensure the key expires even if the handler panics
			_ = g.R.Expire(context.Background(), lock, g.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
