package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payment-broker/internal/resilience"
)

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx), "breaker should close after successful probe")
}

func TestBreakerRecoversAfterFailedProbe(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, 30*time.Millisecond)
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.False(t, breaker.Allow(ctx))

	time.Sleep(40 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "half-open probe allowed")
	breaker.Report(ctx, false)
	require.False(t, breaker.Allow(ctx), "failed probe reopens the breaker")
}
