package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/payment-broker/internal/common"
	"github.com/noah-isme/payment-broker/internal/config"
	"github.com/noah-isme/payment-broker/internal/health"
	"github.com/noah-isme/payment-broker/internal/idempotency"
	"github.com/noah-isme/payment-broker/internal/obs"
	"github.com/noah-isme/payment-broker/internal/payment"
	"github.com/noah-isme/payment-broker/internal/ratelimit"
	"github.com/noah-isme/payment-broker/internal/resilience"
	"github.com/noah-isme/payment-broker/internal/security"
)

type redisChecker struct {
	client *redis.Client
}

func (c redisChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.client.Ping(pingCtx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "broker")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "payment-broker",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	// Redis backs rate limiting, idempotency locks and webhook replay
	// detection. All three fail open, so the broker runs without it.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		if tracingEnabled {
			if err := redisotel.InstrumentTracing(redisClient); err != nil {
				logger.Error().Err(err).Msg("instrument redis tracing")
			}
		}
		if metricsEnabled {
			if err := redisotel.InstrumentMetrics(redisClient); err != nil {
				logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable at startup, continuing without it")
		}
		cancel()
	} else {
		logger.Info().Msg("REDIS_URL not set, rate limiting and replay detection disabled")
	}

	breaker := resilience.NewBreaker(
		envInt("RESILIENCE_CB_MIN_REQUESTS", 10),
		envFloat("RESILIENCE_CB_FAILURE_RATIO", 0.5),
		envDuration("RESILIENCE_CB_OPEN_FOR", 30*time.Second),
	).WithTarget("stripe").WithLogger(logger)

	provider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.UpstreamTimeout)
	svc := &payment.Service{Provider: provider, Breaker: breaker, Logger: logger}
	paymentHandler := &payment.Handler{
		Svc:            svc,
		PublishableKey: cfg.StripePublishableKey,
		Logger:         logger,
	}
	webhookHandler := payment.Webhook{
		Verifier:  payment.StripeVerifier{Secret: cfg.StripeWebhookSecret},
		Replay:    redisClient,
		ReplayTTL: cfg.WebhookReplayTTL,
		Logger:    logger,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS_ENABLE", true),
		EnableHSTS: envBool("SECURE_HSTS_ENABLE", false),
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{}
	if redisClient != nil {
		healthHandler.Checker = redisChecker{client: redisClient}
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Get("/", paymentHandler.Index)
	r.Get("/stripe-key", paymentHandler.StripeKey)

	r.Group(func(pr chi.Router) {
		pr.Use(security.BodyLimit{Max: cfg.MaxRequestBody}.Middleware)
		if redisClient != nil {
			pr.Use(ratelimit.Handler{
				Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:intent"},
				Config: ratelimit.Config{
					Key:    common.ClientIP,
					Window: cfg.RateLimitWindow,
					Max:    cfg.RateLimitMax,
				},
				Logger: logger,
			}.Middleware)
			pr.Use(idempotency.Guard{R: redisClient, TTL: cfg.IdempotencyTTL}.Middleware)
		}
		pr.Post("/create-payment-intent", paymentHandler.CreateIntent)
	})

	r.Group(func(wr chi.Router) {
		wr.Use(security.BodyLimit{Max: cfg.MaxWebhookBody}.Middleware)
		wr.Post("/webhook", webhookHandler.Handle)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
