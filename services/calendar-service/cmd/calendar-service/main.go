package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/dayplanner/libs/config"
	"github.com/md-rashed-zaman/dayplanner/libs/grpcx"
	"github.com/md-rashed-zaman/dayplanner/libs/httpx"
	"github.com/md-rashed-zaman/dayplanner/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dayplanner/libs/otel"
	"github.com/md-rashed-zaman/dayplanner/libs/runtime"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/events"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/handlers"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/outbox"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		runtime.NewLogger("calendar-service", "error").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close failed", "err", err)
		}
	}()

	policy, _ := cfg.policy()
	svc := events.NewService(store, logger, events.WithPolicy(policy))
	readyChecks := []runtime.ReadyCheck{{Name: "store", Check: store.Ping}}

	var limiter httpx.Limiter = httpx.NewMemoryRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.ServiceName+":rl")
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	var publisherDone <-chan struct{}
	brokers := config.List(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		logger.Warn("outbox publisher disabled (no kafka brokers configured)")
	} else {
		writer := kafkax.NewWriter(brokers)
		defer func() { _ = writer.Close() }()
		publisher := outbox.NewPublisher(store, writer, logger, outbox.PublisherConfig{
			PollEvery: cfg.OutboxPollEvery,
			BatchSize: cfg.OutboxBatchSize,
		})
		publisherDone = publisher.Start(ctx)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			logger.Error("grpc listen failed", "err", err)
			os.Exit(1)
		}
		health := grpcx.NewHealthServer(logger)
		go health.Watch(ctx, 10*time.Second, func(ctx context.Context) bool {
			return runtime.RunReadyChecks(ctx, 2*time.Second, readyChecks...).Status == "ok"
		})
		go func() {
			logger.Info("grpc server starting", "addr", lis.Addr().String())
			if err := health.Serve(lis); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
		defer health.Stop()
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	handlers.NewEventHandler(svc, logger).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List(cfg.CORSAllowedOrigins))),
		httpx.RateLimit(limiter, logger, true),
		httpx.WithBodyLimit(int64(cfg.BodyLimitBytes)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "calendar")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")

	// The store and the kafka writer close in deferred calls; let the last
	// outbox batch finish first.
	if publisherDone != nil {
		<-publisherDone
	}
}
