package main

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/heri/availabilities/libs/auth"
	"github.com/heri/availabilities/libs/config"
	"github.com/heri/availabilities/libs/db"
	"github.com/heri/availabilities/libs/grpcx"
	"github.com/heri/availabilities/libs/httpx"
	"github.com/heri/availabilities/libs/kafkax"
	otelx "github.com/heri/availabilities/libs/otel"
	"github.com/heri/availabilities/libs/runtime"
	"github.com/heri/availabilities/services/availability-service/internal/availability"
	"github.com/heri/availabilities/services/availability-service/internal/cache"
	"github.com/heri/availabilities/services/availability-service/internal/consumer"
	"github.com/heri/availabilities/services/availability-service/internal/handlers"
	"github.com/heri/availabilities/services/availability-service/internal/inbox"
	"github.com/heri/availabilities/services/availability-service/internal/intervals"
	"github.com/heri/availabilities/services/availability-service/internal/outbox"
	"github.com/heri/availabilities/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := runtime.ShutdownContext(5 * time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns), ApplicationName: service})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	ratePerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var windowCache availability.Cache
	var limiter httpx.Limiter
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer rdb.Close()
		windowCache = cache.NewRedis(rdb)
		limiter = httpx.NewRedisLimiter(rdb, ratePerMinute, time.Minute, "rl:"+service)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(rdb)})
	} else {
		logger.Warn("REDIS_ADDR not set; using in-process cache and rate limiter")
		windowCache = cache.NewMemory()
		limiter = httpx.NewMemoryLimiter(ratePerMinute, time.Minute)
	}

	repo := storage.NewIntervalRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	engine := availability.NewEngine(repo, windowCache, logger)
	intervalService := intervals.NewService(repo, outboxRepo, inbox.NewRepository(), windowCache, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	if strings.TrimSpace(brokers) != "" {
		loc, err := time.LoadLocation(config.String("BOOKING_TIMEZONE", "UTC"))
		if err != nil {
			logger.Error("invalid BOOKING_TIMEZONE", "err", err)
			panic(err)
		}
		bookingHandler := consumer.NewBookingHandler(intervalService, loc, logger,
			config.String("KAFKA_BOOKING_TOPIC", consumer.TopicAppointmentBooked),
			config.String("KAFKA_CANCEL_TOPIC", consumer.TopicAppointmentCancelled),
		)
		eventConsumer := consumer.New(logger, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topics:  bookingHandler.Topics(),
		}, bookingHandler.Handle)
		go eventConsumer.Run(ctx)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; booking events are not consumed")
	}

	jwtSecret := config.String("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set; interval writes will be rejected")
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	handlers.Register(mux,
		handlers.NewAvailabilityHandler(engine, logger),
		handlers.NewIntervalHandler(intervalService, logger),
		auth.RequireRole(jwtSecret, "owner", "admin"),
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRateLimit(limiter, logger, true),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(10*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcx.NewServer(logger)
	grpcServer.SetServing(service, true)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcServer.Serve(ctx, lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	grpcServer.SetServing(service, false)
	shutdownCtx, cancel := runtime.ShutdownContext(10 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
