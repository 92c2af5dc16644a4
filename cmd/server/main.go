package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/youwow/affiliate/config"
	appmodel "github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/ratelimit"
	apprepository "github.com/youwow/affiliate/internal/app/repository"
	appserver "github.com/youwow/affiliate/internal/app/server"
	"github.com/youwow/affiliate/internal/app/service"
	"github.com/youwow/affiliate/internal/http/attribution"
	"github.com/youwow/affiliate/internal/http/handler"
	"github.com/youwow/affiliate/internal/http/middleware"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"github.com/youwow/affiliate/internal/infra/logger"
	infraNATS "github.com/youwow/affiliate/internal/infra/nats"
	infraPostgres "github.com/youwow/affiliate/internal/infra/postgres"
	infraPrometheus "github.com/youwow/affiliate/internal/infra/prometheus"
	infraRedis "github.com/youwow/affiliate/internal/infra/redis"
	"github.com/youwow/affiliate/internal/payment"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     "youwow-affiliate",
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("rate_limit_store", cfg.RateLimit.Store),
		zap.String("click_dispatcher", cfg.Clicks.Dispatcher),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.Partner{},
		&appmodel.ClickEvent{},
		&appmodel.ConversionEvent{},
		&appmodel.Payout{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	healthChecks := map[string]handler.HealthCheck{
		"postgres": pool.Ping,
	}

	// Rate-limit state: process-local unless a shared store is configured.
	var limitStore ratelimit.Store
	switch cfg.RateLimit.Store {
	case "redis":
		redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully")

		limitStore = ratelimit.NewRedisStore(redisClient, "")
		healthChecks["redis"] = redisPing(redisClient)
	default:
		memStore := ratelimit.NewMemoryStore(
			ratelimit.WithSweepInterval(cfg.RateLimit.SweepInterval),
			ratelimit.WithLogger(log),
		)
		memStore.Start()
		defer memStore.Stop()
		limitStore = memStore
	}
	limiter := ratelimit.New(limitStore)

	partnerRepo := apprepository.NewPartnerRepository(gormDB)
	clickRepo := apprepository.NewClickEventRepository(gormDB)
	conversionRepo := apprepository.NewConversionRepository(gormDB)
	payoutRepo := apprepository.NewPayoutRepository(gormDB)
	reportRepo := apprepository.NewReportRepository(pool)

	known := service.NewKnownPartners(10000, 0.001)
	n, err := known.Load(ctx, partnerRepo)
	if err != nil {
		log.Fatal("Failed to load partner ids", zap.Error(err))
	}
	log.Info("Known-partner filter loaded", zap.Int("partners", n))
	known.Start(partnerRepo, cfg.Attribution.PartnerRefresh, log)
	defer known.Stop()

	clickRecorder := service.NewClickRecorder(partnerRepo, clickRepo, service.WithLogger(log))
	conversionRecorder := service.NewConversionRecorder(partnerRepo, clickRepo, conversionRepo, service.WithLogger(log))
	partnerService := service.NewPartnerService(partnerRepo, reportRepo, known)
	payoutService := service.NewPayoutService(partnerRepo, payoutRepo, service.WithLogger(log))

	var dispatcher service.ClickDispatcher
	switch cfg.Clicks.Dispatcher {
	case "nats":
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		log.Info("Connected to NATS successfully")

		consumer := service.NewClickConsumer(js, log, clickRecorder)
		if err := consumer.Start(); err != nil {
			log.Fatal("Failed to start click consumer", zap.Error(err))
		}
		defer consumer.Stop()
		dispatcher = service.NewClickPublisher(js)
	default:
		queue := service.NewLocalClickQueue(clickRecorder, log, cfg.Clicks.Workers, cfg.Clicks.QueueSize)
		queue.Start()
		defer queue.Stop()
		dispatcher = queue
	}

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	cookieOpts := []attribution.CookieOption{attribution.WithSecure(cfg.App.IsProduction())}
	if cfg.Attribution.CookieSecret != "" {
		cookieOpts = append(cookieOpts, attribution.WithSigner(httpUtil.NewTokenSigner([]byte(cfg.Attribution.CookieSecret))))
	} else {
		log.Warn("Attribution cookie secret not set; cookies are unsigned")
	}

	if cfg.Admin.Token == "" || cfg.Admin.Password == "" {
		log.Warn("Admin credentials not configured; admin API will reject every request")
	}

	server := appserver.New(appserver.Dependencies{
		Logger:  log,
		Limiter: limiter,
		AdminAuthRate: middleware.RateLimitConfig{
			Key:        "admin-auth",
			Limit:      cfg.RateLimit.AdminAuth.Limit,
			Window:     cfg.RateLimit.AdminAuth.Window,
			FailClosed: true,
		},
		APIRate: middleware.RateLimitConfig{
			Key:    "api",
			Limit:  cfg.RateLimit.API.Limit,
			Window: cfg.RateLimit.API.Window,
		},
		AdminGuard:    middleware.NewAdminGuard(cfg.Admin.Token, log),
		AdminPassword: cfg.Admin.Password,
		Attribution:   attribution.NewCookieStore(cookieOpts...),
		KnownPartners: known,
		Dispatcher:    dispatcher,
		Clicks:        clickRecorder,
		Conversions:   conversionRecorder,
		Partners:      partnerService,
		Payouts:       payoutService,
		Gateway:       payment.NewCallbackTokenGateway(cfg.Payment.WebhookToken),
		HealthChecks:  healthChecks,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := server.Listen(addr); err != nil {
			log.Error("Fiber server exited", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down HTTP server", zap.Error(err))
	}
}

func redisPing(client *redis.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
