package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/mspbill/pkg/api"
	"github.com/platinummonkey/mspbill/pkg/billing"
	"github.com/platinummonkey/mspbill/pkg/config"
	"github.com/platinummonkey/mspbill/pkg/email"
	"github.com/platinummonkey/mspbill/pkg/invoices"
	"github.com/platinummonkey/mspbill/pkg/jobs"
	"github.com/platinummonkey/mspbill/pkg/middleware"
	"github.com/platinummonkey/mspbill/pkg/observability"
	"github.com/platinummonkey/mspbill/pkg/pdf"
	"github.com/platinummonkey/mspbill/pkg/storage/postgres"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "Run database migrations and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	if err := run(cfg, logger, *migrateOnly); err != nil {
		logger.WithError(err).Error("server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger, migrateOnly bool) error {
	ctx := context.Background()

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	conns, err := postgres.NewConnectionManager(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db := conns.Primary()

	if err := billing.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if migrateOnly {
		logger.Info("migrations complete")
		return conns.Close()
	}

	var redisClient *redis.Client
	if cfg.Storage.CacheEnabled {
		redisClient, err = postgres.NewRedisClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	var store pdf.ObjectStore
	if cfg.Storage.S3Endpoint != "" || cfg.Storage.S3AccessKey != "" {
		s3Client, err := postgres.NewS3Client(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to set up object storage: %w", err)
		}
		store = s3Client
	} else {
		// PDFs evaporate on restart without object storage.
		logger.Warn("no S3 endpoint configured, keeping rendered PDFs in memory")
		store = pdf.NewInMemoryStore()
	}

	repo := billing.NewPostgresRepository(db)
	var invoiceService invoices.Service = invoices.NewPostgresService(db, repo, billing.TaxCalculator{}, logger)
	if redisClient != nil {
		invoiceService = invoices.NewRedisCacheWithClient(invoiceService, redisClient).
			WithTTLs(cfg.Storage.CacheTTL)
	}

	pdfService := pdf.NewStorageService(invoiceService, &pdf.BasicRenderer{}, store, logger)
	var sender email.Sender = email.NewSMTPSender(cfg.SMTP)
	if cfg.SMTP.Disabled {
		logger.Warn("SMTP disabled, invoice emails will be dropped")
		sender = email.NoopSender{}
	}
	jobService := jobs.NewPostgresService(db)
	orchestrator := jobs.NewOrchestrator(jobService, invoiceService, pdfService, sender, logger)

	health := observability.NewHealthChecker(db, redisClient)
	server := api.NewServer(invoiceService, jobService, orchestrator, health, logger)

	var handler http.Handler = server
	if redisClient != nil && cfg.Server.RateLimitPerMinute > 0 {
		limiter := middleware.NewTenantRateLimiter(redisClient, &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Server.RateLimitPerMinute,
			WindowDuration:    time.Minute,
		}, logger)
		handler = limiter.Handler(server)
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("postgres", func(context.Context) error {
		return conns.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	if tp != nil {
		shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tp, logger)
		})
	}

	go func() {
		logger.Infof("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}
