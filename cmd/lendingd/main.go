package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/internal/infrastructure/adapter"
	"github.com/jecoplus/lending/internal/infrastructure/config"
	"github.com/jecoplus/lending/internal/infrastructure/datasource"
	"github.com/jecoplus/lending/internal/infrastructure/kafka"
	"github.com/jecoplus/lending/internal/infrastructure/postgres"
	"github.com/jecoplus/lending/internal/infrastructure/redis"
	grpcPresentation "github.com/jecoplus/lending/internal/presentation/grpc"
	"github.com/jecoplus/lending/internal/presentation/rest"
	"github.com/jecoplus/lending/pkg/auth"
	pkgkafka "github.com/jecoplus/lending/pkg/kafka"
	"github.com/jecoplus/lending/pkg/observability"
	pkgpostgres "github.com/jecoplus/lending/pkg/postgres"
	"github.com/jecoplus/lending/pkg/tlsutil"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.ServiceName,
	})

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("lending-service failed", "error", err)
		os.Exit(1)
	}
	logger.Info("lending-service stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting lending-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"data_source", cfg.DataSource,
	)

	// Tracing.
	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Metrics.
	metrics, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = metrics.Provider.Shutdown(context.Background()) }()
	instruments, err := usecase.NewInstruments(metrics.Meter(observability.MetricsConfig{ServiceName: cfg.ServiceName}))
	if err != nil {
		return fmt.Errorf("init instruments: %w", err)
	}

	// Data source, selected once.
	ds, closeDS, err := openDataSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDS()

	// Use cases.
	deps := ds.Dependencies()
	deps.Parser = adapter.NewPDFDocumentParser(logger)
	if cfg.OCR.URL != "" {
		deps.IdentityReader = adapter.NewOCRIdentityReader(adapter.OCRConfig{
			URL:        cfg.OCR.URL,
			Timeout:    cfg.OCR.Timeout,
			MaxRetries: 2,
		}, nil, logger)
	} else {
		logger.Warn("OCR provider not configured, identity scans will use the fallback document")
	}
	deps.ScanTTL = cfg.OCR.ScanTTL
	deps.Instruments = instruments
	deps.Logger = logger
	useCases := usecase.NewSet(deps)

	// Authentication.
	var jwtSvc *auth.JWTService
	if cfg.Auth.Enabled {
		jwtSvc, err = auth.NewJWTService(auth.JWTConfig{
			Secret:       cfg.Auth.JWTSecret,
			PublicKeyPEM: cfg.Auth.PublicKeyPEM,
			Issuer:       cfg.Auth.Issuer,
		})
		if err != nil {
			return fmt.Errorf("init JWT service: %w", err)
		}
	}

	// Servers.
	grpcCfg := grpcPresentation.ServerConfig{JWT: jwtSvc, Reflection: cfg.GRPCReflection}
	if cfg.GRPCTLS.Enabled() {
		creds, err := tlsutil.ServerCredentials(cfg.GRPCTLS.CertFile, cfg.GRPCTLS.KeyFile)
		if err != nil {
			return err
		}
		grpcCfg.Creds = creds
	} else {
		logger.Warn("gRPC TLS disabled, serving plaintext")
	}
	grpcServer := grpcPresentation.NewServer(grpcPresentation.NewLendingHandler(useCases), grpcCfg, logger)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: rest.NewRouter(rest.RouterConfig{
			Service:          cfg.ServiceName,
			Ready:            ds.Ping,
			Metrics:          metrics.Handler,
			JWT:              jwtSvc,
			ExtractStatement: useCases.ExtractStatement,
			Logger:           logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Background workers.
	publisher, closePublisher := eventPublisher(cfg, logger)
	defer closePublisher()
	relay := kafka.NewOutboxRelay(ds.Outbox, publisher, kafka.RelayConfig{
		Topic:     cfg.Kafka.Topic,
		BatchSize: cfg.Kafka.RelayBatchSize,
		Interval:  cfg.Kafka.RelayInterval,
	}, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workersDone := make(chan struct{}, 2)
	go func() {
		relay.Run(workerCtx)
		workersDone <- struct{}{}
	}()
	go func() {
		runSweeper(workerCtx, useCases.SweepPortfolio, cfg.SweepInterval, logger)
		workersDone <- struct{}{}
	}()

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	// Graceful shutdown: stop intake, then workers, then flush the outbox once.
	grpcServer.SetServing(false)
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	stopWorkers()
	<-workersDone
	<-workersDone
	if n, err := relay.RelayOnce(shutdownCtx); err != nil {
		logger.Warn("final outbox flush failed", "error", err)
	} else if n > 0 {
		logger.Info("outbox flushed", "count", n)
	}

	return runErr
}

// openDataSource builds the configured data source and returns its cleanup.
func openDataSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (*datasource.DataSource, func(), error) {
	if cfg.DataSource == config.DataSourceMock {
		ds, err := datasource.NewMock(ctx, datasource.MockOptions{SeedPersonas: cfg.MockSeed}, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("using in-memory mock data source; state is lost on restart")
		return ds, func() {}, nil
	}

	pgCfg := pkgpostgres.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
		MaxConns: cfg.DB.MaxConns,
	}
	if err := pkgpostgres.RunMigrations(pgCfg.DSN(), postgres.Migrations, postgres.MigrationsDir); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()
	pool, err := pkgpostgres.NewPool(dbCtx, pgCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(dbCtx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	} else {
		logger.Warn("REDIS_ADDR not set, KYC sessions are kept in process memory")
	}

	// A nil *goredis.Client must not become a non-nil UniversalClient.
	var ds *datasource.DataSource
	if redisClient != nil {
		ds = datasource.NewPostgres(pool, redisClient)
	} else {
		ds = datasource.NewPostgres(pool, nil)
	}
	return ds, func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		pool.Close()
	}, nil
}

func eventPublisher(cfg config.Config, logger *slog.Logger) (kafka.MessagePublisher, func()) {
	if !cfg.Kafka.Enabled {
		logger.Warn("Kafka disabled, domain events are drained to the log")
		return kafka.NewLogPublisher(logger), func() {}
	}
	producer := pkgkafka.NewProducer(pkgkafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.ServiceName,
	})
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close", "error", err)
		}
	}
}
