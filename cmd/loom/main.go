// Package main is the entry point for the loom server. It wires all
// dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pitabwire/loom/internal/config"
	"github.com/pitabwire/loom/internal/engine"
	"github.com/pitabwire/loom/internal/feature"
	"github.com/pitabwire/loom/internal/observability"
	"github.com/pitabwire/loom/internal/provider"
	"github.com/pitabwire/loom/internal/store"
	"github.com/pitabwire/loom/internal/tool"
	"github.com/pitabwire/loom/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "loom", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	var metrics *observability.Metrics
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.InitMetrics(prometheus.DefaultRegisterer)
	}

	// Persistence.
	db, dbCloser, err := buildStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("store initialization failed", zap.Error(err))
		return 1
	}

	// Model gateway and tools.
	gateway := provider.NewGateway(cfg.Provider, logger, metrics)

	registry := tool.NewRegistry()
	registry.Register(tool.NewChatTool(gateway))
	registry.Register(tool.NewImageTool(gateway))
	registry.Register(tool.NewSpeechTool(gateway))
	registry.Register(tool.NewVideoTool(gateway))
	registry.Register(tool.NewResearchTool(gateway))
	registry.Register(tool.NewCodeTool(gateway))

	// Workflow engine.
	eng := engine.New(registry, db, logger, engine.Options{
		StepTimeout: cfg.Workflow.StepTimeout,
		MaxSteps:    cfg.Workflow.MaxSteps,
		Metrics:     metrics,
	})

	// Application services.
	defaultModel := cfg.Provider.DefaultModel
	workflows := feature.NewWorkflowService(db, eng, cfg.Workflow.MaxSteps)
	chat := feature.NewChatService(db, gateway, logger, metrics, defaultModel)
	images := feature.NewImageService(db, gateway, logger, metrics)
	arena := feature.NewArenaService(db, gateway, logger, metrics)
	speech := feature.NewSpeechService(db, gateway, logger, metrics)
	video := feature.NewVideoService(db, gateway, logger, metrics)
	research := feature.NewResearchService(db, gateway, logger, metrics, defaultModel)
	code := feature.NewCodeService(db, gateway, logger, metrics, defaultModel)

	// HTTP router.
	jwks := transport.NewJWKSClient(cfg.Identity)

	readiness := observability.ReadinessChecks{Provider: gateway}
	if hc, ok := db.(observability.HealthChecker); ok {
		readiness.Store = hc
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Authenticate: transport.JWTAuthenticator(cfg.Identity, jwks),
		Metrics:      metrics,
		Readiness:    readiness,
		Registry:     registry,
		Workflows:    workflows,
		Chat:         chat,
		Images:       images,
		Arena:        arena,
		Speech:       speech,
		Video:        video,
		Research:     research,
		Code:         code,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Strings("tools", registry.Names()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if dbCloser != nil {
		dbCloser()
	}

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildStore creates the persistence layer based on config.
func buildStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("using in-memory store")
		return store.NewMemoryStore(), nil, nil
	case "postgres", "":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("store: %s environment variable not set", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("store: ping: %w", err)
		}

		return store.NewPgStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}
