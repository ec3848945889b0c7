// Package main runs the transit synthesis HTTP service:
// - Daily Sky Cache and User Transit Cache over the configured store
// - Synthesis Façade behind the gin API and the daily sky websocket feed
// - Prometheus metrics on the main router and on metrics_addr
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transit-synth/internal/cache"
	"transit-synth/internal/config"
	"transit-synth/internal/ephemeris"
	"transit-synth/internal/ephemeris/stub"
	"transit-synth/internal/observability"
	"transit-synth/internal/orchestrator"
	"transit-synth/internal/storage"
	chstore "transit-synth/internal/storage/clickhouse"
	"transit-synth/internal/storage/memory"
	"transit-synth/internal/storage/migrations"
	pgstore "transit-synth/internal/storage/postgres"
	sqlitestore "transit-synth/internal/storage/sqlite"
	"transit-synth/internal/synthesis"
	"transit-synth/internal/transport/httpapi"
)

// stores holds the storage implementations.
type stores struct {
	cache storage.CacheStore
	runs  storage.SynthesisRunStore
}

func newLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lshortfile)
}

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("TRANSIT_SYNTH_CONFIG"), "Path to YAML config file")
	useStub := flag.Bool("use-stub", false, "Use the in-process ephemeris stub instead of the HTTP gateway")
	flag.Parse()

	logger := newLogger("[server] ")

	if *useStub {
		os.Setenv("EPHEMERIS_USE_STUB", "true")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	gateway := newGateway(cfg, logger)

	cacheOpts := cache.Options{
		Logger:          newLogger("[cache] "),
		StaleWait:       cfg.Cache.StaleWait,
		UpstreamTimeout: cfg.Cache.UpstreamTimeout,
		UserTransitTTL:  cfg.Cache.UserTransitTTL,
	}
	sky := cache.NewDailySky(st.cache, gateway, cacheOpts)
	transits := cache.NewUserTransits(st.cache, gateway, sky, cacheOpts)

	orch := orchestrator.New(orchestrator.Options{
		Sky:      sky,
		Transits: transits,
		Synthesizer: synthesis.New(synthesis.Options{
			Threshold:    cfg.Synthesis.Threshold,
			MaxSecondary: cfg.Synthesis.MaxSecondary,
			HorizonDays:  cfg.Synthesis.HorizonDays,
		}),
		Runs:   st.runs,
		Logger: newLogger("[synthesis] "),
	})

	server := httpapi.New(httpapi.Options{
		Orchestrator: orch,
		Sky:          sky,
		Transits:     transits,
		Logger:       newLogger("[http] "),
		Debug:        cfg.Debug(),
	})

	warmDailySky(ctx, sky, cfg.Cache.UpstreamTimeout, logger)

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(httpapi.ShutdownTimeout):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	if cfg.MetricsAddr != "" {
		go startMetricsServer(ctx, cfg.MetricsAddr, logger)
	}

	err = server.Run(ctx, cfg.Addr())
	close(done)

	if err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates the cache store for the configured backend and the
// synthesis run store (ClickHouse when configured, in-memory otherwise).
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*stores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	st := &stores{}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.cache = pgstore.NewCacheStore(pool)

	case config.BackendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("sqlite migrations: %w", err)
		}
		st.cache = sqlitestore.NewCacheStore(db)

	default:
		st.cache = memory.NewCacheStore()
	}
	logger.Printf("Cache store: %s", cfg.Storage.Backend)

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		st.runs = chstore.NewSynthesisRunStore(conn)
		logger.Println("Synthesis run log: clickhouse")
	} else {
		st.runs = memory.NewSynthesisRunStore()
	}

	return st, cleanup, nil
}

// newGateway returns the ephemeris gateway.
func newGateway(cfg *config.Config, logger *log.Logger) ephemeris.Gateway {
	if cfg.Ephemeris.UseStub {
		logger.Println("Using in-process ephemeris stub")
		return stub.NewGateway()
	}
	logger.Printf("Ephemeris endpoint: %s", cfg.Ephemeris.Endpoint)
	return ephemeris.NewHTTPClient(cfg.Ephemeris.Endpoint,
		ephemeris.WithTimeout(cfg.Ephemeris.Timeout),
		ephemeris.WithMaxRetries(cfg.Ephemeris.MaxRetries),
		ephemeris.WithRetryDelay(cfg.Ephemeris.RetryDelay),
	)
}

// warmDailySky fills the Daily Sky Cache before serving. Failure is not fatal;
// requests degrade until the gateway recovers.
func warmDailySky(ctx context.Context, sky *cache.DailySky, timeout time.Duration, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := sky.Get(ctx)
	if err != nil {
		logger.Printf("Daily sky warmup failed: %v", err)
		return
	}
	logger.Printf("Daily sky ready (computed %s, expires %s)",
		res.ComputedAt.Format(time.RFC3339), res.ExpiresAt.Format(time.RFC3339))
}

// startMetricsServer serves /metrics on a separate listener until ctx is done.
func startMetricsServer(ctx context.Context, addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("Starting metrics server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("Metrics server error: %v", err)
	}
}
