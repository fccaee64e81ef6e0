/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the room concierge server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load .env and YAML config
  2. Configure zerolog
  3. Initialize SQLite store (and Redis when locking.backend is redis)
  4. Build the concierge with its locker and Prometheus metrics
  5. Configure HTTP router, start the audit scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (default: configs/config.yaml, optional)
  -env     dotenv file loaded before the config (default: .env, optional)
  -port    Overrides server.port
  -db      Overrides database.path (":memory:" for in-memory)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the audit scheduler
  2. Stop accepting new connections
  3. Wait for active requests (server.shutdown_seconds)
  4. Close Redis and database connections

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - concierge/concierge.go: The engine
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/warp/room-concierge/api"
	"github.com/warp/room-concierge/concierge"
	"github.com/warp/room-concierge/config"
	"github.com/warp/room-concierge/store/redis"
	"github.com/warp/room-concierge/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML config path")
	envFile := flag.String("env", ".env", "dotenv file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := newLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.Logging.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "room-concierge").Logger()
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []concierge.Option{
		concierge.WithLogger(logger),
		concierge.WithLockTimeout(cfg.LockTimeout()),
		concierge.WithMetrics(concierge.NewMetrics(reg)),
	}

	var readyChecks []func(context.Context) error
	if cfg.Locking.Backend == "redis" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Address, err)
		}

		lockOpts := []redis.Option{redis.WithTTL(cfg.LockTTL()), redis.WithRetryEvery(cfg.LockRetry())}
		if cfg.Locking.RedisKeyPrefix != "" {
			lockOpts = append(lockOpts, redis.WithPrefix(cfg.Locking.RedisKeyPrefix))
		}
		opts = append(opts, concierge.WithLocker(redis.NewLocker(client, lockOpts...)))
		readyChecks = append(readyChecks, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info().Str("addr", cfg.Redis.Address).Msg("using redis room locks")
	}

	c := concierge.New(store, store, store, opts...)

	handler := api.NewHandler(store, c, logger)
	handler.ReadyChecks = readyChecks

	routerOpts := api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins}
	if cfg.Monitoring.PrometheusEnabled {
		routerOpts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, routerOpts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	scheduler := api.NewAuditScheduler(store, c, logger)
	scheduler.CheckInterval = cfg.AuditInterval()
	scheduler.Enabled = cfg.Audit.Enabled
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Str("db", cfg.Database.Path).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		scheduler.Stop()
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
