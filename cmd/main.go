package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"mcpizza/internal/cache"
	"mcpizza/internal/config"
	"mcpizza/internal/database"
	"mcpizza/internal/dominos"
	"mcpizza/internal/logger"
	"mcpizza/internal/mcp"
	"mcpizza/internal/messaging"
	"mcpizza/internal/services/notification"
	"mcpizza/internal/services/order"
	"mcpizza/internal/transport/httpapi"
	"mcpizza/internal/transport/lambda"
	"mcpizza/internal/transport/stdio"
)

const (
	version = "1.0.0"

	sessionMaxAge      = 24 * time.Hour
	sessionPrunePeriod = time.Hour
)

func main() {
	var (
		mode       = flag.String("mode", "stdio", "Run mode (stdio, http, lambda, event-listener)")
		configFile = flag.String("config", "config.yaml", "Path to the configuration file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides MCPIZZA_HTTP_ADDR)")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count for event-listener mode")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.HTTPAddr = *addr
	}

	log, closeLog, err := newLogger(*mode, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	requestID := logger.GenerateRequestID()
	log.Info("service_started", fmt.Sprintf("Starting mcpizza in %s mode", *mode), requestID, map[string]interface{}{
		"mode":           *mode,
		"real_api":       cfg.Pizza.RealAPI,
		"fallback_mock":  cfg.Pizza.FallbackMock,
		"session_store":  cfg.Server.SessionStore,
		"extended_tools": cfg.Server.ExtendedTools,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "stdio", "http", "lambda":
		err = runServer(ctx, *mode, cfg, log)
	case "event-listener":
		err = runEventListener(ctx, cfg, log, *prefetch)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	if err != nil {
		log.Error("service_failed", "mcpizza stopped with an error", requestID, err, map[string]interface{}{
			"mode": *mode,
		})
		os.Exit(1)
	}
	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// newLogger writes to stderr in stdio mode so stdout carries only protocol
// messages. MCPIZZA_LOG_FILE receives a copy of every record.
func newLogger(mode string, cfg *config.Config) (*logger.Logger, func(), error) {
	var out io.Writer = os.Stdout
	if mode == "stdio" {
		out = os.Stderr
	}

	closeFn := func() {}
	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(out, f)
		closeFn = func() { f.Close() }
	}

	log := logger.New("mcpizza",
		logger.WithWriter(out),
		logger.WithLevel(logger.ParseLevel(cfg.Server.LogLevel)),
	)
	return log, closeFn, nil
}

// runServer wires the order service and serves it on the chosen transport.
func runServer(ctx context.Context, mode string, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		client, err := cache.Connect(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
		closers = append(closers, func() { client.Close() })
		log.Info("redis_connected", "Connected to Redis", requestID, map[string]interface{}{
			"addr": cfg.RedisAddr(),
		})
	}

	sessions, err := newSessionStore(ctx, cfg, log, redisClient, &closers)
	if err != nil {
		return err
	}

	var events order.EventPublisher
	if cfg.RabbitMQEnabled() {
		conn, err := messaging.New(cfg.RabbitMQURL(), log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		publisher := messaging.NewPublisher(conn, log)
		closers = append(closers, func() { publisher.Close() })
		events = publisher
		log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)
	}

	var api order.PizzaAPI
	if cfg.Pizza.RealAPI {
		var opts []dominos.Option
		if redisClient != nil {
			opts = append(opts, dominos.WithMenuCache(cache.NewMenuCache(redisClient, cfg.Pizza.MenuCacheTTL)))
		}
		api = dominos.NewClient(cfg.Pizza.APIBaseURL, cfg.Pizza.Timeout(), cfg.Pizza.RetryAttempts, log, opts...)
	}

	service := order.NewService(cfg.Pizza, api, events, log)
	router := mcp.NewRouter(service, mcp.Options{
		Version:       version,
		ExtendedTools: cfg.Server.ExtendedTools,
	}, log)
	server := mcp.NewServer(router, sessions, log)

	switch mode {
	case "stdio":
		return stdio.New(server, log).Serve(ctx, os.Stdin, os.Stdout)
	case "lambda":
		lambda.NewHandler(server, log).Start()
		return nil
	default:
		return serveHTTP(ctx, cfg.Server.HTTPAddr, httpapi.NewHandler(server, log), log)
	}
}

// newSessionStore picks the backend named by MCPIZZA_SESSION_STORE.
func newSessionStore(ctx context.Context, cfg *config.Config, log *logger.Logger, redisClient *redis.Client, closers *[]func()) (order.SessionStore, error) {
	requestID := logger.GenerateRequestID()

	switch cfg.Server.SessionStore {
	case "", "memory":
		return order.NewMemoryStore(), nil

	case "postgres":
		db, err := database.New(ctx, cfg.DatabaseURL(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		*closers = append(*closers, db.Close)
		log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

		if err := db.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		store := database.NewSessionStore(db)
		go pruneSessions(ctx, store, log)
		return store, nil

	case "redis":
		if redisClient == nil {
			return nil, errors.New("session store redis requires MCPIZZA_REDIS_HOST")
		}
		return cache.NewSessionStore(redisClient, cache.DefaultSessionTTL), nil

	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Server.SessionStore)
	}
}

// pruneSessions deletes Postgres sessions untouched for sessionMaxAge.
func pruneSessions(ctx context.Context, store *database.SessionStore, log *logger.Logger) {
	ticker := time.NewTicker(sessionPrunePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteStale(ctx, sessionMaxAge)
			if err != nil {
				log.Error("session_prune_failed", "Failed to delete stale sessions", "", err, nil)
				continue
			}
			if deleted > 0 {
				log.Info("sessions_pruned", "Deleted stale sessions", "", map[string]interface{}{
					"deleted": deleted,
				})
			}
		}
	}
}

func serveHTTP(ctx context.Context, addr string, handler *httpapi.Handler, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("MCP HTTP server listening on %s", addr), requestID, map[string]interface{}{
			"addr": addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// runEventListener prints order events published by running servers.
func runEventListener(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	if !cfg.RabbitMQEnabled() {
		return errors.New("event-listener mode requires MCPIZZA_RABBITMQ_HOST")
	}

	conn, err := messaging.New(cfg.RabbitMQURL(), log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.EventsQueue, "mcpizza-event-listener", prefetch)
	return notification.NewSubscriber(consumer, log, os.Stdout).Start(ctx)
}
