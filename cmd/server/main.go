package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/toonvote/toonvote/internal/broadcast"
	"github.com/toonvote/toonvote/internal/config"
	"github.com/toonvote/toonvote/internal/database"
	"github.com/toonvote/toonvote/internal/logging"
	"github.com/toonvote/toonvote/internal/redis"
	"github.com/toonvote/toonvote/internal/server"
	"github.com/toonvote/toonvote/internal/voting"
	"github.com/toonvote/toonvote/internal/websocket"
)

// redisPinger adapts the go-redis client to the health-check surface.
type redisPinger struct {
	rdb *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(
	srv *server.Server,
	coalescer *broadcast.Coalescer,
	dispatcher *voting.Dispatcher,
	subscriber *websocket.Subscriber,
	subscription *redis.Subscription,
	hub *websocket.Hub,
) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		coalescer.Stop()
		dispatcher.Stop()
		subscription.Close()
		subscriber.Stop()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	cache := redis.NewVoteCache(redisClient)
	pubsub := redis.NewPubSub(redisClient)

	proposals := database.NewProposalRepo(pool)
	ledger := database.NewVoteLedger(pool)

	registry := voting.NewRegistry(proposals, cache)
	coalescer := broadcast.New(registry, pubsub, clock, cfg.SnapshotPageSize, cfg.CoalesceMinInterval)
	dispatcher := voting.NewDispatcher(cache, coalescer)
	coordinator := voting.NewCoordinator(proposals, ledger, cache, dispatcher)

	// Rebuild derived cache state before serving traffic. A cold cache
	// would report zero counts and let the vote fast path misfire.
	warmupCtx, cancelWarmup := context.WithTimeout(context.Background(), 2*time.Minute)
	warmup := voting.NewWarmup(ledger, cache, registry, clock)
	if err := warmup.Run(warmupCtx); err != nil {
		cancelWarmup()
		slog.Error("Cache warmup failed", "error", err)
		os.Exit(1)
	}
	cancelWarmup()

	hub := websocket.NewHub(clock, cfg.MaxClients)
	subscription := pubsub.Subscribe(context.Background())
	subscriber := websocket.NewSubscriber(subscription.Ch, hub)

	srv := server.NewServer(cfg, registry, coordinator, hub, pool, redisPinger{rdb: redisClient})

	done := runGracefulShutdown(srv, coalescer, dispatcher, subscriber, subscription, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
