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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/locolive/chat-engine/internal/api"
	"github.com/locolive/chat-engine/internal/auth"
	"github.com/locolive/chat-engine/internal/cache"
	"github.com/locolive/chat-engine/internal/config"
	"github.com/locolive/chat-engine/internal/domain"
	"github.com/locolive/chat-engine/internal/pubsub"
	"github.com/locolive/chat-engine/internal/repository"
)

// store is what the process needs from a repository backend
type store interface {
	domain.ChatStore
	domain.UserDirectory
	domain.ProfileWriter
	Ping(ctx context.Context) error
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting chat engine",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	repo, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	checks := map[string]api.Pinger{"store": repo}

	// Optional Redis: profile cache and cross-instance relay
	var (
		directory    domain.UserDirectory = repo
		profileCache domain.ProfileCache
		relay        *pubsub.RedisRelay
		broadcast    domain.Broadcaster
	)
	if cfg.Redis.URL != "" {
		client, err := initRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()

		cached := cache.NewRedisDirectory(client, repo, "chat", cfg.Redis.CacheTTL, logger)
		directory = cached
		profileCache = cached
		relay = pubsub.NewRedisRelay(client, cfg.Redis.Channel, logger)
		broadcast = relay
		checks["redis"] = api.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("Connected to redis", zap.String("channel", cfg.Redis.Channel))
	} else {
		logger.Warn("REDIS_URL not set - notifications reach this instance's sessions only")
	}

	// Initialize services
	wsManager := api.NewWebSocketManager(logger)
	notifications := domain.NewNotificationService(wsManager, broadcast, cfg.Engine.NotifySendTimeout, logger)
	chatService := domain.NewChatService(repo, directory, notifications, domain.RandomSelector{}, cfg.Engine.MaxAttempts, logger)
	profileService := domain.NewProfileService(repo, directory, profileCache, logger)

	// Initialize handlers
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry)
	chatHandler := api.NewChatHandler(chatService, wsManager, logger)
	profileHandler := api.NewProfileHandler(profileService, logger)
	healthHandler := api.NewHealthHandler(checks, logger)

	router := api.NewRouter(chatHandler, profileHandler, healthHandler, jwtManager, cfg.Server.CORSOrigins, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsManager.Run(gctx)
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx, func(d domain.Delivery) {
				notifications.Deliver(d)
			})
		})
	}

	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverBadger:
		db, err := repository.OpenBadger(cfg.Store.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Opened badger store", zap.String("path", cfg.Store.BadgerPath))
		return repository.NewBadgerRepository(db), func() { db.Close() }, nil

	default:
		pool, err := initDatabase(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := repository.NewPostgresRepository(pool, cfg.Store.Timeout)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Connected to database")
		return repo, pool.Close, nil
	}
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func initRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
