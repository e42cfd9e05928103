// Command tk-server starts the TaskKeeper HTTP API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/and161185/taskkeeper/internal/cache"
	"github.com/and161185/taskkeeper/internal/config"
	pkgcrypto "github.com/and161185/taskkeeper/internal/crypto"
	"github.com/and161185/taskkeeper/internal/limiter"
	"github.com/and161185/taskkeeper/internal/migrate"
	"github.com/and161185/taskkeeper/internal/repository"
	"github.com/and161185/taskkeeper/internal/repository/memory"
	"github.com/and161185/taskkeeper/internal/repository/postgres"
	httpserver "github.com/and161185/taskkeeper/internal/server/http"
	"github.com/and161185/taskkeeper/internal/service"
	"github.com/and161185/taskkeeper/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

// main loads configuration, prepares storage and serves the API until SIGINT/SIGTERM.
func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var (
		users repository.UserRepository
		tasks repository.TaskRepository
		lim   limiter.Limiter = limiter.Noop{}
	)

	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		store := memory.New()
		users, tasks = store.Users(), store.Tasks()
	default:
		if err := migrate.Up(ctx, cfg.DatabaseURL, logger); err != nil {
			return err
		}
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(ctx); err != nil {
			return err
		}
		users, tasks = postgres.NewUserRepo(db), postgres.NewTaskRepo(db)
		lim = limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)
	}

	var stats cache.StatsCache = cache.Nop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		rc := cache.NewRedis(client, "taskkeeper:stats:", cfg.StatsCacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable; stats cache degraded until it recovers", zap.Error(err))
		}
		cancel()
		stats = rc
	}

	hasher, err := pkgcrypto.NewHasher(cfg.BcryptCost, 0)
	if err != nil {
		return err
	}
	tokens, err := token.New(token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return err
	}

	authSvc := service.NewAuthService(users, hasher, tokens, lim, logger)
	taskSvc := service.NewTaskService(tasks, stats, logger)

	router := httpserver.New(authSvc, taskSvc, logger).Router(httpserver.Options{
		CORSOrigin: cfg.CORSOrigin,
		RateLimit:  rate.Limit(cfg.RateLimit),
		RateBurst:  int(cfg.RateLimit * 2),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shCtx)
	})
	return g.Wait()
}
