package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rafaelmatth/task-manager-backend/internal/api"
	"github.com/rafaelmatth/task-manager-backend/internal/config"
	dcache "github.com/rafaelmatth/task-manager-backend/internal/domain/cache"
	"github.com/rafaelmatth/task-manager-backend/internal/domain/ratelimit"
	cacheinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/cache"
	metricsinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/metrics"
	ratelimitinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/ratelimit"
	redisinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/redis"
	"github.com/rafaelmatth/task-manager-backend/internal/repository"
	"github.com/rafaelmatth/task-manager-backend/internal/service"
	"github.com/rafaelmatth/task-manager-backend/pkg/nethttp/runner"
)

type Application struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqlx.DB
	redis   *redisinfra.Client
	metrics *metricsinfra.Metrics
	tasks   *service.TaskService
	router  *api.Router

	errChan chan error
	wg      sync.WaitGroup
	ready   bool
}

func New() *Application {
	return &Application{errChan: make(chan error)}
}

func (a *Application) Ready() bool {
	return a.ready
}

func (a *Application) Start(ctx context.Context, build string) error {
	if err := a.initCoreComponents(build); err != nil {
		return fmt.Errorf("initCoreComponents(): %w", err)
	}

	if err := a.initStorage(ctx); err != nil {
		return fmt.Errorf("initStorage(): %w", err)
	}

	if err := a.initPublicRouter(ctx); err != nil {
		return fmt.Errorf("initPublicRouter(): %w", err)
	}

	a.logger.Info("application started", slog.String("db_driver", a.cfg.DB.Driver))
	a.ready = true
	return nil
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	errWg := sync.WaitGroup{}
	errWg.Add(1)

	go func() {
		defer errWg.Done()
		for err := range a.errChan {
			cancel()
			if err != nil {
				a.logger.Error("error in Wait", slog.String("error", err.Error()))
				appErr = err
			}
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errChan)
	errWg.Wait()

	a.shutdown()
	return appErr
}

// shutdown runs after the HTTP server stopped accepting requests.
func (a *Application) shutdown() {
	if a.tasks != nil {
		a.tasks.Wait()
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("redis close failed", "err", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("db close failed", "err", err)
		}
	}
	a.logger.Info("application stopped")
}

func (a *Application) initCoreComponents(build string) error {
	if err := a.initConfig(); err != nil {
		return fmt.Errorf("initConfig(): %w", err)
	}

	a.initLogger(build)
	a.metrics = metricsinfra.New()
	return nil
}

func (a *Application) initConfig() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *Application) initLogger(build string) {
	a.logger = NewLogger(os.Stdout, a.cfg.Log.LevelStr, build)
}

func (a *Application) initStorage(ctx context.Context) error {
	db, err := repository.NewDB(a.cfg.DB)
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("db ping: %w", err)
	}
	a.db = db

	if !a.cfg.Cache.Disabled {
		a.redis = redisinfra.New(a.cfg.Redis)
		if !a.redis.Ping(pingCtx, a.logger) {
			a.logger.Warn("redis unavailable at startup, serving from database until it recovers", "addr", a.cfg.Redis.Addr)
		}
	}
	return nil
}

func (a *Application) initPublicRouter(ctx context.Context) error {
	var (
		store        dcache.Store = cacheinfra.NopStore{}
		keys         api.KeyLister
		redisPinger  api.RedisPinger
		loginLimiter ratelimit.Limiter = ratelimitinfra.NewMemory(a.cfg.RateLimit.LoginPerMin, time.Minute)
		userLimiter  ratelimit.Limiter = ratelimitinfra.NewMemory(a.cfg.RateLimit.UserPerMin, time.Minute)
	)
	if a.redis != nil {
		rs := cacheinfra.NewRedisStore(a.redis.Redis, a.cfg.Redis, a.logger, a.metrics)
		store, keys, redisPinger = rs, rs, a.redis
		loginLimiter = ratelimitinfra.NewRedis(a.redis.Redis, "rl:login:", a.cfg.RateLimit.LoginPerMin, time.Minute, a.logger, a.metrics)
		userLimiter = ratelimitinfra.NewRedis(a.redis.Redis, "", a.cfg.RateLimit.UserPerMin, time.Minute, a.logger, a.metrics)
	}

	auth, err := service.NewAuthService(repository.NewUserRepository(a.db), *a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.tasks = service.NewTaskService(repository.NewTaskRepository(a.db), store, service.TaskServiceOptions{
		AsyncInvalidation:   a.cfg.Cache.AsyncInvalidation,
		InvalidationTimeout: a.cfg.Cache.InvalidationTimeout,
	}, a.logger, a.metrics)

	a.router = api.New(a.cfg, a.logger, api.Deps{
		Auth:         auth,
		Tasks:        a.tasks,
		CacheKeys:    keys,
		DB:           a.db,
		Redis:        redisPinger,
		LoginLimiter: loginLimiter,
		UserLimiter:  userLimiter,
		Metrics:      a.metrics,
	})

	return runner.RunServer(ctx, a.router.Server, a.cfg.HTTP.Addr, a.errChan, &a.wg, a.cfg.HTTP.ShutdownTimeout, a.logger)
}
