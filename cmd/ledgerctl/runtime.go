package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	portssvc "github.com/SscSPs/bizledger/internal/core/ports/services"
	"github.com/SscSPs/bizledger/internal/core/services"
	"github.com/SscSPs/bizledger/internal/platform/config"
	"github.com/SscSPs/bizledger/internal/platform/lock"
	"github.com/SscSPs/bizledger/internal/platform/logging"
	"github.com/SscSPs/bizledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/bizledger/pkg/database"
	"github.com/urfave/cli/v2"
)

// runtime is what a command needs once config is loaded: the run-scoped
// context and, for database commands, the service container.
type runtime struct {
	ctx      context.Context
	cfg      *config.Config
	logger   *slog.Logger
	services *portssvc.ServiceContainer
	closers  []func()
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// loadRuntime reads config, sets up logging and tags the context with a run id.
func loadRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := logging.WithLogger(c.Context, logger)
	ctx, runID := logging.WithRun(ctx, c.Command.FullName())
	logging.GetLoggerFromCtx(ctx).Debug("Run started", slog.String("run_id", runID))
	return &runtime{ctx: ctx, cfg: cfg, logger: logging.GetLoggerFromCtx(ctx)}, nil
}

// connect opens the pool and the optional Redis job lock and builds the services.
func (r *runtime) connect() error {
	pool, err := database.NewPgxPool(r.ctx, r.cfg.DatabaseURL, r.cfg.EnableDBCheck)
	if err != nil {
		return fmt.Errorf("failed to initialize database pool: %w", err)
	}
	r.closers = append(r.closers, func() { database.ClosePgxPool(pool) })

	var locker portssvc.JobLocker = lock.NoopLocker{}
	if r.cfg.RedisAddr != "" {
		rdb, err := lock.Connect(r.ctx, r.cfg.RedisAddr, r.cfg.RedisPassword, r.cfg.RedisDB)
		if err != nil {
			return err
		}
		r.closers = append(r.closers, func() { _ = rdb.Close() })
		locker = lock.NewRedisLocker(rdb, r.cfg.JobLockTTL)
		r.logger.Debug("Redis job lock enabled", slog.String("addr", r.cfg.RedisAddr))
	} else {
		r.logger.Warn("REDIS_ADDR not set; job locks are disabled")
	}

	r.services = services.NewServiceContainer(r.cfg, pgsql.NewRepositoryProvider(pool), locker)
	return nil
}

// withServices wraps an action that needs the database.
func withServices(action func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := loadRuntime(c)
		if err != nil {
			return err
		}
		defer rt.close()
		if err := rt.connect(); err != nil {
			return err
		}
		return action(c, rt)
	}
}
