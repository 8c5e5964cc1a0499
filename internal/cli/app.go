package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/pflag"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// App holds the loaded configuration and the process logger
type App struct {
	Config *config.Config
	Logger ectologger.Logger
	flush  func()
}

// NewApp loads configuration and builds the logger
func NewApp(cfgFile string, flags *pflag.FlagSet) (*App, error) {
	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return nil, err
	}

	logger, flush, err := logging.New(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger.WithField("app", cfg.AppName),
		flush:  flush,
	}, nil
}

// Close flushes buffered log output
func (a *App) Close() {
	if a.flush != nil {
		a.flush()
	}
}

// Dependencies are the external resources a command runs against. Optional
// resources stay nil when disabled.
type Dependencies struct {
	startup  *startup.Startup
	DB       database.DB
	Redis    *redis.Client
	Lock     *redis.Lock
	Producer *kafka.Producer
	Tracing  *tracing.Provider

	stopHeartbeat func()
}

type dependencyOptions struct {
	migrate bool
	runID   string
	lock    bool
	publish bool
}

// startDependencies registers and starts what the command needs, retrying
// startup with a fibonacci backoff.
func (a *App) startDependencies(ctx context.Context, opts dependencyOptions) (*Dependencies, error) {
	cfg := a.Config
	deps := &Dependencies{startup: startup.NewStartup(a.Logger, cfg.StartupMaxAttempts)}

	if cfg.OTLPEnabled {
		deps.startup.AddDependency(startup.Func{
			Name: "tracing",
			StartFunc: func(ctx context.Context) error {
				provider, err := tracing.Setup(ctx, cfg.Tracing(Version))
				if err != nil {
					return err
				}
				deps.Tracing = provider
				return nil
			},
			StopFunc: func(ctx context.Context) error {
				return deps.Tracing.Shutdown(ctx)
			},
		})
	}

	deps.startup.AddDependency(startup.Func{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			db, err := database.Open(ctx, cfg.Database(), a.Logger)
			if err != nil {
				return err
			}
			deps.DB = db
			return nil
		},
		StopFunc: func(context.Context) error {
			return deps.DB.Close()
		},
	})

	if opts.migrate {
		deps.startup.AddDependency(startup.Func{
			Name:     "migrations",
			Requires: []string{"database"},
			StartFunc: func(context.Context) error {
				return database.NewMigrationService(a.Logger, cfg.Migration()).MigrateDB(deps.DB, cfg.DBName)
			},
		})
	}

	if opts.lock && cfg.RedisEnabled {
		deps.startup.AddDependency(startup.Func{
			Name: "redis",
			StartFunc: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, cfg.Redis(), a.Logger)
				if err != nil {
					return err
				}
				deps.Redis = client
				return nil
			},
			StopFunc: func(context.Context) error {
				return deps.Redis.Close()
			},
		})
		deps.startup.AddDependency(startup.Func{
			Name:     "run-lock",
			Requires: []string{"redis"},
			StartFunc: func(ctx context.Context) error {
				if err := deps.acquireRunLock(ctx, cfg, opts.runID); err != nil {
					return err
				}
				deps.stopHeartbeat = deps.Lock.KeepAlive(context.WithoutCancel(ctx), cfg.RunLockTTL)
				return nil
			},
			StopFunc: func(ctx context.Context) error {
				deps.stopHeartbeat()
				err := deps.Lock.Release(context.WithoutCancel(ctx))
				if errors.Is(err, redis.ErrLockNotHeld) {
					a.Logger.Warn("Run lock expired before the sync finished")
					return nil
				}
				return err
			},
		})
	}

	if opts.publish && cfg.KafkaEnabled {
		deps.startup.AddDependency(startup.Func{
			Name: "kafka",
			StartFunc: func(context.Context) error {
				deps.Producer = kafka.NewProducer(cfg.Kafka(), a.Logger)
				return nil
			},
			StopFunc: func(context.Context) error {
				return deps.Producer.Close()
			},
		})
	}

	if err := deps.startup.Start(ctx); err != nil {
		_ = deps.startup.Stop(context.WithoutCancel(ctx))
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) acquireRunLock(ctx context.Context, cfg *config.Config, runID string) error {
	locker := redis.NewLocker(d.Redis, cfg.AppName+":")
	lock, err := locker.Acquire(ctx, redis.RunLockKey, runID, cfg.RunLockTTL)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		holder, _ := locker.Holder(ctx, redis.RunLockKey)
		return fmt.Errorf("another sync is running (run %s): %w", holder, err)
	}
	if err != nil {
		return err
	}
	d.Lock = lock
	return nil
}

// Stop releases every started dependency
func (d *Dependencies) Stop(ctx context.Context) error {
	return d.startup.Stop(context.WithoutCancel(ctx))
}
