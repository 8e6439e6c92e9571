// Package app wires configuration, infrastructure and the core packages into runnable jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/iris/config"
	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/duplicates"
	"github.com/Ramsey-B/iris/pkg/events"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/kafka"
	"github.com/Ramsey-B/iris/pkg/linking"
	"github.com/Ramsey-B/iris/pkg/mandates"
	"github.com/Ramsey-B/iris/pkg/merging"
	"github.com/Ramsey-B/iris/pkg/metrics"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/providers"
	"github.com/Ramsey-B/iris/pkg/redis"
	"github.com/Ramsey-B/iris/pkg/startup"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

// ErrJobRunning is returned when another instance holds the job lock
var ErrJobRunning = errors.New("job already running in another instance")

// App holds the started infrastructure of one CLI invocation
type App struct {
	Config *config.Config
	Logger ectologger.Logger
	DB     database.DB
	Store  *Store

	emitter  events.Emitter
	locker   *redis.Locker
	pusher   *metrics.Pusher
	recorder *metrics.Recorder
	startup  *startup.Startup

	containerID string
}

// Options selects which infrastructure a command needs
type Options struct {
	// Migrate applies pending migrations once the database is reachable
	Migrate bool
	// SkipStore stops after the database connection, for commands that only migrate
	SkipStore bool
}

// Start connects every configured dependency in order, retrying with backoff
func Start(ctx context.Context, cfg *config.Config, logger ectologger.Logger, opts Options) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		emitter:  events.Noop{},
		pusher:   metrics.NewPusher(cfg.MetricsPushgatewayURL, logger),
		recorder: metrics.NewRecorder(),
		startup:  startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}

	if cfg.OtelEnabled {
		var shutdown func(context.Context) error
		a.startup.AddDependency(startup.Func{
			Name: "tracing",
			OnStart: func(ctx context.Context) error {
				var err error
				shutdown, err = tracing.Setup(ctx, cfg.AppName, cfg.Tracing())
				return err
			},
			OnStop: func(ctx context.Context) error {
				if shutdown == nil {
					return nil
				}
				return shutdown(ctx)
			},
		})
	}

	a.startup.AddDependency(startup.Func{
		Name: "database",
		OnStart: func(ctx context.Context) error {
			db, err := database.Connect(ctx, cfg.Database(), logger)
			if err != nil {
				return err
			}
			a.DB = db
			return nil
		},
		OnStop: func(context.Context) error {
			if a.DB == nil {
				return nil
			}
			return a.DB.Close()
		},
	})

	if opts.Migrate {
		a.startup.AddDependency(startup.Func{
			Name:     "migrations",
			Requires: []string{"database"},
			OnStart: func(context.Context) error {
				return database.NewMigrationService(logger, cfg.Migration()).MigrateDB(a.DB, cfg.DatabaseName)
			},
		})
	}

	if cfg.RedisEnabled() && !opts.SkipStore {
		var client *redis.Client
		a.startup.AddDependency(startup.Func{
			Name: "redis",
			OnStart: func(ctx context.Context) error {
				var err error
				client, err = redis.NewClient(ctx, cfg.Redis(), logger)
				if err != nil {
					return err
				}
				a.locker = redis.NewLocker(client, cfg.AppName+":lock:")
				return nil
			},
			OnStop: func(context.Context) error {
				if client == nil {
					return nil
				}
				return client.Close()
			},
		})
	}

	if cfg.KafkaEnabled && !opts.SkipStore {
		var producer *kafka.Producer
		a.startup.AddDependency(startup.Func{
			Name: "kafka",
			OnStart: func(context.Context) error {
				producer = kafka.NewProducer(cfg.Kafka(), logger)
				a.emitter = events.NewKafkaEmitter(producer, logger)
				return nil
			},
			OnStop: func(context.Context) error {
				if producer == nil {
					return nil
				}
				return producer.Close()
			},
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, jobs.Fatal(err)
	}

	if !opts.SkipStore {
		a.Store = NewStore(a.DB, logger)
	}
	if err := a.register(); err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, jobs.Fatal(err)
	}
	return a, nil
}

// Close stops every started dependency in reverse order
func (a *App) Close(ctx context.Context) {
	if err := a.startup.Stop(ctx); err != nil {
		a.Logger.WithContext(ctx).WithError(err).Warn("Failed to stop dependencies")
	}
}

// Locked runs fn while holding the job lock for jobName. Without Redis fn runs unguarded.
func (a *App) Locked(ctx context.Context, jobName string, fn func(ctx context.Context) error) error {
	ctx = jobs.SetRunID(jobs.SetJobName(ctx, jobName), uuid.New().String())
	if a.locker == nil {
		return fn(ctx)
	}

	err := a.locker.WithLock(ctx, jobName, a.Config.LockTTL, fn)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return jobs.Fatal(fmt.Errorf("%s: %w", jobName, ErrJobRunning))
	}
	return err
}

// Finish records the run duration and pushes metrics. Push failures are logged only.
func (a *App) Finish(ctx context.Context, jobName string, started time.Time, err error) {
	status := "success"
	switch {
	case jobs.IsFatal(err):
		status = "fatal"
	case err != nil:
		status = "interrupted"
	}
	metrics.JobDuration.WithLabelValues(jobName, status).Observe(time.Since(started).Seconds())
	_ = a.pusher.Push(context.WithoutCancel(ctx), jobName)
}

// Syncer builds the linking job for one run. Mandates it writes are reconciled once the run succeeds.
func (a *App) Syncer(createMissing, dryRun bool) (*linking.Syncer, *jobs.Runner[models.CandidateRecord], error) {
	reconciler, err := a.Reconciler()
	if err != nil {
		return nil, nil, err
	}

	matcher := a.Config.Matcher()
	syncer := linking.NewSyncer(a.Store, a.emitter, a.Logger, linking.Config{
		CreateMissing: createMissing,
		DryRun:        dryRun,
		Matcher:       &matcher,
	}).WithReconciler(reconciler)
	runner := jobs.NewRunner(a.Store, a.Logger, a.Config.Jobs(dryRun), linking.RecordKey).WithRecorder(a.recorder)
	return syncer, runner, nil
}

// MergeEngine returns the affair merge engine
func (a *App) MergeEngine() (*merging.Engine, error) {
	return resolve[*merging.Engine](a)
}

// Duplicates builds the detection service with auto-merge support
func (a *App) Duplicates(dryRun bool) (*duplicates.Service, error) {
	engine, err := a.MergeEngine()
	if err != nil {
		return nil, err
	}

	runner := jobs.NewRunner(a.Store, a.Logger, a.Config.Jobs(dryRun), duplicates.PairKey).WithRecorder(a.recorder)
	return duplicates.NewService(
		duplicates.NewDetector(a.Config.Duplicates()),
		a.Store,
		a.Store,
		engine,
		runner,
		a.Logger,
	), nil
}

// Reconciler returns the mandate reconciler
func (a *App) Reconciler() (*mandates.Reconciler, error) {
	return resolve[*mandates.Reconciler](a)
}

// Fetcher returns the provider HTTP client
func (a *App) Fetcher() (*providers.Fetcher, error) {
	return resolve[*providers.Fetcher](a)
}

// Decoder returns the provider payload decoder
func (a *App) Decoder() (*providers.Decoder, error) {
	return resolve[*providers.Decoder](a)
}
