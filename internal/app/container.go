package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/lifecycles"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/iris/pkg/events"
	"github.com/Ramsey-B/iris/pkg/mandates"
	"github.com/Ramsey-B/iris/pkg/merging"
	"github.com/Ramsey-B/iris/pkg/providers"
)

// register creates the container holding the long-lived components of this App.
// Components needing the store are only resolvable once the store exists.
func (a *App) register() error {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       "iris-" + uuid.NewString(),
		AllowCaptiveDependencies: true,
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{
			Prefix:   "ectoinject",
			LogLevel: loglevel.WARN,
			Enabled:  true,
			LogFunc: func(ctx context.Context, level, msg string) {
				log := a.Logger.WithContext(ctx).WithFields(map[string]any{"component": "container"})
				if level == loglevel.WARN {
					log.Warn(msg)
					return
				}
				log.Debug(msg)
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	emitter := a.emitter
	if emitter == nil {
		emitter = events.Noop{}
	}

	errs := []error{
		ectoinject.RegisterInstance[ectologger.Logger](container, a.Logger),
		ectoinject.RegisterInstance[events.Emitter](container, emitter),
		singleton(container, func(ctx context.Context) (*providers.Fetcher, error) {
			_, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
			return providers.NewFetcher(a.Config.Fetcher(), logger), err
		}),
		singleton(container, func(ctx context.Context) (*providers.Decoder, error) {
			_, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
			return providers.NewDecoder(logger), err
		}),
	}

	if a.Store != nil {
		errs = append(errs,
			ectoinject.RegisterInstance[*Store](container, a.Store),
			singleton(container, func(ctx context.Context) (*merging.Engine, error) {
				store, emitter, logger, err := storeDeps(ctx)
				if err != nil {
					return nil, err
				}
				return merging.NewEngine(store, store, emitter, logger), nil
			}),
			singleton(container, func(ctx context.Context) (*mandates.Reconciler, error) {
				store, emitter, logger, err := storeDeps(ctx)
				if err != nil {
					return nil, err
				}
				return mandates.NewReconciler(store, emitter, logger), nil
			}),
		)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to register components: %w", err)
	}
	a.containerID = container.GetContainerID()
	return nil
}

func singleton[T any](container ectocontainer.DIContainer, build func(ctx context.Context) (T, error)) error {
	return ectoinject.RegisterInstanceFunc[T](container, lifecycles.Singleton, func(ctx context.Context) (any, error) {
		return build(ctx)
	})
}

func storeDeps(ctx context.Context) (*Store, events.Emitter, ectologger.Logger, error) {
	ctx, store, err := ectoinject.GetContext[*Store](ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, emitter, err := ectoinject.GetContext[events.Emitter](ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	_, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	return store, emitter, logger, err
}

// resolve returns the component of type T registered for this App
func resolve[T any](a *App) (T, error) {
	if a.containerID == "" {
		if err := a.register(); err != nil {
			var zero T
			return zero, err
		}
	}

	val, err := ectoinject.GetFromContainer[T](a.containerID)
	if err != nil {
		return val, fmt.Errorf("failed to resolve component: %w", err)
	}
	return val, nil
}
