// Package app assembles the bistro client components with fx.
//
// The graph owns the storage handle, the event bus dispatcher and the
// notification poller. Start restores the persisted session and delivers
// the resulting events before returning, so callers see a settled cart.
package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/bus"
	"github.com/roach88/bistro/internal/cart"
	"github.com/roach88/bistro/internal/checkout"
	"github.com/roach88/bistro/internal/config"
	"github.com/roach88/bistro/internal/menu"
	"github.com/roach88/bistro/internal/notify"
	"github.com/roach88/bistro/internal/session"
	"github.com/roach88/bistro/internal/store"
)

// App is a started component graph.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Storage       *store.Store
	Client        *api.Client
	Bus           *bus.Bus
	Session       *session.Store
	Cart          *cart.Store
	Notifications *notify.Store
	Poller        *notify.Poller
	Checkout      *checkout.Service
	Importer      *menu.Importer

	fx *fx.App
}

// Options customise the graph. Config is required.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Alerter receives newly surfaced notifications. Defaults to LogAlerter.
	Alerter notify.Alerter

	// ClientOptions are appended after the configured timeout and logger.
	ClientOptions []api.Option

	// PollerOptions are appended after the configured logger.
	PollerOptions []notify.PollerOption

	// DeferCartLoad keeps the cart Uninitialized across transitions until
	// something calls EnsureFetched, instead of loading it on every
	// Authenticated event.
	DeferCartLoad bool

	// Listeners are subscribed after the stores, before the session is
	// restored, so they observe the restore outcome too.
	Listeners []bus.Listener
}

// Start builds the graph and runs its start hooks.
func Start(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Alerter == nil {
		opts.Alerter = notify.LogAlerter{Logger: opts.Logger}
	}

	a := &App{}
	a.fx = fx.New(
		fx.NopLogger,
		fx.Supply(opts.Config, opts.Logger, opts),
		injectInfra(),
		injectStores(),
		fx.Invoke(wireEvents, startDispatch),
		fx.Populate(
			&a.Config,
			&a.Logger,
			&a.Storage,
			&a.Client,
			&a.Bus,
			&a.Session,
			&a.Cart,
			&a.Notifications,
			&a.Poller,
			&a.Checkout,
			&a.Importer,
		),
	)
	if err := a.fx.Err(); err != nil {
		return nil, errors.Wrap(err, "build app")
	}
	if err := a.fx.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "start app")
	}
	return a, nil
}

// Stop runs the stop hooks: poller, bus dispatcher, then storage.
func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

func injectInfra() fx.Option {
	return fx.Provide(
		newStorage,
		newClient,
		newBus,
	)
}

func injectStores() fx.Option {
	return fx.Provide(
		newSession,
		newCart,
		newNotifications,
		newPoller,
		newCheckout,
		menu.NewImporter,
	)
}

func newStorage(lc fx.Lifecycle, cfg *config.Config) (*store.Store, error) {
	path := cfg.Storage.Path
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create storage dir %s", dir)
		}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open storage %s", path)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}

func newClient(cfg *config.Config, storage *store.Store, logger *slog.Logger, opts Options) *api.Client {
	clientOpts := []api.Option{
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)
	return api.New(cfg.API.BaseURL, session.StoredToken(storage), clientOpts...)
}

func newBus(logger *slog.Logger) *bus.Bus {
	return bus.New(logger)
}

func newSession(client *api.Client, storage *store.Store, events *bus.Bus, logger *slog.Logger) *session.Store {
	s := session.New(client, storage, events, logger)
	client.OnAuthRejected(s.Expire)
	return s
}

func newCart(client *api.Client, sess *session.Store, logger *slog.Logger) *cart.Store {
	return cart.New(client, sess, logger)
}

func newNotifications(client *api.Client, sess *session.Store, logger *slog.Logger, opts Options) *notify.Store {
	return notify.New(client, sess, opts.Alerter, logger)
}

func newPoller(lc fx.Lifecycle, notifications *notify.Store, cfg *config.Config, logger *slog.Logger, opts Options) *notify.Poller {
	pollerOpts := append([]notify.PollerOption{notify.WithPollerLogger(logger)}, opts.PollerOptions...)
	p := notify.NewPoller(notifications, cfg.Notifications.PollInterval, pollerOpts...)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			p.Stop()
			return nil
		},
	})
	return p
}

func newCheckout(client *api.Client, c *cart.Store, storage *store.Store, logger *slog.Logger) *checkout.Service {
	return checkout.New(client, c, storage, logger)
}

// wireEvents subscribes the stores that follow session transitions. The
// poller is not subscribed here; only long-running commands poll.
func wireEvents(events *bus.Bus, c *cart.Store, n *notify.Store, opts Options) {
	if opts.DeferCartLoad {
		events.Subscribe(c.FollowLazily)
	} else {
		events.Subscribe(c.HandleEvent)
	}
	events.Subscribe(n.HandleEvent)
	for _, l := range opts.Listeners {
		events.Subscribe(l)
	}
}

type dispatchParams struct {
	fx.In

	Lc      fx.Lifecycle
	Bus     *bus.Bus
	Session *session.Store
	Logger  *slog.Logger
}

func startDispatch(params dispatchParams) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	params.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Session.Restore(ctx); err != nil {
				params.Logger.Warn("session restore failed", "error", err)
			}
			params.Bus.DispatchPending(ctx)

			go func() {
				defer close(done)
				if err := params.Bus.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					params.Logger.Warn("bus dispatcher stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Bus.Close()
			select {
			case <-done:
			case <-ctx.Done():
				cancel()
				<-done
			}
			cancel()
			return nil
		},
	})
}
