// Package app assembles stores, notifiers and API clients from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/BerryBytes/portalctl/internal/adminapi"
	"github.com/BerryBytes/portalctl/internal/clock"
	"github.com/BerryBytes/portalctl/internal/config"
	"github.com/BerryBytes/portalctl/internal/identity"
	"github.com/BerryBytes/portalctl/internal/notify"
	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/BerryBytes/portalctl/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.etcd.io/bbolt"
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"

	NotifyLocal = "local"
	NotifyFile  = "file"
	NotifyRedis = "redis"
)

var ErrUnknownDriver = errors.New("unknown driver")

// App holds everything a command needs. Close releases it.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Notifier notify.Notifier
	User     *session.Store
	Admin    *session.Store
	Identity *identity.Client

	// Fs backs the file driver.
	Fs afero.Fs

	redis   *redis.Client
	closers []func() error
}

// New builds the application. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Fs:     afero.NewOsFs(),
	}

	short, long, files, err := a.openScopes(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Storage.Key != "" {
		if short, err = storage.NewSealedScope(short, cfg.Storage.Key, session.ScopeShort); err != nil {
			_ = a.Close()
			return nil, err
		}
		if long, err = storage.NewSealedScope(long, cfg.Storage.Key, session.ScopeLong); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.User = session.NewStore(short, long, session.UserKeys())
	a.Admin = session.NewStore(short, long, session.AdminKeys())

	if a.Notifier, err = a.openNotifier(ctx, files); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Identity = identity.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.APITimeout()}, logger)
	return a, nil
}

// openScopes returns the short and long scopes plus, for the file driver, the
// scope files keyed by path.
func (a *App) openScopes(ctx context.Context) (storage.Scope, storage.Scope, map[string]string, error) {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case DriverMemory:
		return storage.NewMemoryScope(cfg.ShortTTL()), storage.NewMemoryScope(0), nil, nil

	case DriverFile:
		shortPath := filepath.Join(cfg.Storage.RuntimeDir, "short.json")
		longPath := filepath.Join(cfg.Storage.Dir, "long.json")
		files := map[string]string{shortPath: session.ScopeShort, longPath: session.ScopeLong}
		return storage.NewFileScope(a.Fs, shortPath), storage.NewFileScope(a.Fs, longPath), files, nil

	case DriverBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.BoltPath), 0700); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		// bbolt holds an exclusive file lock; fail fast when another
		// process has the database open.
		db, err := storage.OpenBolt(cfg.Storage.BoltPath, &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		return storage.NewBoltScope(db, session.ScopeShort), storage.NewBoltScope(db, session.ScopeLong), nil, nil

	case DriverRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		prefix := cfg.Storage.RedisPrefix
		return storage.NewRedisScope(client, prefix+":"+session.ScopeShort, cfg.ShortTTL()),
			storage.NewRedisScope(client, prefix+":"+session.ScopeLong, 0), nil, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: storage %q", ErrUnknownDriver, cfg.Storage.Driver)
}

// openNotifier always includes an in-process notifier so controllers of the
// same process hear each other whatever the cross-process transport is.
func (a *App) openNotifier(ctx context.Context, files map[string]string) (notify.Notifier, error) {
	local := notify.NewLocal()

	switch a.Config.Notify.Driver {
	case NotifyLocal:
		return local, nil

	case NotifyFile:
		if files == nil {
			return nil, fmt.Errorf("file notifications need the file storage driver, not %q", a.Config.Storage.Driver)
		}
		watcher, err := notify.NewFileWatcher(files, a.Logger.With().Str("component", "filewatch").Logger())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, watcher.Close)
		return notify.Fanout{local, watcher}, nil

	case NotifyRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		relay, err := notify.NewRedis(ctx, client, a.Config.Notify.RedisChannel, a.Logger.With().Str("component", "notify").Logger())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, relay.Close)
		return notify.Fanout{local, relay}, nil
	}
	return nil, fmt.Errorf("%w: notify %q", ErrUnknownDriver, a.Config.Notify.Driver)
}

func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	cfg := a.Config.Storage
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// UserOptions returns the user session variant with the configured routes
// and timings.
func (a *App) UserOptions() session.Options {
	opts := session.UserOptions()
	opts.LoginRoute = a.Config.Session.LoginRoute
	a.applySession(&opts)
	return opts
}

func (a *App) AdminOptions() session.Options {
	opts := session.AdminOptions()
	opts.LoginRoute = a.Config.Session.AdminLoginRoute
	a.applySession(&opts)
	return opts
}

func (a *App) applySession(opts *session.Options) {
	if len(a.Config.Session.PublicRoutes) > 0 {
		opts.PublicRoutes = a.Config.Session.PublicRoutes
	}
	opts.PollInterval = a.Config.PollInterval()
	opts.DefaultTTL = a.Config.DefaultTTL()
}

// UserController builds a controller for the user session.
func (a *App) UserController(nav session.Navigator) *session.Controller {
	return session.NewController(a.UserOptions(), a.User, a.Identity, a.deps(nav))
}

// AdminController builds a controller for the admin session.
func (a *App) AdminController(nav session.Navigator) *session.Controller {
	return session.NewController(a.AdminOptions(), a.Admin, a.Identity.Admin(), a.deps(nav))
}

// AdminAPI returns the admin REST client bound to the admin store.
func (a *App) AdminAPI() *adminapi.Client {
	return adminapi.NewClient(a.Config.API.BaseURL, &http.Client{Timeout: a.Config.APITimeout()}, a.Admin, a.Notifier, a.Logger)
}

func (a *App) deps(nav session.Navigator) session.Dependencies {
	return session.Dependencies{
		Scheduler: clock.Real{},
		Notifier:  a.Notifier,
		Navigator: nav,
		Logger:    a.Logger.With().Str("component", "session").Logger(),
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
