package root

import (
	"context"
	"sync"

	"github.com/BerryBytes/portalctl/cmd/admin"
	"github.com/BerryBytes/portalctl/cmd/auth"
	"github.com/BerryBytes/portalctl/internal/app"
	"github.com/BerryBytes/portalctl/internal/config"
	"github.com/BerryBytes/portalctl/internal/logging"
	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/rs/zerolog"
)

// AdminRoute is the protected route admin watches run on by default.
const AdminRoute = "/admin"

// Runtime loads the config, logger and application on first use so that
// help and flag errors never touch storage.
type Runtime struct {
	ConfigPath string
	LogLevel   string

	mu     sync.Mutex
	cfg    *config.Config
	logger *zerolog.Logger
	app    *app.App
}

func (r *Runtime) Config() (*config.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configLocked()
}

func (r *Runtime) configLocked() (*config.Config, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}
	cfg, err := config.NewConfig(r.ConfigPath)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg
	return cfg, nil
}

// Logger returns the configured logger. Before a config is available it
// falls back to the --log-level flag alone.
func (r *Runtime) Logger() zerolog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loggerLocked()
}

func (r *Runtime) loggerLocked() zerolog.Logger {
	if r.logger != nil {
		return *r.logger
	}

	level, pretty := r.LogLevel, true
	if cfg, err := r.configLocked(); err == nil {
		if level == "" {
			level = cfg.Log.Level
		}
		pretty = cfg.Log.Pretty
	}
	logger := logging.New(level, pretty)
	r.logger = &logger
	return logger
}

func (r *Runtime) App(ctx context.Context) (*app.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.app != nil {
		return r.app, nil
	}
	cfg, err := r.configLocked()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, r.loggerLocked())
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

func (r *Runtime) UserSession(ctx context.Context) (*auth.Session, error) {
	a, err := r.App(ctx)
	if err != nil {
		return nil, err
	}
	return &auth.Session{
		Name:       "user",
		Route:      a.Config.Session.Route,
		Options:    a.UserOptions(),
		Store:      a.User,
		Auth:       a.Identity,
		Notifier:   a.Notifier,
		Controller: func(nav session.Navigator) *session.Controller { return a.UserController(nav) },
	}, nil
}

func (r *Runtime) AdminSession(ctx context.Context) (*auth.Session, error) {
	a, err := r.App(ctx)
	if err != nil {
		return nil, err
	}
	return &auth.Session{
		Name:       "admin",
		Route:      AdminRoute,
		Options:    a.AdminOptions(),
		Store:      a.Admin,
		Auth:       a.Identity.Admin(),
		Notifier:   a.Notifier,
		Controller: func(nav session.Navigator) *session.Controller { return a.AdminController(nav) },
	}, nil
}

func (r *Runtime) AdminAPI(ctx context.Context) (admin.Requester, error) {
	a, err := r.App(ctx)
	if err != nil {
		return nil, err
	}
	return a.AdminAPI(), nil
}

// Close releases the application if it was opened.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}
