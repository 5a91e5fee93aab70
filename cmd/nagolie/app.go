// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/config"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/logging"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/observability"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session/boltstore"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session/pgstore"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session/redisstore"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/xdg"
	"github.com/JosephNgugi254/Nagolie-project-sub001/pkg/errutil"
)

// runtime is shared by every command of one process, including the
// commands run from the shell.
type runtime struct {
	deps       *Deps
	configFile string
	cfg        *config.Config
	app        *app
	prompter   Prompter
	shell      bool
}

func newRuntime(deps *Deps) *runtime {
	if deps == nil {
		deps = &Deps{}
	}
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.IdentityFactory == nil {
		deps.IdentityFactory = func(cfg config.IdentityConfig, logger *slog.Logger) (IdentityAPI, error) {
			return identity.New(cfg.BaseURL,
				identity.WithTimeout(cfg.Timeout),
				identity.WithRetries(cfg.Retries, identity.DefaultRetryBackoff),
				identity.WithLogger(logger))
		}
	}
	if deps.MailerFactory == nil {
		deps.MailerFactory = newMailer
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, auth.RegisterMetrics)
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return pgstore.NewMigrator(databaseURL)
		}
	}
	return &runtime{deps: deps, prompter: deps.Prompter}
}

// app holds the components built from configuration.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	backend      session.Backend
	tombstones   session.Backend
	store        *session.Store
	roles        *auth.RoleResolver
	manager      *auth.Manager
	registration *auth.RegistrationHandshake
	api          IdentityAPI
	opts         []auth.Option
	newMailer    func() (mailer.Mailer, error)
	resets       *auth.ResetCoordinator
}

func (rt *runtime) prompt(cmd *cobra.Command) Prompter {
	if rt.prompter == nil {
		rt.prompter = newTermPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	return rt.prompter
}

func (rt *runtime) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if rt.cfg != nil {
		return rt.cfg, nil
	}
	cfg, err := config.Load(cmd.Root().PersistentFlags(), rt.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt.cfg = cfg
	return cfg, nil
}

// run opens the app if needed and calls fn. Outside the shell the app is
// closed when fn returns.
func (rt *runtime) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := rt.open(ctx, cmd)
	if err != nil {
		return err
	}
	if !rt.shell {
		defer rt.close()
	}
	return fn(ctx, a)
}

func (rt *runtime) open(ctx context.Context, cmd *cobra.Command) (*app, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	cfg, err := rt.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	w := rt.deps.LogWriter
	if w == nil {
		w = cmd.ErrOrStderr()
	}
	logger := logging.Setup("nagolie", version, logging.Options{Format: cfg.Log.Format, Level: level, Writer: w})

	fallback, err := auth.ParseRoleFallback(cfg.Auth.RoleFallback)
	if err != nil {
		return nil, err
	}
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithRoleFallback(fallback),
		auth.WithResetLinkBase(cfg.Reset.LinkBase),
	}

	api, err := rt.deps.IdentityFactory(cfg.Identity, logger)
	if err != nil {
		return nil, err
	}
	backend, err := rt.deps.BackendFactory(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	tombstones, err := openTombstones(cfg.Session)
	if err != nil {
		_ = backend.Close() //nolint:errcheck // open error takes precedence
		return nil, err
	}

	a, err := assemble(cfg, logger, backend, tombstones, api, opts)
	if err != nil {
		_ = backend.Close() //nolint:errcheck // assembly error takes precedence
		if tombstones != nil {
			_ = tombstones.Close() //nolint:errcheck // assembly error takes precedence
		}
		return nil, err
	}
	a.newMailer = func() (mailer.Mailer, error) {
		return rt.deps.MailerFactory(cfg, logger)
	}

	if _, err := a.manager.Restore(ctx); err != nil {
		errutil.LogError(logger, "stored session could not be restored", err)
	}
	rt.app = a
	return a, nil
}

func assemble(
	cfg *config.Config, logger *slog.Logger, backend, tombstones session.Backend, api IdentityAPI, opts []auth.Option,
) (*app, error) {
	storeOpts := []session.StoreOption{session.WithLogger(logger)}
	if tombstones != nil {
		storeOpts = append(storeOpts, session.WithTombstones(tombstones))
	}
	store, err := session.NewStore(backend, storeOpts...)
	if err != nil {
		return nil, err
	}
	roles, err := auth.NewRoleResolver(store, logger)
	if err != nil {
		return nil, err
	}
	manager, err := auth.NewManager(store, api, opts...)
	if err != nil {
		return nil, err
	}
	registration, err := auth.NewRegistrationHandshake(api, manager, opts...)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:          cfg,
		logger:       logger,
		backend:      backend,
		tombstones:   tombstones,
		store:        store,
		roles:        roles,
		manager:      manager,
		registration: registration,
		api:          api,
		opts:         opts,
	}, nil
}

// resetCoordinator builds the reset flow on first use, since only it needs
// mail settings.
func (a *app) resetCoordinator() (*auth.ResetCoordinator, error) {
	if a.resets != nil {
		return a.resets, nil
	}
	if err := a.cfg.ValidateMail(); err != nil {
		return nil, err
	}
	m, err := a.newMailer()
	if err != nil {
		return nil, err
	}
	c, err := auth.NewResetCoordinator(a.api, m, a.opts...)
	if err != nil {
		return nil, err
	}
	a.resets = c
	return c, nil
}

func (rt *runtime) close() {
	if rt.app == nil {
		return
	}
	if err := rt.app.backend.Close(); err != nil {
		errutil.LogError(rt.app.logger, "session backend close failed", err)
	}
	if rt.app.tombstones != nil {
		if err := rt.app.tombstones.Close(); err != nil {
			errutil.LogError(rt.app.logger, "tombstone file close failed", err)
		}
	}
	rt.app = nil
}

func openBackend(ctx context.Context, cfg config.SessionConfig) (session.Backend, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
		return boltstore.Open(cfg.Path, boltstore.DefaultBucket)
	case config.BackendRedis:
		return redisstore.Dial(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.BackendPostgres:
		return pgstore.Open(ctx, cfg.PostgresURL, cfg.Namespace)
	case config.BackendMemory:
		return session.NewMemoryBackend(), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("backend", cfg.Backend).Errorf("unknown session backend")
	}
}

// openTombstones opens the local file that records logouts a network
// session backend could not apply. Local backends need none.
func openTombstones(cfg config.SessionConfig) (session.Backend, error) {
	if cfg.Backend != config.BackendRedis && cfg.Backend != config.BackendPostgres {
		return nil, nil
	}
	path := cfg.TombstonePath
	if path == "" {
		var err error
		if path, err = xdg.TombstoneFile(); err != nil {
			return nil, err
		}
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return boltstore.Open(path, boltstore.TombstoneBucket)
}

func newMailer(cfg *config.Config, logger *slog.Logger) (mailer.Mailer, error) {
	if cfg.Mail.DryRun {
		return mailer.NewLogMailer(logger), nil
	}
	opts := []mailer.Option{mailer.WithLogger(logger)}
	if cfg.Mail.Timeout > 0 {
		opts = append(opts, mailer.WithHTTPClient(&http.Client{Timeout: cfg.Mail.Timeout}))
	}
	return mailer.NewEmailJS(cfg.MailerConfig(), opts...)
}
