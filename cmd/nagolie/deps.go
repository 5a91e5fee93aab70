// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/config"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/observability"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// BackendFactory opens the session backend.
	// Default: openBackend (bbolt, redis, postgres or memory)
	BackendFactory func(ctx context.Context, cfg config.SessionConfig) (session.Backend, error)

	// IdentityFactory creates the Identity API client.
	// Default: identity.New
	IdentityFactory func(cfg config.IdentityConfig, logger *slog.Logger) (IdentityAPI, error)

	// MailerFactory creates the mailer used by the reset flow.
	// Default: mailer.NewEmailJS, or mailer.NewLogMailer when mail.dry_run is set
	MailerFactory func(cfg *config.Config, logger *slog.Logger) (mailer.Mailer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// MigratorFactory creates a schema migrator for the postgres backend.
	// Default: pgstore.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// Prompter reads answers and secrets from the user.
	// Default: a terminal prompter over the command's stdin
	Prompter Prompter

	// LogWriter receives log output.
	// Default: the command's stderr
	LogWriter io.Writer
}

// IdentityAPI is the Identity API surface used by the CLI.
type IdentityAPI interface {
	auth.Authenticator
	auth.ResetAPI
	auth.RegistrationAPI
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// Migrator interface wraps the methods used from pgstore.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}
