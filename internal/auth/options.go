// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"log/slog"
	"time"
)

type options struct {
	logger   *slog.Logger
	fallback RoleFallback
	linkBase string
	now      func() time.Time
}

// Option configures the auth components.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRoleFallback sets the policy for users without a role.
func WithRoleFallback(f RoleFallback) Option {
	return func(o *options) { o.fallback = f }
}

// WithResetLinkBase sets the URL reset tokens are appended to in emails.
func WithResetLinkBase(base string) Option {
	return func(o *options) { o.linkBase = base }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		fallback: FallbackReject,
		linkBase: DefaultResetLinkBase,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
