// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// SessionStore persists the single client session.
type SessionStore interface {
	Save(ctx context.Context, s *session.Session) error
	Load(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
	Token(ctx context.Context) (string, error)
}

// Redirect hints returned after login.
const (
	RedirectInvestor = "/investor"
	RedirectAdmin    = "/admin"
)

// RedirectFor returns the landing area for role.
func RedirectFor(role session.Role) string {
	if role == session.RoleInvestor {
		return RedirectInvestor
	}
	return RedirectAdmin
}

// RoleFallback decides what happens when the identity backend returns a
// user without a role.
type RoleFallback string

// Role fallback policies.
const (
	// FallbackReject refuses the login.
	FallbackReject RoleFallback = "reject"
	// FallbackAdmin treats the user as an administrator. Older deployments
	// relied on this; it must be enabled explicitly.
	FallbackAdmin RoleFallback = "admin"
)

// ParseRoleFallback parses a policy name. The empty string selects
// FallbackReject.
func ParseRoleFallback(s string) (RoleFallback, error) {
	switch RoleFallback(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackReject:
		return FallbackReject, nil
	case FallbackAdmin:
		return FallbackAdmin, nil
	default:
		return "", oops.Code("AUTH_ROLE_FALLBACK_INVALID").
			With("value", s).
			Errorf("role fallback must be %q or %q", FallbackReject, FallbackAdmin)
	}
}

// resolveRole applies the fallback policy to a backend role string.
func resolveRole(ctx context.Context, raw string, fallback RoleFallback, logger *slog.Logger) (session.Role, *Failure) {
	if strings.TrimSpace(raw) == "" {
		if fallback != FallbackAdmin {
			return "", fail(KindUnauthorized, "AUTH_ROLE_MISSING", ReasonRoleMissing)
		}
		logger.WarnContext(ctx, "identity backend returned no role, applying admin fallback")
		return session.RoleAdmin, nil
	}
	role, err := session.ParseRole(raw)
	if err != nil {
		return "", failWrap(KindUnauthorized, "AUTH_ROLE_UNKNOWN", ReasonRoleUnknown, err, "role", raw)
	}
	return role, nil
}

// RoleResolver answers authentication and authorization questions from the
// persisted session.
//
// There are two tiers. IsAuthenticated is the weak tier: it accepts a bare
// token even when the profile or role is missing, and is only suitable for
// deciding whether to offer a logout. Session and RequireRole are the strong
// tier; only RequireRole may gate role-specific work.
type RoleResolver struct {
	store  SessionStore
	logger *slog.Logger
}

// NewRoleResolver creates a resolver reading from store.
func NewRoleResolver(store SessionStore, logger *slog.Logger) (*RoleResolver, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleResolver{store: store, logger: logger}, nil
}

// CurrentRole returns the role of the persisted session.
func (r *RoleResolver) CurrentRole(ctx context.Context) (session.Role, bool) {
	s, err := r.store.Load(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "session unavailable while resolving role", "error", err)
		return "", false
	}
	if s == nil {
		return "", false
	}
	return s.Role, true
}

// HasRole reports whether the persisted session has role.
func (r *RoleResolver) HasRole(ctx context.Context, role session.Role) bool {
	current, ok := r.CurrentRole(ctx)
	return ok && current == role
}

// IsAuthenticated reports whether a complete session or a bare token is
// present.
func (r *RoleResolver) IsAuthenticated(ctx context.Context) bool {
	if _, ok := r.CurrentRole(ctx); ok {
		return true
	}
	token, err := r.store.Token(ctx)
	return err == nil && token != ""
}

// Session returns the complete persisted session, or nil when there is none.
// A bare token without a profile is not a session.
func (r *RoleResolver) Session(ctx context.Context) (*session.Session, error) {
	s, err := r.store.Load(ctx)
	if err != nil {
		return nil, failWrap(KindCollaboratorFailure, "AUTH_SESSION_UNAVAILABLE", ReasonSessionStorage, err)
	}
	return s, nil
}

// RequireRole returns the session if it is complete and has role.
func (r *RoleResolver) RequireRole(ctx context.Context, role session.Role) (*session.Session, error) {
	s, err := r.store.Load(ctx)
	if err != nil {
		return nil, failWrap(KindCollaboratorFailure, "AUTH_SESSION_UNAVAILABLE", ReasonSessionStorage, err)
	}
	if s == nil {
		return nil, fail(KindUnauthorized, "AUTH_NO_SESSION", ReasonNoSession)
	}
	if s.Role != role {
		return nil, &Failure{
			Kind:   KindUnauthorized,
			Reason: ReasonForbidden,
			Err: oops.Code("AUTH_ROLE_FORBIDDEN").
				With("required", role.String()).
				With("actual", s.Role.String()).
				Errorf("session role does not match"),
		}
	}
	return s, nil
}
