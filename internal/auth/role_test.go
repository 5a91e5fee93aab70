// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
	"github.com/JosephNgugi254/Nagolie-project-sub001/pkg/errutil"
)

func TestParseRoleFallback(t *testing.T) {
	tests := []struct {
		in   string
		want auth.RoleFallback
		err  bool
	}{
		{in: "", want: auth.FallbackReject},
		{in: "reject", want: auth.FallbackReject},
		{in: " Admin ", want: auth.FallbackAdmin},
		{in: "investor", err: true},
	}
	for _, tt := range tests {
		got, err := auth.ParseRoleFallback(tt.in)
		if tt.err {
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_ROLE_FALLBACK_INVALID")
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRedirectFor(t *testing.T) {
	assert.Equal(t, auth.RedirectInvestor, auth.RedirectFor(session.RoleInvestor))
	assert.Equal(t, auth.RedirectAdmin, auth.RedirectFor(session.RoleAdmin))
}

func TestNewRoleResolver_NilStore(t *testing.T) {
	_, err := auth.NewRoleResolver(nil, nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CONFIG")
}

func TestRoleResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		store, _ := newMemoryStore(t)
		r, err := auth.NewRoleResolver(store, discardLogger())
		require.NoError(t, err)

		_, ok := r.CurrentRole(ctx)
		assert.False(t, ok)
		assert.False(t, r.IsAuthenticated(ctx))
		got, err := r.Session(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
		_, err = r.RequireRole(ctx, session.RoleAdmin)
		f := requireFailure(t, err, auth.KindUnauthorized)
		assert.Equal(t, auth.ReasonNoSession, f.Reason)
	})

	t.Run("complete session", func(t *testing.T) {
		store, _ := newMemoryStore(t)
		s, err := session.New("inv-1", session.RoleInvestor, "tok", session.Profile{Name: "Ann"})
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, s))
		r, err := auth.NewRoleResolver(store, discardLogger())
		require.NoError(t, err)

		role, ok := r.CurrentRole(ctx)
		require.True(t, ok)
		assert.Equal(t, session.RoleInvestor, role)
		assert.True(t, r.HasRole(ctx, session.RoleInvestor))
		assert.False(t, r.HasRole(ctx, session.RoleAdmin))
		assert.True(t, r.IsAuthenticated(ctx))

		got, err := r.RequireRole(ctx, session.RoleInvestor)
		require.NoError(t, err)
		assert.Equal(t, "inv-1", got.SubjectID)

		current, err := r.Session(ctx)
		require.NoError(t, err)
		assert.Equal(t, s, current)

		_, err = r.RequireRole(ctx, session.RoleAdmin)
		f := requireFailure(t, err, auth.KindUnauthorized)
		assert.Equal(t, auth.ReasonForbidden, f.Reason)
		errutil.AssertErrorCode(t, err, "AUTH_ROLE_FORBIDDEN")
	})

	t.Run("bare token passes only the weak tier", func(t *testing.T) {
		store, backend := newMemoryStore(t)
		backend.Set(session.KeyToken, "tok")
		r, err := auth.NewRoleResolver(store, discardLogger())
		require.NoError(t, err)

		assert.True(t, r.IsAuthenticated(ctx))
		_, ok := r.CurrentRole(ctx)
		assert.False(t, ok)
		got, err := r.Session(ctx)
		require.NoError(t, err)
		assert.Nil(t, got, "a bare token is not a session")
		for _, role := range []session.Role{session.RoleAdmin, session.RoleInvestor} {
			_, err := r.RequireRole(ctx, role)
			requireFailure(t, err, auth.KindUnauthorized)
		}
	})

	t.Run("unreadable store", func(t *testing.T) {
		store, err := session.NewStore(&failingBackend{MemoryBackend: session.NewMemoryBackend(), getErr: errors.New("io error")})
		require.NoError(t, err)
		r, err := auth.NewRoleResolver(store, discardLogger())
		require.NoError(t, err)

		assert.False(t, r.IsAuthenticated(ctx))
		_, err = r.RequireRole(ctx, session.RoleAdmin)
		requireFailure(t, err, auth.KindCollaboratorFailure)
		_, err = r.Session(ctx)
		f := requireFailure(t, err, auth.KindCollaboratorFailure)
		assert.Equal(t, auth.ReasonSessionStorage, f.Reason)
	})
}
