// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package sessiontest holds a conformance suite shared by session backends.
package sessiontest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// RunBackendSuite exercises the Backend contract against a fresh backend
// returned by newBackend for every subtest.
func RunBackendSuite(t *testing.T, newBackend func(t *testing.T) session.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("get on empty backend returns no keys", func(t *testing.T) {
		b := newBackend(t)
		got, err := b.Get(ctx, session.AllKeys...)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("apply writes every put", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Apply(ctx, session.Batch{Put: map[string]string{
			session.KeyToken: "t1",
			session.KeyRole:  "admin",
		}}))

		got, err := b.Get(ctx, session.KeyToken, session.KeyRole, session.KeyUser)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{session.KeyToken: "t1", session.KeyRole: "admin"}, got)
	})

	t.Run("apply deletes before it writes", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Apply(ctx, session.Batch{Put: map[string]string{
			session.KeyToken:      "old",
			session.KeyAdminToken: "old",
		}}))
		require.NoError(t, b.Apply(ctx, session.Batch{
			Put:    map[string]string{session.KeyToken: "new"},
			Delete: []string{session.KeyToken, session.KeyAdminToken},
		}))

		got, err := b.Get(ctx, session.KeyToken, session.KeyAdminToken)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{session.KeyToken: "new"}, got)
	})

	t.Run("deleting missing keys is not an error", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Apply(ctx, session.Batch{Delete: session.AllKeys}))
	})

	t.Run("ping succeeds", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Ping(ctx))
	})

	t.Run("store round trip", func(t *testing.T) {
		store, err := session.NewStore(newBackend(t))
		require.NoError(t, err)

		want, err := session.New("inv-7", session.RoleInvestor, "tok-7", session.Profile{
			Name:             "Wanjiru",
			Email:            "w@example.com",
			InvestmentAmount: 150000,
		})
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		require.NoError(t, store.Clear(ctx))
		got, err = store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
