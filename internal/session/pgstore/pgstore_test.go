// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package pgstore

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
	"github.com/JosephNgugi254/Nagolie-project-sub001/pkg/errutil"
)

func TestBackend_Get(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      map[string]string
		wantCode  string
		wantErr   bool
	}{
		{
			name: "returns stored keys",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"key", "value"}).
					AddRow("token", "t1").
					AddRow("role", "admin")
				mock.ExpectQuery(`SELECT key, value FROM client_sessions`).
					WithArgs("kiosk-1", []string{"token", "role", "user"}).
					WillReturnRows(rows)
			},
			want: map[string]string{"token": "t1", "role": "admin"},
		},
		{
			name: "missing schema is flagged",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT key, value FROM client_sessions`).
					WithArgs("kiosk-1", []string{"token", "role", "user"}).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedTable})
			},
			wantErr:  true,
			wantCode: "SESSION_SCHEMA_MISSING",
		},
		{
			name: "connection error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT key, value FROM client_sessions`).
					WithArgs("kiosk-1", []string{"token", "role", "user"}).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			b := New(mock, "kiosk-1")
			got, err := b.Get(context.Background(), "token", "role", "user")

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantCode != "" {
					errutil.AssertErrorCode(t, err, tt.wantCode)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestBackend_Apply(t *testing.T) {
	batch := session.Batch{
		Put:    map[string]string{"token": "t1", "role": "investor"},
		Delete: []string{"adminToken", "adminUser"},
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "deletes then upserts in one transaction",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM client_sessions`).
					WithArgs(DefaultNamespace, []string{"adminToken", "adminUser"}).
					WillReturnResult(pgxmock.NewResult("DELETE", 2))
				mock.ExpectExec(`INSERT INTO client_sessions`).
					WithArgs(DefaultNamespace, "role", "investor").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO client_sessions`).
					WithArgs(DefaultNamespace, "token", "t1").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "rolls back when an upsert fails",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM client_sessions`).
					WithArgs(DefaultNamespace, []string{"adminToken", "adminUser"}).
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
				mock.ExpectExec(`INSERT INTO client_sessions`).
					WithArgs(DefaultNamespace, "role", "investor").
					WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "begin failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
			},
			wantErr: true,
		},
		{
			name: "commit failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM client_sessions`).
					WithArgs(DefaultNamespace, []string{"adminToken", "adminUser"}).
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
				mock.ExpectExec(`INSERT INTO client_sessions`).
					WithArgs(DefaultNamespace, "role", "investor").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO client_sessions`).
					WithArgs(DefaultNamespace, "token", "t1").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			err = New(mock, "").Apply(context.Background(), batch)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestBackend_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	b := New(mock, "")
	require.NoError(t, b.Ping(context.Background()))
	require.Error(t, b.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreOverPostgres_SaveIsOneTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM client_sessions`).
		WithArgs(DefaultNamespace, []string{session.KeyInvestorToken, session.KeyInvestorUser}).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	// Puts are written in key order; profile JSON is checked elsewhere.
	for _, put := range []struct {
		key   string
		value any
	}{
		{session.KeyAdminToken, "tok"},
		{session.KeyAdminUser, pgxmock.AnyArg()},
		{session.KeyRole, "admin"},
		{session.KeyToken, "tok"},
		{session.KeyUser, pgxmock.AnyArg()},
	} {
		mock.ExpectExec(`INSERT INTO client_sessions`).
			WithArgs(DefaultNamespace, put.key, put.value).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	store, err := session.NewStore(New(mock, ""))
	require.NoError(t, err)
	sess, err := session.New("adm-1", session.RoleAdmin, "tok", session.Profile{Name: "Admin"})
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}
