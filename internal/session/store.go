// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Store persists the current Session on a Backend.
//
// Every Save writes the unscoped record and the role-scoped legacy copy in a
// single batch and removes the other role's copy. Load reads the unscoped
// record first and fails closed: anything it cannot decode is cleared and
// reported as absent.
//
// With a tombstone backend, a Clear that cannot reach the session backend is
// recorded locally instead of failing. Until the remote record is removed,
// Load and Token treat it as absent.
type Store struct {
	backend    Backend
	tombstones Backend
	logger     *slog.Logger
	now        func() time.Time
}

// KeyLogoutPending marks, in the tombstone backend, a logout whose remote
// clear has not been applied yet.
const KeyLogoutPending = "logoutPending"

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for repair and corruption warnings.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTombstones records logouts that could not reach the backend in local,
// which should be on local media.
func WithTombstones(local Backend) StoreOption {
	return func(s *Store) { s.tombstones = local }
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("backend is required")
	}
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save persists sess atomically.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").With("operation", "validate").Wrap(err)
	}

	user, err := json.Marshal(sess.Profile)
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").With("operation", "encode profile").Wrap(err)
	}

	tokenKey, userKey := scopedKeys(sess.Role)
	otherToken, otherUser := scopedKeys(otherRole(sess.Role))

	batch := Batch{
		Put: map[string]string{
			KeyToken: sess.Token,
			KeyUser:  string(user),
			KeyRole:  string(sess.Role),
			tokenKey: sess.Token,
			userKey:  string(user),
		},
		Delete: []string{otherToken, otherUser},
	}
	if err := s.backend.Apply(ctx, batch); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "apply batch").
			With("role", string(sess.Role)).
			Wrap(err)
	}
	// A pending logout left in place would hide the new session on the next Load.
	if err := s.dropTombstone(ctx); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").With("operation", "drop tombstone").Wrap(err)
	}
	return nil
}

// Load restores the persisted session. It returns (nil, nil) when no complete
// session exists. An error is returned only when the backend itself fails.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	pending, err := s.logoutPending(ctx)
	if err != nil {
		return nil, err
	}
	if pending {
		s.retryPendingClear(ctx)
		return nil, nil
	}

	rec, err := s.backend.Get(ctx, AllKeys...)
	if err != nil {
		return nil, oops.Code("SESSION_LOAD_FAILED").With("operation", "read record").Wrap(err)
	}

	token, user, role := rec[KeyToken], rec[KeyUser], rec[KeyRole]

	switch {
	case token == "" && user == "" && role == "":
		return s.loadLegacy(ctx, rec)
	case token != "" && user == "":
		// Token written before the profile settled: weakly authenticated only.
		return nil, nil
	case token == "":
		s.discard(ctx, "profile or role without token")
		return nil, nil
	}

	sess, err := decode(token, user, role)
	if err != nil {
		s.logger.WarnContext(ctx, "persisted session is corrupt, clearing",
			"error", err.Error())
		s.discard(ctx, "decode failed")
		return nil, nil
	}

	if needsRepair(rec, sess) {
		if err := s.Save(ctx, sess); err != nil {
			s.logger.WarnContext(ctx, "best-effort session repair failed",
				"operation", "repair_scoped_copy",
				"error", err.Error())
		} else {
			s.logger.DebugContext(ctx, "repaired role-scoped session copy", "role", string(sess.Role))
		}
	}
	return sess, nil
}

// Clear removes every persisted key, including the role-scoped copies. When
// the backend fails and a tombstone backend is configured, the logout is
// recorded there and Clear succeeds.
func (s *Store) Clear(ctx context.Context) error {
	err := s.backend.Apply(ctx, Batch{Delete: AllKeys})
	if err == nil {
		if derr := s.dropTombstone(ctx); derr != nil {
			s.logger.WarnContext(ctx, "best-effort tombstone removal failed",
				"operation", "drop_tombstone",
				"error", derr.Error())
		}
		return nil
	}
	if s.tombstones == nil {
		return oops.Code("SESSION_CLEAR_FAILED").With("operation", "apply batch").Wrap(err)
	}
	mark := Batch{Put: map[string]string{KeyLogoutPending: s.now().UTC().Format(time.RFC3339)}}
	if terr := s.tombstones.Apply(ctx, mark); terr != nil {
		return oops.Code("SESSION_CLEAR_FAILED").
			With("operation", "record tombstone").
			With("backend_error", err.Error()).
			Wrap(terr)
	}
	s.logger.WarnContext(ctx, "session backend unreachable, logout recorded locally",
		"error", err.Error())
	return nil
}

// Token returns the bare credential token, if any, without requiring a
// complete session. The unscoped token wins; a legacy token is returned only
// when exactly one role-scoped token exists.
func (s *Store) Token(ctx context.Context) (string, error) {
	pending, err := s.logoutPending(ctx)
	if err != nil {
		return "", err
	}
	if pending {
		return "", nil
	}
	rec, err := s.backend.Get(ctx, KeyToken, KeyAdminToken, KeyInvestorToken)
	if err != nil {
		return "", oops.Code("SESSION_LOAD_FAILED").With("operation", "read token").Wrap(err)
	}
	if t := rec[KeyToken]; t != "" {
		return t, nil
	}
	admin, investor := rec[KeyAdminToken], rec[KeyInvestorToken]
	if (admin == "") != (investor == "") {
		return admin + investor, nil
	}
	return "", nil
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return oops.Code("SESSION_BACKEND_UNAVAILABLE").Wrap(err)
	}
	return nil
}

func (s *Store) logoutPending(ctx context.Context) (bool, error) {
	if s.tombstones == nil {
		return false, nil
	}
	rec, err := s.tombstones.Get(ctx, KeyLogoutPending)
	if err != nil {
		return false, oops.Code("SESSION_LOAD_FAILED").With("operation", "read tombstone").Wrap(err)
	}
	return rec[KeyLogoutPending] != "", nil
}

// retryPendingClear applies a logout recorded while the backend was down.
// The tombstone stays until the remote clear succeeds.
func (s *Store) retryPendingClear(ctx context.Context) {
	if err := s.backend.Apply(ctx, Batch{Delete: AllKeys}); err != nil {
		s.logger.WarnContext(ctx, "pending logout still not applied",
			"operation", "retry_clear",
			"error", err.Error())
		return
	}
	if err := s.dropTombstone(ctx); err != nil {
		s.logger.WarnContext(ctx, "best-effort tombstone removal failed",
			"operation", "drop_tombstone",
			"error", err.Error())
		return
	}
	s.logger.InfoContext(ctx, "applied pending logout")
}

func (s *Store) dropTombstone(ctx context.Context) error {
	if s.tombstones == nil {
		return nil
	}
	return s.tombstones.Apply(ctx, Batch{Delete: []string{KeyLogoutPending}}) //nolint:wrapcheck // callers wrap
}

// loadLegacy adopts a record written only under role-scoped keys.
// Exactly one complete copy is required; anything else is absent.
func (s *Store) loadLegacy(ctx context.Context, rec map[string]string) (*Session, error) {
	var found []*Session
	for _, r := range []Role{RoleAdmin, RoleInvestor} {
		tokenKey, userKey := scopedKeys(r)
		if rec[tokenKey] == "" || rec[userKey] == "" {
			continue
		}
		sess, err := decode(rec[tokenKey], rec[userKey], string(r))
		if err != nil {
			s.logger.WarnContext(ctx, "legacy session copy is corrupt, clearing",
				"role", string(r),
				"error", err.Error())
			s.discard(ctx, "legacy decode failed")
			return nil, nil
		}
		found = append(found, sess)
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		sess := found[0]
		if err := s.Save(ctx, sess); err != nil {
			s.logger.WarnContext(ctx, "best-effort legacy session migration failed",
				"operation", "migrate_legacy",
				"error", err.Error())
		} else {
			s.logger.InfoContext(ctx, "migrated legacy session record", "role", string(sess.Role))
		}
		return sess, nil
	default:
		s.discard(ctx, "conflicting legacy copies")
		return nil, nil
	}
}

// discard clears the record after corruption. Failure is logged only.
func (s *Store) discard(ctx context.Context, reason string) {
	s.logger.WarnContext(ctx, "discarding persisted session", "reason", reason)
	if err := s.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "best-effort session clear failed",
			"operation", "clear_corrupt",
			"error", err.Error())
	}
}

func decode(token, user, role string) (*Session, error) {
	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.Unmarshal([]byte(user), &profile); err != nil {
		return nil, oops.Code("SESSION_CORRUPT").With("operation", "decode profile").Wrap(err)
	}
	if profile.ID == "" {
		return nil, oops.Code("SESSION_CORRUPT").Errorf("profile has no id")
	}
	return New(profile.ID, r, token, profile)
}

// needsRepair reports whether the scoped copies disagree with the
// authoritative unscoped record.
func needsRepair(rec map[string]string, sess *Session) bool {
	tokenKey, userKey := scopedKeys(sess.Role)
	if rec[tokenKey] != sess.Token || rec[userKey] != rec[KeyUser] {
		return true
	}
	otherToken, otherUser := scopedKeys(otherRole(sess.Role))
	_, hasToken := rec[otherToken]
	_, hasUser := rec[otherUser]
	return hasToken || hasUser
}

func otherRole(r Role) Role {
	if r == RoleInvestor {
		return RoleAdmin
	}
	return RoleInvestor
}
