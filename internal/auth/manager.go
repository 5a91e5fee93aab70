// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

var tracer = otel.Tracer("nagolie/auth")

// Authenticator verifies credentials against the identity backend.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*identity.LoginResponse, error)
}

// Phase is the coarse authentication state of a Manager.
type Phase int

// Manager phases.
const (
	PhaseUnauthenticated Phase = iota
	PhaseAuthenticating
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// State is a snapshot of the manager. Role is set only when authenticated.
type State struct {
	Phase Phase
	Role  session.Role
}

func (s State) String() string {
	if s.Phase == PhaseAuthenticated {
		return s.Phase.String() + "(" + s.Role.String() + ")"
	}
	return s.Phase.String()
}

// Credentials are the username and password entered by the user.
type Credentials struct {
	Username string
	Password string
}

// LoginResult is a successful login.
type LoginResult struct {
	Session  *session.Session
	Redirect string
}

// Manager owns the client session. All writes to the session store go
// through it.
type Manager struct {
	store SessionStore
	api   Authenticator
	opts  options

	mu         sync.Mutex
	phase      Phase
	current    *session.Session
	loggingIn  bool
	generation uint64
}

// NewManager creates a Manager.
func NewManager(store SessionStore, api Authenticator, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}
	if api == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("authenticator is required")
	}
	o := buildOptions(opts)
	if _, err := ParseRoleFallback(string(o.fallback)); err != nil {
		return nil, err
	}
	return &Manager{store: store, api: api, opts: o}, nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{Phase: m.phase}
	if m.phase == PhaseAuthenticated && m.current != nil {
		st.Role = m.current.Role
	}
	return st
}

// Current returns a copy of the in-memory session, or nil.
func (m *Manager) Current() *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.WithProfile(session.Profile{})
}

// Restore loads the persisted session at startup. A missing or unreadable
// session leaves the manager unauthenticated.
func (m *Manager) Restore(ctx context.Context) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Load(ctx)
	if err != nil {
		m.current, m.phase = nil, PhaseUnauthenticated
		return nil, failWrap(KindCollaboratorFailure, "AUTH_RESTORE_FAILED", ReasonSessionStorage, err)
	}
	if s == nil {
		m.current, m.phase = nil, PhaseUnauthenticated
		return nil, nil
	}
	m.current, m.phase = s, PhaseAuthenticated
	return s, nil
}

// Login authenticates against the identity backend and persists the
// resulting session. Only one login may be in flight at a time.
func (m *Manager) Login(ctx context.Context, creds Credentials) (_ *LoginResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.login")
	defer func() {
		RecordFlow(FlowLogin, err, time.Since(start))
		endSpan(span, err)
	}()

	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, fail(KindValidation, "AUTH_FIELDS_REQUIRED", "Please enter both username and password.")
	}

	gen, f := m.beginLogin()
	if f != nil {
		return nil, f
	}
	defer m.endLogin(gen)

	resp, err := m.api.Login(ctx, username, creds.Password)
	if err != nil {
		return nil, collaboratorFailure("AUTH_LOGIN_UNAVAILABLE", err, "operation", "login")
	}
	if !resp.Success {
		return nil, rejection("AUTH_INVALID_CREDENTIALS", resp.Envelope, KindUnauthorized)
	}

	s, f := m.sessionFrom(ctx, resp.SessionPayload())
	if f != nil {
		return nil, f
	}
	span.SetAttributes(attribute.String("auth.role", s.Role.String()))

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		m.opts.logger.InfoContext(ctx, "discarding login result superseded by a newer session change")
		return nil, fail(KindConflict, "AUTH_LOGIN_SUPERSEDED", ReasonSuperseded)
	}
	if err := m.store.Save(ctx, s); err != nil {
		m.current, m.phase = nil, PhaseUnauthenticated
		return nil, failWrap(KindCollaboratorFailure, "AUTH_SESSION_PERSIST_FAILED", ReasonSessionStorage, err)
	}
	m.current, m.phase = s, PhaseAuthenticated

	redirect := resp.Redirect
	if redirect == "" {
		redirect = RedirectFor(s.Role)
	}
	m.opts.logger.InfoContext(ctx, "login succeeded", "subject_id", s.SubjectID, "role", s.Role.String())
	return &LoginResult{Session: s, Redirect: redirect}, nil
}

func (m *Manager) beginLogin() (uint64, *Failure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loggingIn {
		return 0, fail(KindConflict, "LOGIN_IN_PROGRESS", ReasonInProgress)
	}
	m.loggingIn = true
	m.phase = PhaseAuthenticating
	return m.generation, nil
}

// endLogin clears the in-flight flag and, if the login did not produce a
// session, returns the phase to match what is held.
func (m *Manager) endLogin(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggingIn = false
	if m.generation == gen && m.phase == PhaseAuthenticating {
		if m.current != nil {
			m.phase = PhaseAuthenticated
		} else {
			m.phase = PhaseUnauthenticated
		}
	}
}

// Logout clears the session locally. It never contacts the identity backend,
// and the in-memory session is dropped even if the store cannot be cleared.
// A store with tombstones absorbs session backend outages, so only a local
// storage failure is returned.
func (m *Manager) Logout(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { RecordFlow(FlowLogout, err, time.Since(start)) }()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.current, m.phase = nil, PhaseUnauthenticated
	if err := m.store.Clear(ctx); err != nil {
		return failWrap(KindCollaboratorFailure, "AUTH_LOGOUT_FAILED", ReasonSessionStorage, err)
	}
	return nil
}

// AdoptExternalSession persists a session obtained outside Login, such as
// the result of completing a registration.
func (m *Manager) AdoptExternalSession(ctx context.Context, payload identity.SessionPayload) (_ *session.Session, err error) {
	start := time.Now()
	defer func() { RecordFlow(FlowAdopt, err, time.Since(start)) }()

	if payload.Token == "" || payload.User.ID == "" {
		return nil, fail(KindValidation, "AUTH_SESSION_PAYLOAD_INVALID", "The server returned an incomplete session.")
	}
	s, f := m.sessionFrom(ctx, payload)
	if f != nil {
		return nil, f
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	if err := m.store.Save(ctx, s); err != nil {
		return nil, failWrap(KindCollaboratorFailure, "AUTH_SESSION_PERSIST_FAILED", ReasonSessionStorage, err)
	}
	m.current, m.phase = s, PhaseAuthenticated
	m.opts.logger.InfoContext(ctx, "adopted external session", "subject_id", s.SubjectID, "role", s.Role.String())
	return s, nil
}

// UpdateProfile merges update into the profile of the current session. The
// role and token are never changed.
func (m *Manager) UpdateProfile(ctx context.Context, update session.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fail(KindUnauthorized, "NO_SESSION", ReasonNoSession)
	}
	next := m.current.WithProfile(update)
	if err := m.store.Save(ctx, next); err != nil {
		return failWrap(KindCollaboratorFailure, "AUTH_SESSION_PERSIST_FAILED", ReasonSessionStorage, err)
	}
	m.current = next
	return nil
}

func (m *Manager) sessionFrom(ctx context.Context, p identity.SessionPayload) (*session.Session, *Failure) {
	role, f := resolveRole(ctx, p.User.Role, m.opts.fallback, m.opts.logger)
	if f != nil {
		return nil, f
	}
	s, err := session.New(p.User.ID, role, p.Token, profileFrom(p.User))
	if err != nil {
		return nil, failWrap(KindCollaboratorFailure, "AUTH_SESSION_PAYLOAD_INVALID", ReasonServerUnreachable, err)
	}
	return s, nil
}

func profileFrom(u identity.User) session.Profile {
	return session.Profile{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Name:             u.Name,
		Phone:            u.Phone,
		InvestmentAmount: u.InvestmentAmount,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	span.End()
}
