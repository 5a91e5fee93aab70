// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package identitytest provides an in-memory Identity API for tests.
//
// The fake enforces the server-side rules the client relies on: reset tokens
// live 24 hours and are consumed once, a wrong security answer does not
// consume the token, and temporary credentials are single use.
package identitytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
)

// ResetTokenLifetime is how long an issued reset token stays valid.
const ResetTokenLifetime = 24 * time.Hour

// Messages returned by the fake. Tests compare against them.
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgResetGeneric       = "If that email is registered, you will receive reset instructions shortly."
	MsgTokenInvalid       = "Invalid or unknown reset token"
	MsgTokenExpired       = "This reset link has expired"
	MsgTokenUsed          = "This reset link has already been used"
	MsgWrongAnswer        = "Security answer is incorrect"
	MsgInviteNotFound     = "Invitation not found"
	MsgInviteUsed         = "This registration link has already been used"
	MsgTempPasswordWrong  = "Invalid temporary password"
	MsgUsernameTaken      = "Username already exists"
)

type account struct {
	user     identity.User
	username string
	password string
}

type resetToken struct {
	userID    string
	expiresAt time.Time
	consumed  bool
}

type invitation struct {
	investor     identity.Investor
	tempPassword string
	consumed     bool
}

// Server is a fake Identity API. The zero value is not usable; call New.
type Server struct {
	mu          sync.Mutex
	accounts    map[string]*account // by user ID
	tokens      map[string]*resetToken
	invitations map[string]*invitation
	calls       map[string]int
	faults      map[string]int
	omitRole    bool
	now         func() time.Time

	router chi.Router
}

// New creates an empty fake.
func New() *Server {
	s := &Server{
		accounts:    make(map[string]*account),
		tokens:      make(map[string]*resetToken),
		invitations: make(map[string]*invitation),
		calls:       make(map[string]int),
		faults:      make(map[string]int),
		now:         time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(identity.PathLogin, s.handle(identity.PathLogin, s.login))
	r.Post(identity.PathForgotPassword, s.handle(identity.PathForgotPassword, s.forgotPassword))
	r.Get(identity.PathValidateResetToken, s.handle(identity.PathValidateResetToken, s.validateResetToken))
	r.Post(identity.PathResetPassword, s.handle(identity.PathResetPassword, s.resetPassword))
	r.Get(identity.PathPendingInvestor, s.handle(identity.PathPendingInvestor, s.pendingInvestor))
	r.Post(identity.PathCompleteRegistration, s.handle(identity.PathCompleteRegistration, s.completeRegistration))
	s.router = r
	return s
}

// Handler returns the HTTP handler serving the fake API.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves the fake on a local port until the test ends and returns its URL.
func (s *Server) Start(tb testing.TB) string {
	tb.Helper()
	srv := httptest.NewServer(s.router)
	tb.Cleanup(srv.Close)
	return srv.URL
}

// AddUser registers an account. An empty user ID is generated.
func (s *Server) AddUser(username, password string, user identity.User) identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	if user.Username == "" {
		user.Username = username
	}
	s.accounts[user.ID] = &account{user: user, username: username, password: password}
	return user
}

// AddInvitation registers a pending investor with its temporary password.
func (s *Server) AddInvitation(id, tempPassword string, investor identity.Investor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if investor.ID == "" {
		investor.ID = id
	}
	s.invitations[id] = &invitation{investor: investor, tempPassword: tempPassword}
}

// SetNow replaces the clock used for token expiry.
func (s *Server) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// OmitRole makes login responses leave out the user's role, like older
// deployments of the API did.
func (s *Server) OmitRole(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitRole = omit
}

// FailWith makes every request to the route pattern answer with status
// until cleared with status 0.
func (s *Server) FailWith(pattern string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.faults, pattern)
		return
	}
	s.faults[pattern] = status
}

// Calls returns how many requests reached the route pattern.
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

// TotalCalls returns the number of requests across all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Password returns the current password of username.
func (s *Server) Password(username string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.byUsername(username); a != nil {
		return a.password, true
	}
	return "", false
}

func (s *Server) handle(pattern string, h func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[pattern]++
		status, faulty := s.faults[pattern]
		s.mu.Unlock()

		if faulty {
			writeJSON(w, status, map[string]any{"error": http.StatusText(status)})
			return
		}
		h(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req identity.LoginRequest
	if !readJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.byUsername(req.Username)
	if a == nil || a.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": MsgInvalidCredentials})
		return
	}

	user := a.user
	if s.omitRole {
		user.Role = ""
	}
	writeJSON(w, http.StatusOK, identity.LoginResponse{
		Envelope: identity.Envelope{Success: true},
		Token:    "tok-" + ulid.Make().String(),
		User:     user,
	})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req identity.ForgotPasswordRequest
	if !readJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := identity.ForgotPasswordResponse{
		Envelope: identity.Envelope{Success: true, Message: MsgResetGeneric},
	}
	if a := s.byEmail(req.Email); a != nil {
		token := strings.ToLower(ulid.Make().String())
		s.tokens[token] = &resetToken{userID: a.user.ID, expiresAt: s.now().Add(ResetTokenLifetime)}
		resp.EmailExists = true
		resp.ResetToken = token
		resp.DisplayName = displayName(a.user)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) validateResetToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, msg := s.checkToken(token)
	if t == nil {
		writeJSON(w, http.StatusBadRequest, identity.ValidateResetTokenResponse{
			Envelope: identity.Envelope{Error: msg},
		})
		return
	}
	a := s.accounts[t.userID]
	writeJSON(w, http.StatusOK, identity.ValidateResetTokenResponse{
		Envelope:     identity.Envelope{Success: true},
		Valid:        true,
		DisplayName:  displayName(a.user),
		ContactEmail: a.user.Email,
	})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req identity.ResetPasswordRequest
	if !readJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, msg := s.checkToken(req.Token)
	if t == nil {
		writeJSON(w, http.StatusGone, map[string]any{"error": msg})
		return
	}
	if req.NewPassword == "" || req.NewPassword != req.ConfirmPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Passwords do not match"})
		return
	}
	a := s.accounts[t.userID]
	if !answerMatches(req.SecurityAnswer, a.user.InvestmentAmount) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": MsgWrongAnswer})
		return
	}

	a.password = req.NewPassword
	t.consumed = true
	writeJSON(w, http.StatusOK, identity.ResetPasswordResponse{
		Envelope:    identity.Envelope{Success: true, Message: "Password has been reset"},
		Email:       a.user.Email,
		DisplayName: displayName(a.user),
	})
}

func (s *Server) pendingInvestor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "invitationID")

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[id]
	if !ok || inv.consumed {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": MsgInviteNotFound})
		return
	}
	writeJSON(w, http.StatusOK, identity.PendingInvestorResponse{
		Envelope: identity.Envelope{Success: true},
		Investor: inv.investor,
	})
}

func (s *Server) completeRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "invitationID")
	var req identity.CompleteRegistrationRequest
	if !readJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[id]
	switch {
	case !ok:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": MsgInviteNotFound})
		return
	case inv.consumed:
		writeJSON(w, http.StatusGone, map[string]any{"error": MsgInviteUsed})
		return
	case inv.tempPassword != req.TemporaryPassword:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": MsgTempPasswordWrong})
		return
	case s.byUsername(req.Username) != nil:
		writeJSON(w, http.StatusConflict, map[string]any{"error": MsgUsernameTaken})
		return
	}

	user := identity.User{
		ID:               inv.investor.ID,
		Username:         req.Username,
		Email:            inv.investor.Email,
		Name:             inv.investor.Name,
		Phone:            inv.investor.Phone,
		Role:             "investor",
		InvestmentAmount: inv.investor.InvestmentAmount,
	}
	s.accounts[user.ID] = &account{user: user, username: req.Username, password: req.Password}
	inv.consumed = true

	writeJSON(w, http.StatusOK, identity.CompleteRegistrationResponse{
		Envelope: identity.Envelope{Success: true, Message: "Registration complete"},
		Token:    "tok-" + ulid.Make().String(),
		Investor: inv.investor,
		User:     &user,
	})
}

// checkToken returns the live token or the reason it cannot be used.
// Callers hold s.mu.
func (s *Server) checkToken(token string) (*resetToken, string) {
	t, ok := s.tokens[token]
	switch {
	case !ok:
		return nil, MsgTokenInvalid
	case t.consumed:
		return nil, MsgTokenUsed
	case s.now().After(t.expiresAt):
		return nil, MsgTokenExpired
	}
	return t, ""
}

func (s *Server) byUsername(username string) *account {
	for _, a := range s.accounts {
		if a.username == username {
			return a
		}
	}
	return nil
}

func (s *Server) byEmail(email string) *account {
	for _, a := range s.accounts {
		if a.user.Email != "" && strings.EqualFold(a.user.Email, strings.TrimSpace(email)) {
			return a
		}
	}
	return nil
}

func displayName(u identity.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// answerMatches compares the security answer to the investment amount,
// ignoring currency prefixes and thousands separators.
func answerMatches(answer string, amount float64) bool {
	cleaned := strings.NewReplacer(",", "", " ", "", "KES", "", "Ksh", "", "KSh", "").Replace(strings.TrimSpace(answer))
	got, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return false
	}
	diff := got - amount
	return diff < 0.01 && diff > -0.01
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}
