// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// RegistrationAPI is the identity backend surface used by investor
// onboarding.
type RegistrationAPI interface {
	GetPendingInvestor(ctx context.Context, invitationID string) (*identity.PendingInvestorResponse, error)
	CompleteInvestorRegistration(
		ctx context.Context, invitationID string, req identity.CompleteRegistrationRequest,
	) (*identity.CompleteRegistrationResponse, error)
}

// SessionAdopter persists a session produced outside the login flow.
type SessionAdopter interface {
	AdoptExternalSession(ctx context.Context, payload identity.SessionPayload) (*session.Session, error)
}

// InvestorSummary is the pending investor shown before registration.
type InvestorSummary struct {
	InvitationID     string
	Name             string
	Email            string
	Phone            string
	InvestmentAmount float64
}

// RegistrationForm is the completed registration form.
type RegistrationForm struct {
	InvitationID      string
	TemporaryPassword string
	Username          string
	Password          string
	ConfirmPassword   string
}

// RegistrationHandshake turns an investor invitation into an account and
// an authenticated session.
type RegistrationHandshake struct {
	api      RegistrationAPI
	sessions SessionAdopter
	opts     options

	mu       sync.Mutex
	inFlight bool
}

// NewRegistrationHandshake creates a RegistrationHandshake.
func NewRegistrationHandshake(api RegistrationAPI, sessions SessionAdopter, opts ...Option) (*RegistrationHandshake, error) {
	if api == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("registration api is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session adopter is required")
	}
	return &RegistrationHandshake{api: api, sessions: sessions, opts: buildOptions(opts)}, nil
}

// FetchPendingInvestor looks up an invitation. It has no side effects.
func (h *RegistrationHandshake) FetchPendingInvestor(ctx context.Context, invitationID string) (_ *InvestorSummary, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.registration.fetch")
	defer func() {
		RecordFlow(FlowInvitation, err, time.Since(start))
		endSpan(span, err)
	}()

	invitationID = strings.TrimSpace(invitationID)
	if invitationID == "" {
		return nil, fail(KindValidation, "REGISTRATION_INVITATION_REQUIRED", "An invitation ID is required.")
	}
	span.SetAttributes(attribute.String("registration.invitation_id", invitationID))

	resp, err := h.api.GetPendingInvestor(ctx, invitationID)
	if err != nil {
		return nil, collaboratorFailure("REGISTRATION_FETCH_FAILED", err, "invitation_id", invitationID)
	}
	if !resp.Success {
		return nil, rejection("REGISTRATION_INVITATION_NOT_FOUND", resp.Envelope, KindNotFoundOrExpired)
	}
	inv := resp.Investor
	return &InvestorSummary{
		InvitationID:     invitationID,
		Name:             inv.Name,
		Email:            inv.Email,
		Phone:            inv.Phone,
		InvestmentAmount: inv.InvestmentAmount,
	}, nil
}

// CompleteRegistration creates the investor account and adopts the
// returned session. A rejected temporary password or consumed invitation is
// reported with the server's message and is not retried.
func (h *RegistrationHandshake) CompleteRegistration(ctx context.Context, form RegistrationForm) (_ *session.Session, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.registration.complete")
	defer func() {
		RecordFlow(FlowRegistration, err, time.Since(start))
		endSpan(span, err)
	}()

	if f := requireFields(form.InvitationID, form.TemporaryPassword, form.Username, form.Password, form.ConfirmPassword); f != nil {
		return nil, f
	}
	username := strings.TrimSpace(form.Username)
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return nil, fail(KindValidation, "REGISTRATION_USERNAME_TOO_SHORT", "Username must be at least 3 characters long.")
	}
	if f := checkPasswords(form.Password, form.ConfirmPassword); f != nil {
		return nil, f
	}

	if !h.tryBegin() {
		return nil, fail(KindConflict, "REGISTRATION_IN_PROGRESS", ReasonInProgress)
	}
	defer h.end()

	invitationID := strings.TrimSpace(form.InvitationID)
	resp, err := h.api.CompleteInvestorRegistration(ctx, invitationID, identity.CompleteRegistrationRequest{
		TemporaryPassword: strings.TrimSpace(form.TemporaryPassword),
		Username:          username,
		Password:          form.Password,
		ConfirmPassword:   form.ConfirmPassword,
	})
	if err != nil {
		return nil, collaboratorFailure("REGISTRATION_COMPLETE_FAILED", err, "invitation_id", invitationID)
	}
	if !resp.Success {
		return nil, rejection("REGISTRATION_REJECTED", resp.Envelope, KindValidation)
	}

	s, err := h.sessions.AdoptExternalSession(ctx, resp.SessionPayload())
	if err != nil {
		return nil, err //nolint:wrapcheck // AdoptExternalSession returns a Failure
	}
	h.opts.logger.InfoContext(ctx, "investor registration completed", "subject_id", s.SubjectID)
	return s, nil
}

func (h *RegistrationHandshake) tryBegin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFlight {
		return false
	}
	h.inFlight = true
	return true
}

func (h *RegistrationHandshake) end() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight = false
}
