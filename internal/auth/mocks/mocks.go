// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package mocks provides testify mocks for the auth collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockIdentityAPI mocks every identity client operation the auth
// components use.
type MockIdentityAPI struct {
	mock.Mock
}

// NewMockIdentityAPI creates a mock whose expectations are asserted when
// the test ends.
func NewMockIdentityAPI(t testingT) *MockIdentityAPI {
	m := &MockIdentityAPI{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIdentityAPI) Login(ctx context.Context, username, password string) (*identity.LoginResponse, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.LoginResponse), args.Error(1)
}

func (m *MockIdentityAPI) ForgotPassword(ctx context.Context, email string) (*identity.ForgotPasswordResponse, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.ForgotPasswordResponse), args.Error(1)
}

func (m *MockIdentityAPI) ValidateResetToken(ctx context.Context, token string) (*identity.ValidateResetTokenResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.ValidateResetTokenResponse), args.Error(1)
}

func (m *MockIdentityAPI) ResetPassword(ctx context.Context, req identity.ResetPasswordRequest) (*identity.ResetPasswordResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.ResetPasswordResponse), args.Error(1)
}

func (m *MockIdentityAPI) GetPendingInvestor(ctx context.Context, invitationID string) (*identity.PendingInvestorResponse, error) {
	args := m.Called(ctx, invitationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.PendingInvestorResponse), args.Error(1)
}

func (m *MockIdentityAPI) CompleteInvestorRegistration(
	ctx context.Context, invitationID string, req identity.CompleteRegistrationRequest,
) (*identity.CompleteRegistrationResponse, error) {
	args := m.Called(ctx, invitationID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.CompleteRegistrationResponse), args.Error(1)
}

// MockMailer mocks mailer.Mailer.
type MockMailer struct {
	mock.Mock
}

// NewMockMailer creates a mock whose expectations are asserted when the
// test ends.
func NewMockMailer(t testingT) *MockMailer {
	m := &MockMailer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// MockSessionAdopter mocks auth.SessionAdopter.
type MockSessionAdopter struct {
	mock.Mock
}

// NewMockSessionAdopter creates a mock whose expectations are asserted
// when the test ends.
func NewMockSessionAdopter(t testingT) *MockSessionAdopter {
	m := &MockSessionAdopter{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionAdopter) AdoptExternalSession(ctx context.Context, payload identity.SessionPayload) (*session.Session, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}
