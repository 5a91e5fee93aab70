// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package identity

// Envelope carries the success flag and user-facing failure text every
// Identity API response shares. The client collapses HTTP status codes into
// it: 2xx sets Success unless the body explicitly says otherwise, 4xx clears it.
type Envelope struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	// Status is the HTTP status the response arrived with.
	Status int `json:"-"`
}

func (e *Envelope) envelope() *Envelope { return e }

// Reason returns the server's failure text, preferring Error over Message.
func (e Envelope) Reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// User is the identity record of an authenticated subject.
type User struct {
	ID               string  `json:"id" jsonschema:"required,minLength=1"`
	Username         string  `json:"username,omitempty"`
	Email            string  `json:"email,omitempty"`
	Name             string  `json:"name,omitempty"`
	Phone            string  `json:"phone,omitempty"`
	Role             string  `json:"role,omitempty"`
	InvestmentAmount float64 `json:"investment_amount,omitempty"`
}

// Investor is the pending-investor record shown before registration.
type Investor struct {
	ID               string  `json:"id,omitempty"`
	Name             string  `json:"name" jsonschema:"required"`
	Email            string  `json:"email,omitempty"`
	Phone            string  `json:"phone,omitempty"`
	InvestmentAmount float64 `json:"investment_amount" jsonschema:"required,minimum=0"`
}

// SessionPayload is an established identity handed to the session manager.
type SessionPayload struct {
	Token    string
	User     User
	Redirect string
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Envelope
	Token    string `json:"token" jsonschema:"required,minLength=1"`
	User     User   `json:"user" jsonschema:"required"`
	Redirect string `json:"redirect,omitempty"`
}

// SessionPayload extracts the established identity.
func (r *LoginResponse) SessionPayload() SessionPayload {
	return SessionPayload{Token: r.Token, User: r.User, Redirect: r.Redirect}
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse reports whether a reset token was issued.
// ResetToken and DisplayName are present only when EmailExists is true.
type ForgotPasswordResponse struct {
	Envelope
	EmailExists bool   `json:"email_exists,omitempty"`
	ResetToken  string `json:"reset_token,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// ValidateResetTokenResponse is returned by the non-consuming token check.
type ValidateResetTokenResponse struct {
	Envelope
	Valid        bool   `json:"valid"`
	DisplayName  string `json:"display_name,omitempty"`
	ContactEmail string `json:"email,omitempty"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	SecurityAnswer  string `json:"security_answer"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPasswordResponse reports whether the password was changed.
type ResetPasswordResponse struct {
	Envelope
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// PendingInvestorResponse describes an outstanding invitation.
type PendingInvestorResponse struct {
	Envelope
	Investor Investor `json:"investor" jsonschema:"required"`
}

// CompleteRegistrationRequest exchanges a temporary credential for a permanent one.
type CompleteRegistrationRequest struct {
	TemporaryPassword string `json:"temporary_password"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ConfirmPassword   string `json:"confirm_password"`
}

// CompleteRegistrationResponse carries the new investor identity and token.
type CompleteRegistrationResponse struct {
	Envelope
	Token    string   `json:"token" jsonschema:"required,minLength=1"`
	Investor Investor `json:"investor" jsonschema:"required"`
	User     *User    `json:"user,omitempty"`
}

// SessionPayload extracts the established identity. When the API omits the
// user record it is derived from the investor record with the investor role.
func (r *CompleteRegistrationResponse) SessionPayload() SessionPayload {
	if r.User != nil {
		u := *r.User
		if u.Role == "" {
			u.Role = "investor"
		}
		return SessionPayload{Token: r.Token, User: u}
	}
	return SessionPayload{
		Token: r.Token,
		User: User{
			ID:               r.Investor.ID,
			Name:             r.Investor.Name,
			Email:            r.Investor.Email,
			Phone:            r.Investor.Phone,
			Role:             "investor",
			InvestmentAmount: r.Investor.InvestmentAmount,
		},
	}
}
