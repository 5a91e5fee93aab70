// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package session

import (
	"maps"
	"strings"

	"github.com/samber/oops"
)

// Role is the access class of an authenticated subject.
type Role string

// Known roles.
const (
	RoleAdmin    Role = "admin"
	RoleInvestor Role = "investor"
)

// ParseRole converts a wire value into a Role.
// Matching is case-insensitive; anything other than a known role is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleInvestor:
		return RoleInvestor, nil
	default:
		return "", oops.Code("SESSION_ROLE_INVALID").With("role", s).Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleInvestor
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Profile is the snapshot of the subject's identity returned by the Identity API.
type Profile struct {
	ID               string            `json:"id"`
	Username         string            `json:"username,omitempty"`
	Email            string            `json:"email,omitempty"`
	Name             string            `json:"name,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	InvestmentAmount float64           `json:"investment_amount,omitempty"`
	Attributes       map[string]string `json:"attributes,omitempty"`
}

// DisplayName returns the best human-readable name for the profile.
func (p Profile) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Username != "":
		return p.Username
	default:
		return p.Email
	}
}

// Merge returns p with every non-zero field of update applied.
// The ID never changes; attributes are merged key by key.
func (p Profile) Merge(update Profile) Profile {
	merged := p
	if update.Username != "" {
		merged.Username = update.Username
	}
	if update.Email != "" {
		merged.Email = update.Email
	}
	if update.Name != "" {
		merged.Name = update.Name
	}
	if update.Phone != "" {
		merged.Phone = update.Phone
	}
	if update.InvestmentAmount != 0 {
		merged.InvestmentAmount = update.InvestmentAmount
	}
	if len(update.Attributes) > 0 {
		attrs := make(map[string]string, len(p.Attributes)+len(update.Attributes))
		maps.Copy(attrs, p.Attributes)
		maps.Copy(attrs, update.Attributes)
		merged.Attributes = attrs
	}
	return merged.normalized()
}

// normalized returns p with its own copy of Attributes, nil when empty, so a
// persisted profile decodes back to an equal value.
func (p Profile) normalized() Profile {
	if len(p.Attributes) == 0 {
		p.Attributes = nil
	} else {
		p.Attributes = maps.Clone(p.Attributes)
	}
	return p
}

// Session is the client's record of an authenticated identity.
// A Session is either absent (nil) or fully populated; use New to build one.
type Session struct {
	SubjectID string
	Role      Role
	Token     string
	Profile   Profile
}

// New creates a validated Session. An empty profile ID is filled from subjectID.
func New(subjectID string, role Role, token string, profile Profile) (*Session, error) {
	if profile.ID == "" {
		profile.ID = subjectID
	}
	profile = profile.normalized()
	s := &Session{
		SubjectID: subjectID,
		Role:      role,
		Token:     token,
		Profile:   profile,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that every field of the session is populated and consistent.
func (s *Session) Validate() error {
	if s == nil {
		return oops.Code("SESSION_INVALID").Errorf("session is nil")
	}
	if s.SubjectID == "" {
		return oops.Code("SESSION_INVALID").Errorf("subject id cannot be empty")
	}
	if !s.Role.Valid() {
		return oops.Code("SESSION_INVALID").With("role", string(s.Role)).Errorf("role is not valid")
	}
	if s.Token == "" {
		return oops.Code("SESSION_INVALID").Errorf("token cannot be empty")
	}
	if s.Profile.ID != s.SubjectID {
		return oops.Code("SESSION_INVALID").
			With("subject_id", s.SubjectID).
			With("profile_id", s.Profile.ID).
			Errorf("profile does not belong to subject")
	}
	return nil
}

// WithProfile returns a copy of s carrying the merged profile.
// Role, token and subject are left untouched.
func (s *Session) WithProfile(update Profile) *Session {
	next := *s
	next.Profile = s.Profile.Merge(update)
	next.Profile.ID = s.SubjectID
	return &next
}
