// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Password rules shared by reset and registration.
const (
	MinPasswordLength = 6
	MinUsernameLength = 3
)

// DefaultResetLinkBase is the reset page reset tokens are appended to.
const DefaultResetLinkBase = "http://localhost:5173/reset-password"

// SecurityQuestion is sent with every set of reset instructions. The server
// checks the answer against the account's current total investment.
const SecurityQuestion = "What is your current total investment amount?"

// StrengthBand is the coarse label for a password score.
type StrengthBand string

// Strength bands.
const (
	BandWeak   StrengthBand = "weak"
	BandMedium StrengthBand = "medium"
	BandStrong StrengthBand = "strong"
)

// Strength is a password score in percent and its band.
type Strength struct {
	Score int
	Band  StrengthBand
}

// shortPasswordCap keeps passwords below MinPasswordLength out of the strong band.
const shortPasswordCap = 50

// PasswordStrength scores pw. Length of at least MinPasswordLength, an
// uppercase letter, a digit and a non-alphanumeric rune each add 25. Any
// non-empty password scores at least 25.
func PasswordStrength(pw string) Strength {
	if pw == "" {
		return Strength{Score: 0, Band: BandWeak}
	}

	var upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			symbol = true
		}
	}

	score := 0
	long := utf8.RuneCountInString(pw) >= MinPasswordLength
	for _, ok := range []bool{long, upper, digit, symbol} {
		if ok {
			score += 25
		}
	}
	score = max(score, 25)
	if !long {
		score = min(score, shortPasswordCap)
	}
	return Strength{Score: score, Band: bandFor(score)}
}

func bandFor(score int) StrengthBand {
	switch {
	case score >= 75:
		return BandStrong
	case score >= 50:
		return BandMedium
	default:
		return BandWeak
	}
}

// checkPasswords validates a new password and its confirmation.
func checkPasswords(password, confirm string) *Failure {
	if password != confirm {
		return fail(KindValidation, "AUTH_PASSWORD_MISMATCH", "Passwords do not match.")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fail(KindValidation, "AUTH_PASSWORD_TOO_SHORT", "Password must be at least 6 characters long.")
	}
	return nil
}

func requireFields(fields ...string) *Failure {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return fail(KindValidation, "AUTH_FIELDS_REQUIRED", "Please fill in all fields.")
		}
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// resetLink joins the link base and token.
func resetLink(base, token string) string {
	return strings.TrimRight(base, "/") + "/" + token
}
