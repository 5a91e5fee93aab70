// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
)

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		name  string
		pw    string
		score int
		band  auth.StrengthBand
	}{
		{name: "empty", pw: "", score: 0, band: auth.BandWeak},
		{name: "short lowercase", pw: "abc", score: 25, band: auth.BandWeak},
		{name: "long lowercase", pw: "abcdefgh", score: 25, band: auth.BandWeak},
		{name: "long with upper", pw: "Abcdefgh", score: 50, band: auth.BandMedium},
		{name: "long upper digit", pw: "Abcdef1", score: 75, band: auth.BandStrong},
		{name: "all four", pw: "Abcdef1!", score: 100, band: auth.BandStrong},
		{name: "short with everything is capped", pw: "Ab1$", score: 50, band: auth.BandMedium},
		{name: "long digits and symbols", pw: "123456-", score: 75, band: auth.BandStrong},
		{name: "unicode uppercase", pw: "Ñandú123", score: 75, band: auth.BandStrong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := auth.PasswordStrength(tt.pw)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.band, got.Band)
		})
	}
}

func TestPasswordStrength_ShortNeverStrong(t *testing.T) {
	for _, pw := range []string{"A1!", "Zz9#", "Q1!x", "ÄÖ1-?"} {
		assert.NotEqual(t, auth.BandStrong, auth.PasswordStrength(pw).Band, pw)
	}
}

func TestSecurityQuestion_AsksForCurrentTotal(t *testing.T) {
	assert.Equal(t, "What is your current total investment amount?", auth.SecurityQuestion)
}
