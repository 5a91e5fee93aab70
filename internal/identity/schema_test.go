// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephNgugi254/Nagolie-project-sub001/pkg/errutil"
)

func TestGenerateSchema_AllNames(t *testing.T) {
	for _, name := range SchemaNames() {
		t.Run(name, func(t *testing.T) {
			data, err := GenerateSchema(name)
			require.NoError(t, err)

			var doc map[string]any
			require.NoError(t, json.Unmarshal(data, &doc))
			assert.Equal(t, SchemaID(name), doc["$id"])
		})
	}
}

func TestGenerateSchema_Unknown(t *testing.T) {
	_, err := GenerateSchema("nope")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SCHEMA_UNKNOWN")
}

func TestGenerateSchema_LoginRequiresTokenAndUser(t *testing.T) {
	data, err := GenerateSchema("login")
	require.NoError(t, err)

	var doc struct {
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.ElementsMatch(t, []string{"token", "user"}, doc.Required)
}

func TestValidateResponse(t *testing.T) {
	require.NoError(t, validateResponse(&LoginResponse{}, []byte(`{"token":"t","user":{"id":"u"},"extra":1}`)))

	err := validateResponse(&LoginResponse{}, []byte(`{"token":"t"}`))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "IDENTITY_MALFORMED_RESPONSE")

	require.NoError(t, validateResponse(&PendingInvestorResponse{}, []byte(`{"investor":{"name":"A","investment_amount":0}}`)))
	require.Error(t, validateResponse(&PendingInvestorResponse{}, []byte(`{"investor":{"name":"A","investment_amount":-5}}`)))
}
