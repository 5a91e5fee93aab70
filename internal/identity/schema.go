// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package identity

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// responseTypes maps schema names to the successful response shapes the
// client validates.
var responseTypes = map[string]any{
	"login":                 &LoginResponse{},
	"forgot-password":       &ForgotPasswordResponse{},
	"validate-reset-token":  &ValidateResetTokenResponse{},
	"reset-password":        &ResetPasswordResponse{},
	"pending-investor":      &PendingInvestorResponse{},
	"complete-registration": &CompleteRegistrationResponse{},
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[reflect.Type]*jschema.Schema{}
)

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
}

// GenerateSchema returns the JSON Schema for one named response.
func GenerateSchema(name string) ([]byte, error) {
	v, ok := responseTypes[name]
	if !ok {
		return nil, oops.Code("SCHEMA_UNKNOWN").With("name", name).Errorf("no schema named %q", name)
	}
	schema := reflector().Reflect(v)
	schema.ID = jsonschema.ID(SchemaID(name))
	schema.Title = "Nagolie Identity API " + name + " response"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").With("name", name).Wrap(err)
	}
	return data, nil
}

// SchemaNames lists every response schema in name order.
func SchemaNames() []string {
	names := make([]string, 0, len(responseTypes))
	for n := range responseTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SchemaID returns the $id of a response schema.
func SchemaID(name string) string {
	return "https://nagolie.dev/schemas/identity/" + name + ".schema.json"
}

// validateResponse checks raw against the schema generated from v's type.
func validateResponse(v any, raw []byte) error {
	sch, err := compiledSchema(v)
	if err != nil {
		return err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("IDENTITY_MALFORMED_RESPONSE").With("operation", "parse body").Wrap(err)
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code("IDENTITY_MALFORMED_RESPONSE").With("operation", "validate body").Wrap(err)
	}
	return nil
}

func compiledSchema(v any) (*jschema.Schema, error) {
	t := reflect.TypeOf(v)

	schemaMu.Lock()
	defer schemaMu.Unlock()

	if sch, ok := schemaCache[t]; ok {
		return sch, nil
	}

	data, err := json.Marshal(reflector().Reflect(v))
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}

	name := t.Name()
	if t.Kind() == reflect.Pointer {
		name = t.Elem().Name()
	}
	url := name + ".json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("type", t.String()).Wrap(err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, oops.Code("SCHEMA_COMPILE_FAILED").With("type", t.String()).Wrap(err)
	}
	schemaCache[t] = sch
	return sch, nil
}
