package schema_test

import (
	"testing"

	"github.com/travelwhiz/backend/core/schema"
)

const (
	credentialsSchema = `
	{ "$id" : "https://travelwhiz.app/schemas/credentials.json",
	  "type" : "object",
	  "required" : ["username", "password"],
	  "additionalProperties" : false,
	  "properties" : {
		"username" : { "type" : "string", "minLength" : 1 },
		"password" : { "type" : "string", "minLength" : 1 }
	  }
	}`
	noIDSchema = `{ "type" : "string" }`
)

func TestValidateString(t *testing.T) {
	v, err := schema.NewValidator([]string{credentialsSchema})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	schemaID := "https://travelwhiz.app/schemas/credentials.json"
	if !v.HasSchema(schemaID) {
		t.Fatalf("schema %s is expected to be known", schemaID)
	}

	// Valid json
	valid := `{"username":"ana","password":"pw1"}`
	if err := v.ValidateString(valid, schemaID); err != nil {
		t.Fatalf("%s is expected to be valid with schema %s. Reported error was: %v", valid, schemaID, err)
	}

	// Missing required property
	invalid := `{"username":"ana"}`
	if err := v.ValidateString(invalid, schemaID); err == nil {
		t.Fatalf("%s is expected to be invalid with schema %s", invalid, schemaID)
	}

	// Unknown property
	invalid = `{"username":"ana","password":"pw1","isAdmin":true}`
	if err := v.ValidateString(invalid, schemaID); err == nil {
		t.Fatalf("%s is expected to be invalid with schema %s", invalid, schemaID)
	}

	// Unknown schema
	if err := v.ValidateString(valid, "https://travelwhiz.app/schemas/unknown.json"); err == nil {
		t.Fatal("validation against an unknown schema is expected to fail")
	}
}

func TestValidateStruct(t *testing.T) {
	v, err := schema.NewValidator([]string{credentialsSchema})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	type credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	schemaID := "https://travelwhiz.app/schemas/credentials.json"
	if err := v.ValidateStruct(credentials{Username: "ana", Password: "pw1"}, schemaID); err != nil {
		t.Fatalf("struct is expected to be valid with schema %s. Reported error was: %v", schemaID, err)
	}
	if err := v.ValidateStruct(credentials{Username: "ana"}, schemaID); err == nil {
		t.Fatalf("struct without password is expected to be invalid with schema %s", schemaID)
	}
}

func TestSchemaWithoutID(t *testing.T) {
	if _, err := schema.NewValidator([]string{noIDSchema}); err == nil {
		t.Fatal("schema without $id is expected to be rejected")
	}
}
