// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package schema

import (
	"testing"
	"time"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchemaCanonicalizesBareTypeString(t *testing.T) {
	def, err := ValidateSchema(map[string]any{"name": "string"})
	require.NoError(t, err)
	assert.Equal(t, TypeString, def["name"].Type)
}

func TestValidateSchemaRejectsUnknownType(t *testing.T) {
	_, err := ValidateSchema(map[string]any{"name": "frobnicator"})
	assert.Error(t, err)
}

func TestValidateSchemaIgnoresUnknownKeys(t *testing.T) {
	def, err := ValidateSchema(map[string]any{
		"name": map[string]any{"type": "string", "notAThing": 42},
	})
	require.NoError(t, err)
	assert.Equal(t, TypeString, def["name"].Type)
}

func TestValidateDocumentRequiredFieldMissing(t *testing.T) {
	def := Definition{"email": FieldDefinition{Type: TypeString, Required: true}}
	_, err := ValidateDocument(document.Document{}, def, time.Now())
	assert.Error(t, err)
}

func TestValidateDocumentMaterializesDefaults(t *testing.T) {
	def := Definition{"createdFlag": FieldDefinition{Type: TypeString, Default: "now"}}
	out, err := ValidateDocument(document.Document{}, def, time.Now())
	require.NoError(t, err)
	_, ok := out["createdFlag"].AsInstant()
	assert.True(t, ok, "expected the \"now\" generator identifier to resolve to an instant")
}

func TestValidateDocumentRejectsUnknownField(t *testing.T) {
	def := Definition{"name": FieldDefinition{Type: TypeString}}
	input := document.Document{"extra": document.String("nope")}
	_, err := ValidateDocument(input, def, time.Now())
	assert.Error(t, err)
}

func TestValidateDocumentAssignsSystemFields(t *testing.T) {
	def := Definition{}
	out, err := ValidateDocument(document.Document{}, def, time.Now())
	require.NoError(t, err)

	id, ok := out["_id"].AsString()
	require.True(t, ok)
	assert.NotEmpty(t, id)

	createdAt, ok := out["createdAt"].AsInstant()
	require.True(t, ok)
	updatedAt, ok := out["updatedAt"].AsInstant()
	require.True(t, ok)
	assert.False(t, updatedAt.Before(createdAt))
}

func TestValidateDocumentPreservesExistingID(t *testing.T) {
	def := Definition{}
	input := document.Document{"_id": document.String("fixed-id")}
	out, err := ValidateDocument(input, def, time.Now())
	require.NoError(t, err)
	id, _ := out["_id"].AsString()
	assert.Equal(t, "fixed-id", id)
}

func TestValidateDocumentRejectsNonStringID(t *testing.T) {
	def := Definition{}
	input := document.Document{"_id": document.Number(42)}
	_, err := ValidateDocument(input, def, time.Now())
	assert.Error(t, err)
}

func TestValidateDocumentNormalizesStringCreatedAt(t *testing.T) {
	def := Definition{}
	input := document.Document{"createdAt": document.String("2024-01-02T15:04:05Z")}
	out, err := ValidateDocument(input, def, time.Now())
	require.NoError(t, err)
	_, ok := out["createdAt"].AsInstant()
	assert.True(t, ok, "expected a string createdAt to be normalized to an instant")
}

func TestValidateDocumentRejectsUnparsableCreatedAt(t *testing.T) {
	def := Definition{}
	input := document.Document{"createdAt": document.String("not a date")}
	_, err := ValidateDocument(input, def, time.Now())
	assert.Error(t, err)
}

func TestValidateFieldValueEnum(t *testing.T) {
	fd := FieldDefinition{Type: TypeString, Enum: []any{"a", "b"}}
	assert.NoError(t, ValidateFieldValue("status", document.String("a"), fd))
	assert.Error(t, ValidateFieldValue("status", document.String("z"), fd))
}

func TestValidateFieldValueNumberBounds(t *testing.T) {
	min, max := 0.0, 10.0
	fd := FieldDefinition{Type: TypeNumber, Min: &min, Max: &max}
	assert.NoError(t, ValidateFieldValue("age", document.Number(5), fd))
	assert.Error(t, ValidateFieldValue("age", document.Number(11), fd))
	assert.Error(t, ValidateFieldValue("age", document.Number(-1), fd))
}

func TestValidateFieldValueDateAcceptsParsableString(t *testing.T) {
	fd := FieldDefinition{Type: TypeDate}
	assert.NoError(t, ValidateFieldValue("dob", document.String("2024-01-02T15:04:05Z"), fd))
	assert.Error(t, ValidateFieldValue("dob", document.String("not a date"), fd))
}

func TestNormalizeRetagsDateAndBytes(t *testing.T) {
	def := Definition{
		"dob":   FieldDefinition{Type: TypeDate},
		"blob":  FieldDefinition{Type: TypeBytes},
		"plain": FieldDefinition{Type: TypeString},
	}
	doc := document.Document{
		"dob":   document.String("2024-01-02T15:04:05Z"),
		"blob":  document.String("aGVsbG8="),
		"plain": document.String("untouched"),
	}
	out := Normalize(doc, def)

	_, ok := out["dob"].AsInstant()
	assert.True(t, ok)

	b, ok := out["blob"].AsBytes()
	require.True(t, ok)
	assert.Equal(t, "hello", string(b))

	s, ok := out["plain"].AsString()
	require.True(t, ok)
	assert.Equal(t, "untouched", s)
}

func TestNormalizeStoredSkipsEncryptedFields(t *testing.T) {
	def := Definition{
		"blob": FieldDefinition{Type: TypeBytes, Encrypted: true},
		"dob":  FieldDefinition{Type: TypeDate, Encrypted: true},
	}
	// Simulates what's actually on disk: base64 ciphertext strings, not the
	// field's declared plaintext type.
	doc := document.Document{
		"blob": document.String("c29tZS1jaXBoZXJ0ZXh0LWJ5dGVz"),
		"dob":  document.String("c29tZS1jaXBoZXJ0ZXh0LWRhdGU="),
	}

	out := NormalizeStored(doc, def)
	_, isStr := out["blob"].AsString()
	assert.True(t, isStr, "encrypted bytes field must stay a string until decrypted")
	_, isStr = out["dob"].AsString()
	assert.True(t, isStr, "encrypted date field must stay a string until decrypted")

	// Normalize (used on plaintext, e.g. fresh insert input) still retags.
	plain := document.Document{"blob": document.String("aGVsbG8=")}
	retagged := Normalize(plain, def)
	_, isBytes := retagged["blob"].AsBytes()
	assert.True(t, isBytes)
}

func TestFromJSONToJSONRoundTrip(t *testing.T) {
	def := Definition{"name": FieldDefinition{Type: TypeString, Required: true}}
	data, err := ToJSON(def)
	require.NoError(t, err)
	out, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, TypeString, out["name"].Type)
	assert.True(t, out["name"].Required)
}

func TestFromYAMLRoundTrip(t *testing.T) {
	def := Definition{"age": FieldDefinition{Type: TypeNumber}}
	data, err := ToYAML(def)
	require.NoError(t, err)
	out, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, out["age"].Type)
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		assert.False(t, seen[id], "expected unique ids")
		seen[id] = true
	}
}

func TestRegisterValidatorIsHonored(t *testing.T) {
	RegisterValidator("evenLength", func(v document.Value) (bool, string) {
		s, _ := v.AsString()
		if len(s)%2 != 0 {
			return false, "value must have even length"
		}
		return true, ""
	})
	fd := FieldDefinition{Type: TypeString, Validate: "evenLength"}
	assert.NoError(t, ValidateFieldValue("code", document.String("ab"), fd))
	assert.Error(t, ValidateFieldValue("code", document.String("abc"), fd))
}
