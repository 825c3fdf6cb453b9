// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schema implements the collection schema grammar and document
// validation: field definitions, default materialization, system-field
// assignment, and the registries that let behavioral callbacks (default
// generators, validators) survive a round trip through the file format as
// plain identifiers rather than executable code.
package schema

import (
	"fmt"
	"time"

	"github.com/kraklabs/vaultdb/internal/document"
)

// FieldType enumerates the supported declared field types.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeBytes   FieldType = "bytes"
)

func validFieldType(t FieldType) bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate, TypeObject, TypeArray, TypeBytes:
		return true
	}
	return false
}

// FieldDefinition describes one schema field (spec §3).
type FieldDefinition struct {
	Type      FieldType `json:"type" yaml:"type"`
	Required  bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Unique    bool      `json:"unique,omitempty" yaml:"unique,omitempty"`
	Encrypted bool      `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
	Index     bool      `json:"index,omitempty" yaml:"index,omitempty"`

	// Default is either a literal value matching Type, or the name of a
	// registered zero-argument generator (e.g. "now"). A string default is
	// resolved against the generator registry first; only a miss falls
	// back to treating it as a literal.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Enum      []any    `json:"enum,omitempty" yaml:"enum,omitempty"`

	// Validate names a registered validator predicate, run at insert/update
	// time. Arbitrary user code is never persisted (spec §4.3).
	Validate string `json:"validate,omitempty" yaml:"validate,omitempty"`
}

// Definition is a full collection schema: field name to FieldDefinition.
type Definition map[string]FieldDefinition

// ReservedFields are carried through every document independent of schema.
var ReservedFields = map[string]bool{
	"_id":       true,
	"createdAt": true,
	"updatedAt": true,
}

// ValidateSchema canonicalizes and validates a raw schema mapping (as
// decoded from JSON or YAML: each entry is either a bare type string or a
// field-definition mapping). Unknown keys inside a field definition are
// silently ignored for forward compatibility; an unrecognized type is
// rejected.
func ValidateSchema(raw map[string]any) (Definition, error) {
	def := make(Definition, len(raw))
	for name, v := range raw {
		fd, err := parseFieldDefinition(v)
		if err != nil {
			return nil, fmt.Errorf("schema: field %q: %w", name, err)
		}
		if !validFieldType(fd.Type) {
			return nil, fmt.Errorf("schema: field %q: unsupported type %q", name, fd.Type)
		}
		if fd.Default != nil {
			if err := validateLiteralDefault(name, fd); err != nil {
				return nil, err
			}
		}
		def[name] = fd
	}
	return def, nil
}

func parseFieldDefinition(v any) (FieldDefinition, error) {
	switch t := v.(type) {
	case string:
		return FieldDefinition{Type: FieldType(t)}, nil
	case FieldType:
		return FieldDefinition{Type: t}, nil
	case FieldDefinition:
		return t, nil
	case map[string]any:
		return fieldDefinitionFromMap(t)
	default:
		return FieldDefinition{}, fmt.Errorf("definition must be a type string or mapping, got %T", v)
	}
}

func fieldDefinitionFromMap(m map[string]any) (FieldDefinition, error) {
	var fd FieldDefinition
	typeRaw, ok := m["type"]
	if !ok {
		return fd, fmt.Errorf("missing required key %q", "type")
	}
	typeStr, ok := typeRaw.(string)
	if !ok {
		return fd, fmt.Errorf("%q must be a string", "type")
	}
	fd.Type = FieldType(typeStr)

	if b, ok := m["required"].(bool); ok {
		fd.Required = b
	}
	if b, ok := m["unique"].(bool); ok {
		fd.Unique = b
	}
	if b, ok := m["encrypted"].(bool); ok {
		fd.Encrypted = b
	}
	if b, ok := m["index"].(bool); ok {
		fd.Index = b
	}
	if d, ok := m["default"]; ok {
		fd.Default = d
	}
	if n, ok := asFloat(m["min"]); ok {
		fd.Min = &n
	}
	if n, ok := asFloat(m["max"]); ok {
		fd.Max = &n
	}
	if n, ok := asFloat(m["minLength"]); ok {
		i := int(n)
		fd.MinLength = &i
	}
	if n, ok := asFloat(m["maxLength"]); ok {
		i := int(n)
		fd.MaxLength = &i
	}
	if arr, ok := m["enum"].([]any); ok {
		fd.Enum = arr
	}
	if s, ok := m["validate"].(string); ok {
		fd.Validate = s
	}
	return fd, nil
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}

func validateLiteralDefault(name string, fd FieldDefinition) error {
	if s, ok := fd.Default.(string); ok {
		if _, found := lookupGenerator(s); found {
			return nil
		}
	}
	val, err := document.FromInterface(fd.Default)
	if err != nil {
		return fmt.Errorf("schema: field %q: invalid default: %w", name, err)
	}
	if err := ValidateFieldValue(name, val, fd); err != nil {
		return fmt.Errorf("schema: field %q: default value: %w", name, err)
	}
	return nil
}

// ValidateDocument validates input against def, materializes defaults and
// system fields, and rejects fields that belong to neither the schema nor
// the reserved set (spec §4.3).
func ValidateDocument(input document.Document, def Definition, now time.Time) (document.Document, error) {
	out := make(document.Document, len(input)+3)

	for name, fd := range def {
		v, present := input[name]
		if !present {
			if fd.Default != nil {
				out[name] = materializeDefault(fd)
				continue
			}
			if fd.Required {
				return nil, fmt.Errorf("Required field %s is missing", name)
			}
			continue
		}
		if err := ValidateFieldValue(name, v, fd); err != nil {
			return nil, err
		}
		out[name] = v
	}

	for name, v := range input {
		if ReservedFields[name] {
			continue
		}
		if _, known := def[name]; !known {
			return nil, fmt.Errorf("Field %s is not defined in schema", name)
		}
		_ = v
	}

	if id, ok := input["_id"]; ok {
		if _, isStr := id.AsString(); !isStr {
			return nil, fmt.Errorf("Field _id must be a string")
		}
		out["_id"] = id
	} else {
		out["_id"] = document.String(GenerateID())
	}
	if createdAt, ok := input["createdAt"]; ok {
		instant, ok := normalizeInstant(createdAt)
		if !ok {
			return nil, fmt.Errorf("Field createdAt must be a valid date")
		}
		out["createdAt"] = instant
	} else {
		out["createdAt"] = document.Instant(now)
	}
	out["updatedAt"] = document.Instant(now)

	return out, nil
}

// normalizeInstant accepts a value already tagged KindInstant, or a string
// parseable as one of dateLayouts, and returns the canonical Instant form.
func normalizeInstant(v document.Value) (document.Value, bool) {
	if t, ok := v.AsInstant(); ok {
		return document.Instant(t), true
	}
	if s, ok := v.AsString(); ok {
		if t, ok := parseDate(s); ok {
			return document.Instant(t), true
		}
	}
	return document.Value{}, false
}

func materializeDefault(fd FieldDefinition) document.Value {
	if s, ok := fd.Default.(string); ok {
		if gen, found := lookupGenerator(s); found {
			return gen()
		}
	}
	v, err := document.FromInterface(fd.Default)
	if err != nil {
		return document.Null()
	}
	return v
}

// ValidateFieldValue type- and constraint-checks value against fd (spec
// §4.3 validate_field_value).
func ValidateFieldValue(name string, value document.Value, fd FieldDefinition) error {
	if !typeMatches(value, fd.Type) {
		return fmt.Errorf("Field %s must be of type %s", name, fd.Type)
	}
	if len(fd.Enum) > 0 {
		plain := document.ToInterface(value)
		if !inEnum(plain, fd.Enum) {
			return fmt.Errorf("Field %s must be one of the allowed values", name)
		}
	}
	if fd.Type == TypeNumber {
		n, _ := value.AsNumber()
		if !value.IsFinite() {
			return fmt.Errorf("Field %s must be a finite number", name)
		}
		if fd.Min != nil && n < *fd.Min {
			return fmt.Errorf("Field %s must be >= %v", name, *fd.Min)
		}
		if fd.Max != nil && n > *fd.Max {
			return fmt.Errorf("Field %s must be <= %v", name, *fd.Max)
		}
	}
	if fd.Type == TypeString || fd.Type == TypeArray {
		l := value.Len()
		if fd.MinLength != nil && l < *fd.MinLength {
			return fmt.Errorf("Field %s must have length >= %d", name, *fd.MinLength)
		}
		if fd.MaxLength != nil && l > *fd.MaxLength {
			return fmt.Errorf("Field %s must have length <= %d", name, *fd.MaxLength)
		}
	}
	if fd.Validate != "" {
		if fn, ok := lookupValidator(fd.Validate); ok {
			ok2, reason := fn(value)
			if !ok2 {
				if reason == "" {
					reason = fmt.Sprintf("Field %s failed validation %s", name, fd.Validate)
				}
				return fmt.Errorf("%s", reason)
			}
		}
	}
	return nil
}

func typeMatches(v document.Value, t FieldType) bool {
	switch t {
	case TypeString:
		_, ok := v.AsString()
		return ok
	case TypeNumber:
		_, ok := v.AsNumber()
		return ok
	case TypeBoolean:
		_, ok := v.AsBool()
		return ok
	case TypeDate:
		if _, ok := v.AsInstant(); ok {
			return true
		}
		if s, ok := v.AsString(); ok {
			_, parsed := parseDate(s)
			return parsed
		}
		return false
	case TypeObject:
		_, ok := v.AsObject()
		return ok
	case TypeArray:
		_, ok := v.AsArray()
		return ok
	case TypeBytes:
		_, ok := v.AsBytes()
		return ok
	default:
		return false
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func inEnum(v any, enum []any) bool {
	for _, e := range enum {
		if fmt.Sprintf("%v", v) == fmt.Sprintf("%v", e) {
			return true
		}
	}
	return false
}
