// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ToJSON renders a Definition to its persisted JSON form. Behavioral
// callbacks are already represented as plain identifier strings (Default,
// Validate), so this is a direct marshal with no further resolution (spec
// §4.3: "the persisted form MUST round-trip all declarative fields").
func ToJSON(def Definition) ([]byte, error) {
	return json.Marshal(def)
}

// FromJSON parses a Definition from its persisted JSON form and validates
// it exactly as ValidateSchema would a freshly authored one.
func FromJSON(data []byte) (Definition, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("schema: parse json: %w", err)
	}
	return ValidateSchema(raw)
}

// ToYAML renders a Definition to YAML, for embedding in operator-facing
// config or migration files outside the engine proper.
func ToYAML(def Definition) ([]byte, error) {
	return yaml.Marshal(def)
}

// FromYAML parses a Definition from YAML.
func FromYAML(data []byte) (Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("schema: parse yaml: %w", err)
	}
	return ValidateSchema(normalizeYAMLMap(raw))
}

// normalizeYAMLMap recursively converts map[string]interface{} keyed
// sub-maps that yaml.v3 decodes as map[string]interface{} already (unlike
// JSON, yaml.v3's Unmarshal into `any` produces map[string]interface{}
// directly), plus coerces int-typed scalars to float64 so downstream
// handling matches the JSON decode path.
func normalizeYAMLMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeYAMLMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeYAMLValue(e)
		}
		return out
	case int:
		return float64(t)
	default:
		return v
	}
}
