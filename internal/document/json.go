// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToInterface converts a Value into plain Go data (map[string]any,
// []any, string, float64, bool, nil) suitable for json.Marshal. Instant and
// Bytes values are encoded as the RFC3339Nano / base64 strings produced by
// Stringify, since JSON has no native representation for either — the
// schema re-tags them back to KindInstant/KindBytes on the way in (see
// internal/schema.Normalize).
func ToInterface(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindInstant:
		return Stringify(v)
	case KindBytes:
		return Stringify(v)
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = ToInterface(e)
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = ToInterface(e)
		}
		return out
	default:
		return nil
	}
}

// DocumentToInterface converts a Document into a plain map[string]any.
func DocumentToInterface(d Document) map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = ToInterface(v)
	}
	return out
}

// FromInterface converts plain decoded-JSON data (as produced by
// json.Unmarshal into an any) into a Value. Every JSON object becomes
// KindObject, every JSON array KindArray, and every JSON string KindString
// — callers that need KindInstant/KindBytes must re-tag afterwards using
// schema knowledge, since raw JSON cannot distinguish them from plain
// strings.
func FromInterface(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("document: invalid number %q: %w", t, err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = v
		}
		return Array(vs...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Object(m), nil
	default:
		return Value{}, fmt.Errorf("document: unsupported value type %T", raw)
	}
}

// DocumentFromInterface converts a plain map[string]any into a Document.
func DocumentFromInterface(raw map[string]any) (Document, error) {
	doc := make(Document, len(raw))
	for k, e := range raw {
		v, err := FromInterface(e)
		if err != nil {
			return nil, err
		}
		doc[k] = v
	}
	return doc, nil
}

// MarshalJSON implements json.Marshaler for a bare Value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToInterface(v))
}

// UnmarshalJSON implements json.Unmarshaler for a bare Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
