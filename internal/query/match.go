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

// Package query implements the predicate matcher, sort/skip/limit/
// projection pipeline, and update-operator application that the engine
// runs on every find/update/delete (spec §4.4).
package query

import (
	"encoding/base64"
	"regexp"
	"time"

	"github.com/kraklabs/vaultdb/internal/document"
)

// Filter is a query: a mapping from field path (or $and/$or) to either a
// literal value or an operator mapping.
type Filter map[string]any

// Match reports whether doc satisfies filter.
func Match(doc document.Document, filter Filter) bool {
	for key, cond := range filter {
		switch key {
		case "$and":
			subs, ok := cond.([]any)
			if !ok {
				return false
			}
			for _, s := range subs {
				sf, ok := s.(map[string]any)
				if !ok || !Match(doc, Filter(sf)) {
					return false
				}
			}
		case "$or":
			subs, ok := cond.([]any)
			if !ok {
				return false
			}
			matched := false
			for _, s := range subs {
				sf, ok := s.(map[string]any)
				if ok && Match(doc, Filter(sf)) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			if !matchField(doc, key, cond) {
				return false
			}
		}
	}
	return true
}

func matchField(doc document.Document, path string, cond any) bool {
	val, present := document.Get(doc, path)

	m, isOperatorMap := cond.(map[string]any)
	if !isOperatorMap {
		if !present {
			return false
		}
		lit, err := coerceLiteral(val, cond)
		if err != nil {
			return false
		}
		return document.Equal(val, lit)
	}

	if pattern, hasRegex := m["$regex"]; hasRegex {
		if !present {
			return false
		}
		patStr, _ := pattern.(string)
		opts, _ := m["$options"].(string)
		return matchRegex(val, patStr, opts)
	}

	for op, opVal := range m {
		if op == "$options" {
			continue
		}
		if !matchOperator(op, val, present, opVal) {
			return false
		}
	}
	return true
}

func matchOperator(op string, val document.Value, present bool, opVal any) bool {
	switch op {
	case "$eq":
		if !present {
			return false
		}
		lit, err := coerceLiteral(val, opVal)
		return err == nil && document.Equal(val, lit)
	case "$ne":
		if !present {
			return true
		}
		lit, err := coerceLiteral(val, opVal)
		if err != nil {
			return true
		}
		return !document.Equal(val, lit)
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false
		}
		lit, err := coerceLiteral(val, opVal)
		if err != nil {
			return false
		}
		cmp, ok := document.Compare(val, lit)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return cmp > 0
		case "$gte":
			return cmp >= 0
		case "$lt":
			return cmp < 0
		default:
			return cmp <= 0
		}
	case "$in":
		if !present {
			return false
		}
		arr, ok := opVal.([]any)
		if !ok {
			return false
		}
		for _, e := range arr {
			lit, err := coerceLiteral(val, e)
			if err == nil && document.Equal(val, lit) {
				return true
			}
		}
		return false
	case "$nin":
		if !present {
			return true
		}
		arr, ok := opVal.([]any)
		if !ok {
			return true
		}
		for _, e := range arr {
			lit, err := coerceLiteral(val, e)
			if err == nil && document.Equal(val, lit) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func matchRegex(val document.Value, pattern, opts string) bool {
	if opts == "i" {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(document.Stringify(val))
}

// coerceLiteral converts a raw JSON-decoded literal into a Value matching
// fieldVal's Kind when that Kind is one JSON cannot represent natively
// (Instant, Bytes) — so that e.g. {"createdAt": {"$gt": "2024-01-01"}}
// compares against a stored instant rather than failing as a kind mismatch.
func coerceLiteral(fieldVal document.Value, raw any) (document.Value, error) {
	lit, err := document.FromInterface(raw)
	if err != nil {
		return document.Value{}, err
	}
	if lit.Kind() != document.KindString {
		return lit, nil
	}
	s, _ := lit.AsString()
	switch fieldVal.Kind() {
	case document.KindInstant:
		if t, ok := parseAnyDate(s); ok {
			return document.Instant(t), nil
		}
	case document.KindBytes:
		if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
			return document.Bytes(raw), nil
		}
	}
	return lit, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseAnyDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
