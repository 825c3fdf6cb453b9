// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"fmt"

	"github.com/kraklabs/vaultdb/internal/document"
)

// Update is a mapping from update operator to a field-path-to-value
// operation mapping (spec §4.4).
type Update map[string]any

// ApplyUpdate applies every operator in update to a clone of doc and
// returns the result. The caller is responsible for re-validating the
// result against the schema and re-checking unique constraints — this
// function only performs the mechanical field mutation.
func ApplyUpdate(doc document.Document, update Update) (document.Document, error) {
	out := doc.Clone()
	for op, raw := range update {
		fields, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("query: update operator %s requires a field mapping", op)
		}
		var err error
		switch op {
		case "$set":
			out, err = applySet(out, fields)
		case "$unset":
			out = applyUnset(out, fields)
		case "$inc":
			out, err = applyInc(out, fields)
		case "$push":
			out, err = applyPush(out, fields)
		case "$pull":
			out, err = applyPull(out, fields)
		default:
			return nil, fmt.Errorf("query: unsupported update operator %s", op)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applySet(doc document.Document, fields map[string]any) (document.Document, error) {
	for path, raw := range fields {
		lit, err := document.FromInterface(raw)
		if err != nil {
			return nil, fmt.Errorf("query: $set field %s: %w", path, err)
		}
		doc = document.Set(doc, path, lit)
	}
	return doc, nil
}

func applyUnset(doc document.Document, fields map[string]any) document.Document {
	for path := range fields {
		doc = document.Unset(doc, path)
	}
	return doc
}

func applyInc(doc document.Document, fields map[string]any) (document.Document, error) {
	for path, raw := range fields {
		delta, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("query: $inc field %s requires a numeric amount", path)
		}
		base := 0.0
		if cur, found := document.Get(doc, path); found {
			n, isNum := cur.AsNumber()
			if !isNum {
				return nil, fmt.Errorf("query: $inc field %s is not numeric", path)
			}
			base = n
		}
		doc = document.Set(doc, path, document.Number(base+delta))
	}
	return doc, nil
}

func applyPush(doc document.Document, fields map[string]any) (document.Document, error) {
	for path, raw := range fields {
		lit, err := document.FromInterface(raw)
		if err != nil {
			return nil, fmt.Errorf("query: $push field %s: %w", path, err)
		}
		var arr []document.Value
		if cur, found := document.Get(doc, path); found {
			a, isArr := cur.AsArray()
			if !isArr {
				return nil, fmt.Errorf("query: $push field %s is not an array", path)
			}
			arr = append(arr, a...)
		}
		arr = append(arr, lit)
		doc = document.Set(doc, path, document.Array(arr...))
	}
	return doc, nil
}

func applyPull(doc document.Document, fields map[string]any) (document.Document, error) {
	for path, raw := range fields {
		lit, err := document.FromInterface(raw)
		if err != nil {
			return nil, fmt.Errorf("query: $pull field %s: %w", path, err)
		}
		cur, found := document.Get(doc, path)
		if !found {
			continue
		}
		a, isArr := cur.AsArray()
		if !isArr {
			continue
		}
		filtered := make([]document.Value, 0, len(a))
		for _, e := range a {
			if !document.Equal(e, lit) {
				filtered = append(filtered, e)
			}
		}
		doc = document.Set(doc, path, document.Array(filtered...))
	}
	return doc, nil
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
