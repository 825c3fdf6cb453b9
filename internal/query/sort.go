// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"sort"

	"github.com/kraklabs/vaultdb/internal/document"
)

// SortKey is one (path, direction) pair; Direction is +1 or -1.
type SortKey struct {
	Path      string
	Direction int
}

// Sort orders docs in place by each key in turn. A document missing the
// sorted field sorts before one that has it, independent of direction;
// ties fall through to the next key (spec §4.4).
func Sort(docs []document.Document, keys []SortKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			vi, oki := document.Get(docs[i], k.Path)
			vj, okj := document.Get(docs[j], k.Path)
			switch {
			case !oki && !okj:
				continue
			case !oki:
				return true
			case !okj:
				return false
			}
			cmp, comparable := document.Compare(vi, vj)
			if !comparable || cmp == 0 {
				continue
			}
			if k.Direction < 0 {
				cmp = -cmp
			}
			return cmp < 0
		}
		return false
	})
}

// Skip drops the first n documents (no-op if n <= 0; empty if n >= len(docs)).
func Skip(docs []document.Document, n int) []document.Document {
	if n <= 0 {
		return docs
	}
	if n >= len(docs) {
		return docs[:0]
	}
	return docs[n:]
}

// Limit truncates docs to at most n entries (no-op if n <= 0, meaning
// unlimited).
func Limit(docs []document.Document, n int) []document.Document {
	if n <= 0 || n >= len(docs) {
		return docs
	}
	return docs[:n]
}

// Projection selects which top-level fields survive in the result; "_id" is
// always included. A nil or empty Projection leaves documents unchanged.
type Projection map[string]bool

// Apply returns a copy of doc containing only the projected fields.
func (p Projection) Apply(doc document.Document) document.Document {
	if len(p) == 0 {
		return doc
	}
	out := make(document.Document, len(p)+1)
	if id, ok := doc["_id"]; ok {
		out["_id"] = id
	}
	for field, include := range p {
		if !include {
			continue
		}
		if v, ok := doc[field]; ok {
			out[field] = v
		}
	}
	return out
}
