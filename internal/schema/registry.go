// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package schema

import (
	"sync"
	"time"

	"github.com/kraklabs/vaultdb/internal/document"
)

// Generator produces a fresh default value at validation time.
type Generator func() document.Value

// Validator checks a field value beyond type/range constraints, returning a
// rejection reason when ok is false.
type Validator func(value document.Value) (ok bool, reason string)

var (
	registryMu sync.RWMutex
	generators = map[string]Generator{
		"now": func() document.Value { return document.Instant(time.Now()) },
	}
	validators = map[string]Validator{
		"nonEmpty": func(v document.Value) (bool, string) {
			if s, ok := v.AsString(); ok && s == "" {
				return false, "value must not be empty"
			}
			return true, ""
		},
	}
)

// RegisterDefaultGenerator adds or replaces a named default generator,
// resolvable from a schema's declarative "default" identifier.
func RegisterDefaultGenerator(name string, gen Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	generators[name] = gen
}

// RegisterValidator adds or replaces a named validator predicate,
// resolvable from a schema's declarative "validate" identifier.
func RegisterValidator(name string, v Validator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	validators[name] = v
}

func lookupGenerator(name string) (Generator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	g, ok := generators[name]
	return g, ok
}

func lookupValidator(name string) (Validator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	v, ok := validators[name]
	return v, ok
}
