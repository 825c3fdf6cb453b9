// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package schema

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateID returns a string combining a monotonic-ish millisecond
// timestamp and a random suffix — unique under expected workloads, though
// the authoritative guarantee is still the collection's unique-constraint
// check (spec §4.3).
func GenerateID() string {
	suffix := make([]byte, 9)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// platform; fall back to the timestamp alone rather than panic.
		return fmt.Sprintf("%013d", time.Now().UnixMilli())
	}
	return fmt.Sprintf("%013d%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
