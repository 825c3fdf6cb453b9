// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package schema

import (
	"encoding/base64"

	"github.com/kraklabs/vaultdb/internal/document"
)

// Normalize re-tags the KindString values produced by raw JSON decoding
// back into KindInstant or KindBytes wherever def declares that field's type
// as date or bytes. Fields with no schema entry, or whose value already
// carries the right Kind, pass through unchanged.
func Normalize(doc document.Document, def Definition) document.Document {
	return normalize(doc, def, false)
}

// NormalizeStored is Normalize for documents still in their at-rest storage
// form: fields flagged Encrypted are left untouched, since their stored
// value is base64 ciphertext, not the field's declared type — re-tagging
// happens only after decryptFields restores the plaintext (spec §4.1
// encrypt_field/decrypt_field). Used when repopulating in-memory state on
// open, never on the plaintext copies insert/update validate and encrypt.
func NormalizeStored(doc document.Document, def Definition) document.Document {
	return normalize(doc, def, true)
}

func normalize(doc document.Document, def Definition, skipEncrypted bool) document.Document {
	out := make(document.Document, len(doc))
	for name, v := range doc {
		fd, ok := def[name]
		if !ok || (skipEncrypted && fd.Encrypted) {
			out[name] = v
			continue
		}
		out[name] = normalizeValue(v, fd.Type)
	}
	return out
}

func normalizeValue(v document.Value, t FieldType) document.Value {
	switch t {
	case TypeDate:
		if s, ok := v.AsString(); ok {
			if parsed, ok := parseDate(s); ok {
				return document.Instant(parsed)
			}
		}
		return v
	case TypeBytes:
		if s, ok := v.AsString(); ok {
			if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
				return document.Bytes(raw)
			}
		}
		return v
	default:
		return v
	}
}
