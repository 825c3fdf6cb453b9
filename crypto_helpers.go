// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vaultdb

import (
	"fmt"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/kraklabs/vaultdb/internal/schema"
	"github.com/kraklabs/vaultdb/internal/vaulterr"
	"github.com/kraklabs/vaultdb/internal/vcrypto"
)

func deriveKeyFor(passphrase string, salt []byte, opts Options) ([]byte, []byte, error) {
	return vcrypto.DeriveKey([]byte(passphrase), salt, opts.KDFIterations)
}

// encryptFields returns a copy of doc with every field def flags encrypted
// replaced by its base64 ciphertext form (spec §4.1 encrypt_field).
func encryptFields(doc document.Document, def schema.Definition, key []byte) (document.Document, error) {
	out := doc.Clone()
	for name, fd := range def {
		if !fd.Encrypted {
			continue
		}
		v, ok := out[name]
		if !ok {
			continue
		}
		encoded, err := vcrypto.EncryptField(document.ToInterface(v), key)
		if err != nil {
			return nil, vaulterr.NewCryptoError("field encryption failed", fmt.Sprintf("could not encrypt field %s", name), err)
		}
		out[name] = document.String(encoded)
	}
	return out, nil
}

// decryptFields reverses encryptFields, producing the plaintext view
// returned to callers and used for matching (spec §4.4: "Decrypt encrypted
// fields on the in-memory copy used for matching").
func decryptFields(doc document.Document, def schema.Definition, key []byte) (document.Document, error) {
	out := doc.Clone()
	for name, fd := range def {
		if !fd.Encrypted {
			continue
		}
		v, ok := out[name]
		if !ok {
			continue
		}
		encoded, isStr := v.AsString()
		if !isStr {
			continue
		}
		plain, err := vcrypto.DecryptField(encoded, key)
		if err != nil {
			return nil, vaulterr.NewCryptoError("field decryption failed", fmt.Sprintf("could not decrypt field %s", name), err)
		}
		val, err := document.FromInterface(plain)
		if err != nil {
			return nil, vaulterr.NewCryptoError("field decryption failed", fmt.Sprintf("decrypted field %s was not valid json", name), err)
		}
		// FromInterface can't tell an Instant/Bytes field apart from a plain
		// JSON string; re-tag it from the schema the same way a field that
		// was never encrypted already is, so $gt/$sort see the real Kind.
		out[name] = schema.Normalize(document.Document{name: val}, schema.Definition{name: fd})[name]
	}
	return out, nil
}
