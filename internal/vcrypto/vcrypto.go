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

// Package vcrypto implements the engine's cryptographic primitives: passphrase
// key derivation, whole-file AES-256-CBC encryption, the external ciphertext
// digest that stands in for an AEAD tag, and per-field encryption for
// schema-marked sensitive fields.
package vcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the byte length of the per-file KDF salt.
	SaltSize = 32
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the AES block size, used as the CBC initialization vector
	// length.
	IVSize = aes.BlockSize
	// DefaultIterations is the PBKDF2 round count mandated for new files.
	DefaultIterations = 100000
)

var (
	// ErrDecryptionFailed is returned when ciphertext cannot be unpadded
	// after a successful AES-CBC decrypt, almost always because the key is
	// wrong.
	ErrDecryptionFailed = errors.New("vcrypto: decryption failed")
	// ErrDigestMismatch names the case where the computed digest does not
	// match the stored one. VerifyDigest reports it as false, and codec.Open
	// surfaces it as a vaulterr integrity error rather than this value.
	ErrDigestMismatch = errors.New("vcrypto: digest mismatch")
)

// DeriveKey derives a 32-byte AES key from passphrase and salt using
// PBKDF2-HMAC-SHA256. If salt is nil, a fresh random SaltSize-byte salt is
// generated; the salt actually used is always returned so callers can
// persist it alongside the ciphertext.
func DeriveKey(passphrase []byte, salt []byte, iterations int) (key, usedSalt []byte, err error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("vcrypto: generate salt: %w", err)
		}
	}
	key = pbkdf2.Key(passphrase, salt, iterations, KeySize, sha256.New)
	return key, salt, nil
}

// Encrypt AES-256-CBC encrypts plaintext under key using PKCS#7 padding and a
// freshly generated IV. The IV is returned alongside the ciphertext rather
// than prepended to it, since the file format stores them in separate
// fields (spec §4.2).
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("vcrypto: new cipher: %w", err)
	}
	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("vcrypto: generate iv: %w", err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	ciphertext = make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, iv, nil
}

// Decrypt AES-256-CBC decrypts ciphertext under key and iv, then strips the
// PKCS#7 padding. A malformed pad (the common symptom of a wrong key, since
// there is no AEAD tag to reject it earlier) is reported as
// ErrDecryptionFailed.
func Decrypt(ciphertext, iv, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vcrypto: new cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrDecryptionFailed
	}
	plain := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plain, ciphertext)
	return pkcs7Unpad(plain, block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, ErrDecryptionFailed
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrDecryptionFailed
		}
	}
	return data[:len(data)-padLen], nil
}

// Digest returns the lowercase hex SHA-256 digest of data, computed over the
// ciphertext to stand in for the AEAD tag the format deliberately omits
// (spec §4.2 Design Notes).
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyDigest reports whether data's digest matches expectedHex, comparing
// in constant time so a malformed file can't be used to time-probe the
// digest byte by byte.
func VerifyDigest(data []byte, expectedHex string) bool {
	got := Digest(data)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expectedHex)) == 1
}

// EncryptField JSON-serializes value, encrypts it under key with a fresh IV,
// and returns "<iv><ciphertext>" base64-encoded as a single string — the
// on-disk representation of a schema field marked encrypted: true.
func EncryptField(value any, key []byte) (string, error) {
	plain, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("vcrypto: marshal field: %w", err)
	}
	ciphertext, iv, err := Encrypt(plain, key)
	if err != nil {
		return "", err
	}
	combined := make([]byte, 0, len(iv)+len(ciphertext))
	combined = append(combined, iv...)
	combined = append(combined, ciphertext...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// DecryptField reverses EncryptField, returning the field's JSON-decoded
// value.
func DecryptField(encoded string, key []byte) (any, error) {
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vcrypto: decode field: %w", err)
	}
	if len(combined) < IVSize {
		return nil, ErrDecryptionFailed
	}
	iv, ciphertext := combined[:IVSize], combined[IVSize:]
	plain, err := Decrypt(ciphertext, iv, key)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(plain, &value); err != nil {
		return nil, fmt.Errorf("vcrypto: unmarshal field: %w", err)
	}
	return value, nil
}

// HashPassphrase bcrypt-hashes a passphrase for storage in a companion
// credential store. The file format itself never stores a passphrase hash —
// the correct key is confirmed by the digest check on open — but callers
// embedding the engine behind their own auth layer need this.
func HashPassphrase(passphrase []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(passphrase, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("vcrypto: hash passphrase: %w", err)
	}
	return string(hash), nil
}

// VerifyPassphrase reports whether passphrase matches a hash produced by
// HashPassphrase.
func VerifyPassphrase(hash string, passphrase []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), passphrase) == nil
}

// SecureWipe zeroes b in place, best-effort, so a key no longer needed
// doesn't linger in memory longer than necessary.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeEqual reports whether a and b are equal, in constant time.
func ConstantTimeEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}
