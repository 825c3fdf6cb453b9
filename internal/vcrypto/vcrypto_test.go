// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vcrypto

import (
	"bytes"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)
	k1, s1, err := DeriveKey([]byte("correct horse"), salt, DefaultIterations)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k2, s2, err := DeriveKey([]byte("correct horse"), salt, DefaultIterations)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatalf("expected deterministic key derivation for the same salt")
	}
	if !bytes.Equal(s1, s2) || !bytes.Equal(s1, salt) {
		t.Fatalf("expected returned salt to echo the input salt")
	}
	if len(k1) != KeySize {
		t.Fatalf("expected %d-byte key, got %d", KeySize, len(k1))
	}
}

func TestDeriveKeyGeneratesSaltWhenNil(t *testing.T) {
	k, salt, err := DeriveKey([]byte("pw"), nil, 0)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(salt) != SaltSize {
		t.Fatalf("expected generated salt of length %d, got %d", SaltSize, len(salt))
	}
	if len(k) != KeySize {
		t.Fatalf("expected %d-byte key, got %d", KeySize, len(k))
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, _, err := DeriveKey([]byte("pw"), nil, 0)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext, iv, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext must not equal plaintext")
	}
	got, err := Decrypt(ciphertext, iv, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key, _, _ := DeriveKey([]byte("pw"), nil, 0)
	wrongKey, _, _ := DeriveKey([]byte("different"), nil, 0)
	ciphertext, iv, err := Encrypt([]byte("secret payload"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(ciphertext, iv, wrongKey); err == nil {
		t.Fatal("expected decrypt under the wrong key to fail")
	}
}

func TestDigestAndVerify(t *testing.T) {
	data := []byte("file contents")
	d := Digest(data)
	if len(d) != 64 {
		t.Fatalf("expected 64 hex chars (sha256), got %d", len(d))
	}
	if !VerifyDigest(data, d) {
		t.Fatal("expected digest to verify against itself")
	}
	if VerifyDigest([]byte("tampered"), d) {
		t.Fatal("expected digest to fail against tampered data")
	}
}

func TestEncryptDecryptField(t *testing.T) {
	key, _, _ := DeriveKey([]byte("pw"), nil, 0)
	encoded, err := EncryptField("classified@example.com", key)
	if err != nil {
		t.Fatalf("encrypt field: %v", err)
	}
	got, err := DecryptField(encoded, key)
	if err != nil {
		t.Fatalf("decrypt field: %v", err)
	}
	if got != "classified@example.com" {
		t.Fatalf("got %v, want classified@example.com", got)
	}
}

func TestHashAndVerifyPassphrase(t *testing.T) {
	hash, err := HashPassphrase([]byte("swordfish"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassphrase(hash, []byte("swordfish")) {
		t.Fatal("expected correct passphrase to verify")
	}
	if VerifyPassphrase(hash, []byte("wrong")) {
		t.Fatal("expected incorrect passphrase to fail")
	}
}
