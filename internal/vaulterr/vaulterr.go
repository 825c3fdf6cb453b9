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

// Package vaulterr defines the engine's error taxonomy.
//
// Every public operation fails, when it fails, with an *Error carrying one
// of the Kinds below. Callers distinguish failure modes with errors.Is
// against the Kind sentinels (e.g. errors.Is(err, vaulterr.KindIntegrity))
// rather than string matching.
package vaulterr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

// Error makes a Kind usable as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// The taxonomy is fixed by the engine's error design; every failure surfaced
// from a public operation carries exactly one of these.
const (
	KindConfig           Kind = "config"
	KindFormat           Kind = "format"
	KindIntegrity        Kind = "integrity"
	KindCrypto           Kind = "crypto"
	KindValidation       Kind = "validation"
	KindSchema           Kind = "schema"
	KindCollection       Kind = "collection"
	KindDocument         Kind = "document"
	KindIndex            Kind = "index"
	KindUniqueConstraint Kind = "unique_constraint"
	KindStorage          Kind = "storage"
)

// Error is the concrete error type surfaced by every public operation.
//
// Title is a short, stable summary suitable for log lines; Detail explains
// what specifically went wrong; Suggestion (optional) tells a caller what to
// try next. Cause, when present, is the underlying error (os.PathError,
// json.SyntaxError, etc.) and participates in errors.Unwrap/As.
type Error struct {
	Kind       Kind
	Title      string
	Detail     string
	Suggestion string
	Cause      error

	// Path is set by StorageError to capture the offending file path
	// (spec requirement: "with the offending path captured").
	Path string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Title)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for this error's Kind, so
// callers can write errors.Is(err, vaulterr.KindCrypto) without importing
// this package's concrete Error type.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// Is reports whether target is an *Error of kind k, so that the reversed
// call errors.Is(KindX, err) also matches.
func (k Kind) Is(target error) bool {
	var e *Error
	if errors.As(target, &e) {
		return e.Kind == k
	}
	return false
}

func newErr(kind Kind, title, detail, suggestion string, cause error) *Error {
	return &Error{Kind: kind, Title: title, Detail: detail, Suggestion: suggestion, Cause: cause}
}

// NewConfigError reports a problem with how the database was asked to open
// (missing passphrase, invalid path).
func NewConfigError(title, detail, suggestion string, cause error) *Error {
	return newErr(KindConfig, title, detail, suggestion, cause)
}

// NewFormatError reports a magic/version mismatch on open.
func NewFormatError(title, detail string, cause error) *Error {
	return newErr(KindFormat, title, detail, "", cause)
}

// NewIntegrityError reports a ciphertext digest mismatch on open.
func NewIntegrityError(title, detail string) *Error {
	return newErr(KindIntegrity, title, detail, "verify the passphrase and the file have not been corrupted", nil)
}

// NewCryptoError reports a decryption failure (wrong passphrase, corrupt
// payload, or malformed encrypted field).
func NewCryptoError(title, detail string, cause error) *Error {
	return newErr(KindCrypto, title, detail, "", cause)
}

// NewValidationError reports a schema rule violation on insert/update, or
// rejection of an unknown field.
func NewValidationError(title, detail string) *Error {
	return newErr(KindValidation, title, detail, "", nil)
}

// NewSchemaError reports a malformed schema definition.
func NewSchemaError(title, detail string) *Error {
	return newErr(KindSchema, title, detail, "", nil)
}

// NewCollectionError reports an operation on a missing collection, or
// creation of a collection whose name already exists.
func NewCollectionError(title, detail string) *Error {
	return newErr(KindCollection, title, detail, "", nil)
}

// NewDocumentError reports a reference to a document id that does not exist.
func NewDocumentError(title, detail string) *Error {
	return newErr(KindDocument, title, detail, "", nil)
}

// NewIndexError reports duplicate index creation, a unique-index build over
// duplicate values, or dropping a missing index.
func NewIndexError(title, detail string) *Error {
	return newErr(KindIndex, title, detail, "", nil)
}

// NewUniqueConstraintError reports an insert/update that would collide with
// an existing unique value. It carries its own Kind and does not match
// KindValidation under errors.Is.
func NewUniqueConstraintError(title, detail string) *Error {
	return newErr(KindUniqueConstraint, title, detail, "", nil)
}

// NewStorageError reports an underlying file system error during save/open,
// capturing the offending path.
func NewStorageError(title, detail, path string, cause error) *Error {
	e := newErr(KindStorage, title, detail, "", cause)
	e.Path = path
	return e
}
