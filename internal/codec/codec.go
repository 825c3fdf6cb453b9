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

// Package codec implements the on-disk single-file container: the byte
// layout, the open/verify path, and the atomic write-temp-then-rename save
// path described in spec §4.2. It calls into vcrypto for key derivation,
// encryption, and the ciphertext integrity digest, and never itself
// interprets the decrypted JSON image beyond passing it through as bytes.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kraklabs/vaultdb/internal/vaulterr"
	"github.com/kraklabs/vaultdb/internal/vcrypto"
)

// Magic identifies a vaultdb container file.
var Magic = [4]byte{'V', 'D', 'B', '1'}

// FormatVersion is the only container version this codec understands.
const FormatVersion uint32 = 1

const digestHexLen = 64

// Options configures the write path.
type Options struct {
	// Iterations is the PBKDF2 round count for key derivation; 0 means
	// vcrypto.DefaultIterations.
	Iterations int
	// GzipLevel is the compression level applied to the JSON image before
	// encryption; 0 means gzip.DefaultCompression (level 6).
	GzipLevel int
}

func (o Options) iterations() int {
	if o.Iterations <= 0 {
		return vcrypto.DefaultIterations
	}
	return o.Iterations
}

func (o Options) gzipLevel() int {
	if o.GzipLevel == 0 {
		return gzip.DefaultCompression
	}
	return o.GzipLevel
}

// Opened is the result of a successful Open: the derived key (needed for
// subsequent saves and field encryption), the salt read from the file, and
// the decrypted, decompressed JSON image.
type Opened struct {
	Key   []byte
	Salt  []byte
	Image []byte
}

// Open reads, authenticates, and decrypts the container at path under
// passphrase. A missing file is reported via the wrapped os.ErrNotExist so
// callers can distinguish "create a fresh database" from a real read
// failure.
func Open(path string, passphrase []byte, opts Options) (*Opened, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, vaulterr.NewStorageError("could not read database file", err.Error(), path, err)
	}

	r := bytes.NewReader(raw)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != Magic {
		return nil, vaulterr.NewFormatError("unrecognized file", "magic bytes do not match VDB1", err)
	}

	version, err := readUint32(r)
	if err != nil || version != FormatVersion {
		return nil, vaulterr.NewFormatError("unsupported format version", fmt.Sprintf("expected version %d", FormatVersion), err)
	}

	saltLen, err := readUint32(r)
	if err != nil {
		return nil, vaulterr.NewFormatError("truncated header", "could not read salt length", err)
	}
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, vaulterr.NewFormatError("truncated header", "could not read salt", err)
	}

	digestLen, err := readUint32(r)
	if err != nil || digestLen != digestHexLen {
		return nil, vaulterr.NewFormatError("truncated header", "unexpected digest length", err)
	}
	digestBytes := make([]byte, digestHexLen)
	if _, err := io.ReadFull(r, digestBytes); err != nil {
		return nil, vaulterr.NewFormatError("truncated header", "could not read digest", err)
	}
	storedDigest := string(digestBytes)

	payloadLen, err := readUint32(r)
	if err != nil || payloadLen < vcrypto.IVSize {
		return nil, vaulterr.NewFormatError("truncated header", "invalid payload length", err)
	}
	iv := make([]byte, vcrypto.IVSize)
	if _, err := io.ReadFull(r, iv); err != nil {
		return nil, vaulterr.NewFormatError("truncated payload", "could not read iv", err)
	}
	ciphertext := make([]byte, payloadLen-vcrypto.IVSize)
	if _, err := io.ReadFull(r, ciphertext); err != nil {
		return nil, vaulterr.NewFormatError("truncated payload", "could not read ciphertext", err)
	}

	if !vcrypto.VerifyDigest(ciphertext, storedDigest) {
		return nil, vaulterr.NewIntegrityError("digest mismatch", "ciphertext digest does not match stored value")
	}

	key, _, err := vcrypto.DeriveKey(passphrase, salt, opts.iterations())
	if err != nil {
		return nil, vaulterr.NewCryptoError("key derivation failed", err.Error(), err)
	}

	compressed, err := vcrypto.Decrypt(ciphertext, iv, key)
	if err != nil {
		return nil, vaulterr.NewCryptoError("decryption failed", "wrong passphrase or corrupt file", err)
	}

	image, err := gunzip(compressed)
	if err != nil {
		return nil, vaulterr.NewCryptoError("decryption failed", "wrong passphrase or corrupt file: could not decompress json image", err)
	}

	return &Opened{Key: key, Salt: salt, Image: image}, nil
}

// Save atomically writes a fresh container for image under key/salt to
// path: compress, encrypt, digest, write to a sibling temp file, verify
// non-empty, then rename over the destination.
func Save(path string, key, salt, image []byte, opts Options) error {
	compressed, err := gzipBytes(image, opts.gzipLevel())
	if err != nil {
		return vaulterr.NewStorageError("save failed", "could not compress json image", path, err)
	}

	ciphertext, iv, err := vcrypto.Encrypt(compressed, key)
	if err != nil {
		return vaulterr.NewCryptoError("encryption failed", err.Error(), err)
	}
	digest := vcrypto.Digest(ciphertext)

	buf, err := buildContainer(salt, digest, iv, ciphertext)
	if err != nil {
		return vaulterr.NewStorageError("save failed", "could not build container", path, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0o600); err != nil {
		return vaulterr.NewStorageError("save failed", "could not write temp file", tmpPath, err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		return vaulterr.NewStorageError("save failed", "temp file was empty after write", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return vaulterr.NewStorageError("save failed", "could not rename temp file into place", path, err)
	}
	return nil
}

// Backup copies the current on-disk container verbatim — a whole-file byte
// copy, not a re-serialization of in-memory state (spec §4.2).
func Backup(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return vaulterr.NewStorageError("backup failed", "could not open source file", srcPath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o700); err != nil {
		return vaulterr.NewStorageError("backup failed", "could not create destination directory", destPath, err)
	}
	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return vaulterr.NewStorageError("backup failed", "could not create destination file", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return vaulterr.NewStorageError("backup failed", "could not copy file contents", destPath, err)
	}
	return nil
}

func buildContainer(salt []byte, digestHex string, iv, ciphertext []byte) ([]byte, error) {
	if len(digestHex) != digestHexLen {
		return nil, fmt.Errorf("codec: digest must be %d hex chars, got %d", digestHexLen, len(digestHex))
	}
	if _, err := hex.DecodeString(digestHex); err != nil {
		return nil, fmt.Errorf("codec: digest is not valid hex: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(Magic[:])
	writeUint32(&buf, FormatVersion)
	writeUint32(&buf, uint32(len(salt)))
	buf.Write(salt)
	writeUint32(&buf, digestHexLen)
	buf.WriteString(digestHex)
	payloadLen := uint32(len(iv) + len(ciphertext))
	writeUint32(&buf, payloadLen)
	buf.Write(iv)
	buf.Write(ciphertext)
	return buf.Bytes(), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func gzipBytes(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
