// Package derivation implements the four key-derivation functions rooted
// at the base key (spec.md §4.6): HKDF, NIST SP 800-56A Concat-KDF,
// PBKDF2, and the vendor AES-128 ladder-input derivation. The key-ladder
// AES-128 derivation needs no computation and lives in package processor.
package derivation

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/primitives"
)

// DigestAlg names the hash underlying a derivation.
type DigestAlg int

const (
	SHA1 DigestAlg = iota
	SHA256
)

func (a DigestAlg) new() func() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New
	case SHA256:
		return sha256.New
	default:
		return nil
	}
}

func (a DigestAlg) size() int {
	switch a {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	default:
		return 0
	}
}

// HKDF runs RFC 5869 HKDF-Extract-and-Expand with ikm as the input key
// material (the caller passes BASE_KEY_MAC) and truncates the expanded
// output to length bytes.
func HKDF(alg DigestAlg, ikm, salt, info []byte, length int) ([]byte, error) {
	newHash := alg.new()
	if newHash == nil {
		return nil, secapi.ErrUnimplemented("hkdf: unsupported digest")
	}
	if length <= 0 {
		return nil, secapi.ErrInvalidParameters("hkdf: length must be positive")
	}
	r := hkdf.New(newHash, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, secapi.ErrFailure("hkdf: expand", err)
	}
	return out, nil
}

// ConcatKDF runs the NIST SP 800-56A §5.8.1 single-step KDF: blocks of
// digest(counter_be32 || z || otherInfo) concatenated and truncated to
// length bytes, where z is the caller's key material (BASE_KEY_AES).
func ConcatKDF(alg DigestAlg, z, otherInfo []byte, length int) ([]byte, error) {
	newHash := alg.new()
	if newHash == nil {
		return nil, secapi.ErrUnimplemented("concat-kdf: unsupported digest")
	}
	if length <= 0 {
		return nil, secapi.ErrInvalidParameters("concat-kdf: length must be positive")
	}

	hashSize := alg.size()
	blocks := (length + hashSize - 1) / hashSize
	out := make([]byte, 0, blocks*hashSize)

	for counter := uint32(1); counter <= uint32(blocks); counter++ {
		h := newHash()
		var ctr [4]byte
		binary.BigEndian.PutUint32(ctr[:], counter)
		h.Write(ctr[:])
		h.Write(z)
		h.Write(otherInfo)
		out = append(out, h.Sum(nil)...)
	}
	return out[:length], nil
}

// PBKDF2 runs RFC 2898 PBKDF2 with the given HMAC digest, deriving
// length bytes from ikm (BASE_KEY_MAC) using salt and iterations.
func PBKDF2(alg DigestAlg, ikm, salt []byte, iterations, length int) ([]byte, error) {
	newHash := alg.new()
	if newHash == nil {
		return nil, secapi.ErrUnimplemented("pbkdf2: unsupported digest")
	}
	if iterations <= 0 || length <= 0 {
		return nil, secapi.ErrInvalidParameters("pbkdf2: iterations and length must be positive")
	}
	return pbkdf2.Key(ikm, salt, iterations, length, newHash), nil
}

// VendorAES128Inputs computes the two 16-byte ladder inputs the vendor
// AES-128 derivation installs as a DERIVED container: the first and
// second halves of SHA-256(input).
func VendorAES128Inputs(input []byte) (input1, input2 [16]byte) {
	digest := sha256.Sum256(input)
	copy(input1[:], digest[:16])
	copy(input2[:], digest[16:])
	return
}

// ComputeBaseKeyDigest hashes the materialized BASE_KEY_AES bytes with the
// requested algorithm, per Key_ComputeBaseKeyDigest (spec §6, §8 scenario
// 5). The digest lets a caller fingerprint which base key is live without
// ever exposing the key bytes themselves.
func ComputeBaseKeyDigest(alg primitives.DigestAlg, baseKeyAES []byte) ([]byte, error) {
	return primitives.HashDigest(alg, baseKeyAES)
}
