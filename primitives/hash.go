package primitives

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // spec-mandated legacy digest alongside SHA-256
	"crypto/sha256"
	"hash"

	"github.com/r3e-network/go-secapi"
)

// DigestAlg names a supported hash algorithm (spec §4.5).
type DigestAlg int

const (
	SHA1 DigestAlg = iota
	SHA256
)

// Len returns the output length in bytes for the algorithm.
func (a DigestAlg) Len() int {
	switch a {
	case SHA1:
		return 20
	case SHA256:
		return 32
	default:
		return 0
	}
}

func (a DigestAlg) new() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, secapi.ErrUnimplemented("digest algorithm")
	}
}

// Digest is an incremental hash.Hash wrapper.
type Digest struct {
	h hash.Hash
}

// NewDigest starts a new running digest for alg.
func NewDigest(alg DigestAlg) (*Digest, error) {
	h, err := alg.new()
	if err != nil {
		return nil, err
	}
	return &Digest{h: h}, nil
}

// Update feeds more bytes into the running digest.
func (d *Digest) Update(p []byte) { d.h.Write(p) }

// Sum finalizes and returns the digest without mutating internal state
// further use (matching hash.Hash.Sum semantics).
func (d *Digest) Sum() []byte { return d.h.Sum(nil) }

// Sum256 / Sum1 are one-shot convenience wrappers.
func Sum256(p []byte) []byte {
	sum := sha256.Sum256(p)
	return sum[:]
}

func Sum1(p []byte) []byte {
	sum := sha1.Sum(p) //nolint:gosec
	return sum[:]
}

// HMAC computes a one-shot HMAC under key using alg's hash.
func HMAC(alg DigestAlg, key, data []byte) ([]byte, error) {
	switch alg {
	case SHA1:
		mac := hmac.New(sha1.New, key) //nolint:gosec
		mac.Write(data)
		return mac.Sum(nil), nil
	case SHA256:
		mac := hmac.New(sha256.New, key)
		mac.Write(data)
		return mac.Sum(nil), nil
	default:
		return nil, secapi.ErrUnimplemented("hmac algorithm")
	}
}

// NewHMAC starts an incremental HMAC for alg under key.
func NewHMAC(alg DigestAlg, key []byte) (*Digest, error) {
	switch alg {
	case SHA1:
		return &Digest{h: hmac.New(sha1.New, key)}, nil //nolint:gosec
	case SHA256:
		return &Digest{h: hmac.New(sha256.New, key)}, nil
	default:
		return nil, secapi.ErrUnimplemented("hmac algorithm")
	}
}
