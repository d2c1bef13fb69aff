// Package handles implements the opaque operation handles spec.md §4.4
// and §4.5 describe: Cipher, MAC, Digest, Signature, and Random. Every
// handle consumes a key only by reference (an ObjectID resolved through a
// KeySource), materializes plaintext transiently into a secretbuf.Secret,
// and zeroizes it on Release — callers never see raw key bytes.
package handles

import (
	"crypto/rsa"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/internal/secretbuf"
)

// KeySource resolves an ObjectID to materialized key bytes. The processor
// package implements this by running Repository.GetKey through
// securestore.Retrieve and, if the inner container is DERIVED,
// ladder.Unwrap — handles never talks to the ladder or repository
// directly, so it stays testable against a fake.
type KeySource interface {
	MaterializeSymmetric(id secapi.ObjectID) (*secretbuf.Secret, secapi.KeyType, error)
	MaterializeRSAPrivate(id secapi.ObjectID) (*rsa.PrivateKey, error)
	MaterializeRSAPublic(id secapi.ObjectID) (*rsa.PublicKey, error)
}
