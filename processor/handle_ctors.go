package processor

import (
	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/handles"
	"github.com/r3e-network/go-secapi/primitives"
)

// NewCipher constructs a symmetric Cipher handle bound to a key
// provisioned at id (spec §4.4).
func (p *Processor) NewCipher(id secapi.ObjectID, alg handles.CipherAlgorithm, mode handles.CipherMode, iv [16]byte) (*handles.Cipher, error) {
	return handles.NewSymmetricCipher(p, id, alg, mode, iv)
}

// NewRSACipher constructs an RSA Cipher handle bound to a key
// provisioned at id (spec §4.4).
func (p *Processor) NewRSACipher(id secapi.ObjectID, alg handles.CipherAlgorithm, mode handles.CipherMode) (*handles.Cipher, error) {
	return handles.NewRSACipher(p, id, alg, mode)
}

// NewDigest constructs a Digest handle (spec §4.5). Digest takes no key
// reference at construction; update_with_key supplies one per call.
func (p *Processor) NewDigest(alg primitives.DigestAlg) (*handles.Digest, error) {
	return handles.NewDigest(alg)
}

// NewMac constructs a MAC handle bound to a key provisioned at id
// (spec §4.5).
func (p *Processor) NewMac(id secapi.ObjectID, alg handles.MacAlgorithm) (*handles.Mac, error) {
	return handles.NewMac(p, id, alg)
}

// NewSignature constructs a Signature handle bound to an RSA key
// provisioned at id (spec §4.5).
func (p *Processor) NewSignature(id secapi.ObjectID, alg handles.SignatureAlgorithm, mode handles.CipherMode) (*handles.Signature, error) {
	return handles.NewSignature(p, id, alg, mode)
}

// NewRandom constructs a Random handle (spec §4.5/§6).
func (p *Processor) NewRandom() *handles.Random {
	return handles.NewRandom()
}

// UpdateDigestWithKey feeds the key at id into d, matching the
// update_with_key contract (spec §4.5).
func (p *Processor) UpdateDigestWithKey(d *handles.Digest, id secapi.ObjectID) error {
	return d.UpdateWithKey(p, id)
}

// UpdateMacWithKey feeds the key at id into m, matching the
// update_with_key contract (spec §4.5).
func (p *Processor) UpdateMacWithKey(m *handles.Mac, id secapi.ObjectID) error {
	return m.UpdateWithKey(p, id)
}
