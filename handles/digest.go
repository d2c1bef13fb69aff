package handles

import (
	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/primitives"
)

// Digest is a running SHA-1/SHA-256 hash session (spec §4.5).
type Digest struct {
	d        *primitives.Digest
	released bool
}

// NewDigest starts a fresh digest session.
func NewDigest(alg primitives.DigestAlg) (*Digest, error) {
	d, err := primitives.NewDigest(alg)
	if err != nil {
		return nil, err
	}
	return &Digest{d: d}, nil
}

// Update feeds bytes into the running hash.
func (d *Digest) Update(data []byte) error {
	if d.released {
		return secapi.ErrFailure("digest: update after release", nil)
	}
	d.d.Update(data)
	return nil
}

// UpdateWithKey transiently materializes the referenced symmetric key and
// feeds its raw bytes into the running hash exactly once, zeroizing
// immediately after (spec §4.5).
func (d *Digest) UpdateWithKey(source KeySource, id secapi.ObjectID) error {
	if d.released {
		return secapi.ErrFailure("digest: update after release", nil)
	}
	secret, _, err := source.MaterializeSymmetric(id)
	if err != nil {
		return err
	}
	defer secret.Release()
	d.d.Update(secret.Bytes())
	return nil
}

// Release finalizes the digest and frees the session. Safe to call once;
// a second call returns an error rather than silently re-finalizing.
func (d *Digest) Release() ([]byte, error) {
	if d.released {
		return nil, secapi.ErrFailure("digest: already released", nil)
	}
	sum := d.d.Sum()
	d.released = true
	return sum, nil
}
