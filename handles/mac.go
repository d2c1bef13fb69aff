package handles

import (
	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/internal/secretbuf"
	"github.com/r3e-network/go-secapi/primitives"
)

// MacAlgorithm names the MAC handle's algorithm (spec §4.5).
type MacAlgorithm int

const (
	HMACSHA1 MacAlgorithm = iota
	HMACSHA256
	CMACAES128
)

// Mac is a running MAC session bound to one key reference. HMAC variants
// stream incrementally through a primitives.Digest; CMAC-AES-128 has no
// incremental construction (it is a CBC-MAC over the whole message), so
// Update calls are buffered and the MAC computed once on Release.
type Mac struct {
	alg      MacAlgorithm
	key      *secretbuf.Secret
	hmac     *primitives.Digest // HMAC only
	buf      []byte             // CMAC only
	released bool
}

// NewMac materializes the MAC key referenced by id for the session.
func NewMac(source KeySource, id secapi.ObjectID, alg MacAlgorithm) (*Mac, error) {
	secret, _, err := source.MaterializeSymmetric(id)
	if err != nil {
		return nil, err
	}
	m := &Mac{alg: alg, key: secretbuf.NewFromCopy(secret.Bytes())}
	secret.Release()

	if alg == HMACSHA1 || alg == HMACSHA256 {
		digestAlg := primitives.SHA256
		if alg == HMACSHA1 {
			digestAlg = primitives.SHA1
		}
		d, err := primitives.NewHMAC(digestAlg, m.key.Bytes())
		if err != nil {
			m.key.Release()
			return nil, err
		}
		m.hmac = d
	}
	return m, nil
}

// Update feeds bytes into the running MAC.
func (m *Mac) Update(data []byte) error {
	if m.released {
		return secapi.ErrFailure("mac: update after release", nil)
	}
	if m.hmac != nil {
		m.hmac.Update(data)
		return nil
	}
	m.buf = append(m.buf, data...)
	return nil
}

// UpdateWithKey transiently materializes a second referenced key and
// feeds its raw bytes into the running MAC exactly once (spec §4.5).
func (m *Mac) UpdateWithKey(source KeySource, id secapi.ObjectID) error {
	if m.released {
		return secapi.ErrFailure("mac: update after release", nil)
	}
	secret, _, err := source.MaterializeSymmetric(id)
	if err != nil {
		return err
	}
	defer secret.Release()
	return m.Update(secret.Bytes())
}

// Release finalizes the MAC, zeroizes the session key, and frees the
// session.
func (m *Mac) Release() ([]byte, error) {
	if m.released {
		m.key.Release()
		return nil, secapi.ErrFailure("mac: already released", nil)
	}
	var out []byte
	var err error
	if m.hmac != nil {
		out = m.hmac.Sum()
	} else {
		out, err = primitives.CMAC(m.key.Bytes(), m.buf)
	}
	m.released = true
	m.key.Release()
	if err != nil {
		return nil, secapi.ErrFailure("mac: cmac finalize", err)
	}
	return out, nil
}
