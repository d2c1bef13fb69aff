// Package ladder implements the two-stage AES-ECB key ladder (spec.md
// §4.2): a simulated hardware unwrap path rooted at the device's fake
// root key, plus the deterministic base-key provisioning recipe built on
// top of it.
package ladder

import (
	"crypto/sha1"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/internal/secretbuf"
	"github.com/r3e-network/go-secapi/primitives"
)

// Unwrap materializes a 16-byte key from two ladder inputs:
//
//	output = AES-ECB-encrypt( AES-ECB-encrypt(input1; root) ; input2 )
//
// The intermediate (the inner encryption's result) is held in a
// secretbuf.Secret and zeroed before return; only output is ever
// returned to the caller.
func Unwrap(root [16]byte, input1, input2 [16]byte) ([16]byte, error) {
	var out [16]byte
	stage1, err := primitives.ECBEncrypt(input1[:], root[:])
	if err != nil {
		return out, secapi.ErrFailure("ladder: stage 1", err)
	}
	s1 := secretbuf.New(stage1)
	defer s1.Release()
	stage2, err := primitives.ECBEncrypt(input2[:], s1.Bytes())
	if err != nil {
		return out, secapi.ErrFailure("ladder: stage 2", err)
	}
	s2 := secretbuf.New(stage2)
	defer s2.Release()
	copy(out[:], s2.Bytes())
	return out, nil
}

// BaseKeys is the pair of 16-byte keys installed by base-key provisioning:
// K4 serves as both BASE_KEY_AES and BASE_KEY_MAC (spec §4.2 step 3).
type BaseKeys struct {
	AES [16]byte
	MAC [16]byte
}

// ProvisionBaseKey runs the deterministic base-key recipe: four 16-byte
// ladder inputs are derived from the nonce via SHA-1
// domain-separation, then K0=root is walked through four AES-ECB
// encryptions, K4 becoming the base key material. Idempotent for a given
// nonce: the same nonce always yields the same K4.
func ProvisionBaseKey(root [16]byte, nonce [20]byte) (BaseKeys, error) {
	inputs, err := computeBaseKeyLadderInputs(nonce)
	if err != nil {
		return BaseKeys{}, err
	}

	k := root
	for _, c := range inputs {
		next, err := primitives.ECBEncrypt(c[:], k[:])
		if err != nil {
			return BaseKeys{}, secapi.ErrFailure("ladder: base key iteration", err)
		}
		s := secretbuf.New(next)
		copy(k[:], s.Bytes())
		s.Release()
	}

	return BaseKeys{AES: k, MAC: k}, nil
}

// computeBaseKeyLadderInputs derives the four 16-byte ladder inputs
// c1..c4 from fixed domain-separation strings and the caller's nonce, per
// spec §4.2 and the §8 determinism vector:
//
//	h1 = SHA1("sivSha1" || nonce)
//	h2 = SHA1("aesEcbNone" || nonce)
//
// c1, c2 are the first and second 16-byte halves of h1 padded to the hash
// length (h1 is 20 bytes: bytes[0:16] and bytes[4:20] respectively, the
// overlapping windows a 2-stage ladder over a 20-byte digest forces);
// c3, c4 are the same split of h2. This keeps every input pair fed
// directly into an AES-ECB encryption without reusing bytes verbatim
// across all four stages.
func computeBaseKeyLadderInputs(nonce [20]byte) ([4][16]byte, error) {
	var out [4][16]byte

	h1 := sha1Sum(append([]byte("sivSha1"), nonce[:]...))
	h2 := sha1Sum(append([]byte("aesEcbNone"), nonce[:]...))

	copy(out[0][:], h1[0:16])
	copy(out[1][:], h1[4:20])
	copy(out[2][:], h2[0:16])
	copy(out[3][:], h2[4:20])

	return out, nil
}

func sha1Sum(b []byte) [20]byte {
	return sha1.Sum(b)
}
