package handles

import (
	"crypto/rsa"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/primitives"
)

// SignatureAlgorithm names the Signature handle's algorithm (spec §4.5).
// The plain variants hash the input internally; the _Digest variants
// require the caller to supply an already-computed digest.
type SignatureAlgorithm int

const (
	RSASHA1PKCS1 SignatureAlgorithm = iota
	RSASHA1PKCS1Digest
	RSASHA256PKCS1
	RSASHA256PKCS1Digest
)

func (a SignatureAlgorithm) digestAlg() primitives.DigestAlg {
	if a == RSASHA1PKCS1 || a == RSASHA1PKCS1Digest {
		return primitives.SHA1
	}
	return primitives.SHA256
}

func (a SignatureAlgorithm) takesDigest() bool {
	return a == RSASHA1PKCS1Digest || a == RSASHA256PKCS1Digest
}

// Signature is a single-shot sign-or-verify session bound to one RSA key
// reference.
type Signature struct {
	alg  SignatureAlgorithm
	mode CipherMode // ModeEncrypt means sign, ModeDecrypt means verify
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

// NewSignature binds an RSA key reference: the private key for signing,
// the public key for verification.
func NewSignature(source KeySource, id secapi.ObjectID, alg SignatureAlgorithm, mode CipherMode) (*Signature, error) {
	s := &Signature{alg: alg, mode: mode}
	if mode == ModeEncrypt {
		priv, err := source.MaterializeRSAPrivate(id)
		if err != nil {
			return nil, err
		}
		s.priv = priv
		return s, nil
	}
	pub, err := source.MaterializeRSAPublic(id)
	if err != nil {
		return nil, err
	}
	s.pub = pub
	return s, nil
}

// Sign produces a signature over in: a digest computed from in unless the
// algorithm is a _Digest variant, in which case in must already be the
// digest of the requested length.
func (s *Signature) Sign(in []byte) ([]byte, error) {
	digest, err := s.resolveDigest(in)
	if err != nil {
		return nil, err
	}
	return primitives.RSASignPKCS1(s.priv, s.alg.digestAlg(), digest)
}

// Verify checks sig over in, returning a VERIFICATION_FAILED error
// distinct from a generic FAILURE (spec §4.5).
func (s *Signature) Verify(in, sig []byte) error {
	digest, err := s.resolveDigest(in)
	if err != nil {
		return err
	}
	return primitives.RSAVerifyPKCS1(s.pub, s.alg.digestAlg(), digest, sig)
}

func (s *Signature) resolveDigest(in []byte) ([]byte, error) {
	if s.alg.takesDigest() {
		if len(in) != s.alg.digestAlg().Len() {
			return nil, secapi.ErrInvalidInputSize("signature: input length does not match digest length")
		}
		return in, nil
	}
	return primitives.HashDigest(s.alg.digestAlg(), in)
}

// Release is a no-op placeholder matching the scoped-handle contract
// (spec §5): RSA key handles materialized via KeySource carry no session
// secret this package must zeroize beyond what the KeySource itself owns.
func (s *Signature) Release() {}
