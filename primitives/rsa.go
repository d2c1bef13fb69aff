package primitives

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"

	"github.com/r3e-network/go-secapi"
)

// RSAEncryptPKCS1 / RSADecryptPKCS1 implement single-shot RSAES-PKCS1-v1_5.
func RSAEncryptPKCS1(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
	if err != nil {
		return nil, secapi.ErrFailure("rsa pkcs1 encrypt", err)
	}
	return out, nil
}

func RSADecryptPKCS1(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	out, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	if err != nil {
		return nil, secapi.ErrFailure("rsa pkcs1 decrypt", err)
	}
	return out, nil
}

// RSAEncryptOAEP / RSADecryptOAEP implement single-shot RSAES-OAEP with
// SHA-256.
func RSAEncryptOAEP(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, secapi.ErrFailure("rsa oaep encrypt", err)
	}
	return out, nil
}

func RSADecryptOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	out, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, secapi.ErrFailure("rsa oaep decrypt", err)
	}
	return out, nil
}

// RSASignPKCS1 signs a precomputed digest of the given hash algorithm.
func RSASignPKCS1(priv *rsa.PrivateKey, alg DigestAlg, digest []byte) ([]byte, error) {
	h, err := rsaHashID(alg)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, h, digest)
	if err != nil {
		return nil, secapi.ErrFailure("rsa pkcs1 sign", err)
	}
	return sig, nil
}

// RSAVerifyPKCS1 verifies sig over digest, returning
// *secapi.Error(VerificationFailed) on mismatch (never Failure, per spec
// §4.5's distinction).
func RSAVerifyPKCS1(pub *rsa.PublicKey, alg DigestAlg, digest, sig []byte) error {
	h, err := rsaHashID(alg)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, h, digest, sig); err != nil {
		return secapi.ErrVerificationFailed("rsa pkcs1 signature", err)
	}
	return nil
}

func rsaHashID(alg DigestAlg) (crypto.Hash, error) {
	switch alg {
	case SHA1:
		return crypto.SHA1, nil
	case SHA256:
		return crypto.SHA256, nil
	default:
		return 0, secapi.ErrUnimplemented("rsa signature digest algorithm")
	}
}

// HashDigest computes a one-shot digest, used by Signature handles that
// hash the input internally before RSA signing (spec §4.5).
func HashDigest(alg DigestAlg, data []byte) ([]byte, error) {
	switch alg {
	case SHA1:
		sum := sha1.Sum(data) //nolint:gosec
		return sum[:], nil
	case SHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	default:
		return nil, secapi.ErrUnimplemented("digest algorithm")
	}
}

// GenerateRSAKey generates a fresh RSA private key of the given bit size.
// Used by tests needing throwaway keypairs; processor.GenerateKey does
// not call it, as that only fills symmetric keys.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, secapi.ErrFailure("rsa key generation", err)
	}
	return key, nil
}
