package codec

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/r3e-network/go-secapi"
)

// ParsePEMRSAPrivate decodes a ContainerPEMRSAPrivate blob: a single PEM
// block wrapping either a PKCS1 "RSA PRIVATE KEY" or a PKCS8 "PRIVATE KEY".
func ParsePEMRSAPrivate(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, secapi.ErrInvalidParameters("pem rsa private: no PEM block found")
	}
	if priv, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return priv, nil
	}
	return ParsePKCS8(block.Bytes)
}

// MarshalPEMRSAPrivate emits a PKCS1 "RSA PRIVATE KEY" PEM block.
func MarshalPEMRSAPrivate(priv *rsa.PrivateKey) []byte {
	der := x509.MarshalPKCS1PrivateKey(priv)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
}

// ParsePEMRSAPublic decodes a ContainerPEMRSAPublic blob.
func ParsePEMRSAPublic(raw []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, secapi.ErrInvalidParameters("pem rsa public: no PEM block found")
	}
	return ParseDERRSAPublic(block.Bytes)
}

// MarshalPEMRSAPublic emits a "PUBLIC KEY" PEM block (SubjectPublicKeyInfo).
func MarshalPEMRSAPublic(pub *rsa.PublicKey) ([]byte, error) {
	der, err := MarshalDERRSAPublic(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
