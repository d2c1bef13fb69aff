package codec

import (
	"crypto/rsa"
	"crypto/x509"

	"github.com/youmark/pkcs8"

	"github.com/r3e-network/go-secapi"
)

// ParsePKCS8 parses a ContainerDERPKCS8 blob. It tries
// github.com/youmark/pkcs8 first, falling back to the standard library's
// x509.ParsePKCS8PrivateKey. No password is passed to either parser, so
// only unencrypted PKCS8 is accepted; a password-protected blob is
// rejected with INVALID_PARAMETERS.
func ParsePKCS8(der []byte) (*rsa.PrivateKey, error) {
	if key, err := pkcs8.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, secapi.ErrInvalidParameters("pkcs8 key is not RSA")
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("pkcs8 parse: " + err.Error())
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, secapi.ErrInvalidParameters("pkcs8 key is not RSA")
	}
	return rsaKey, nil
}

// MarshalPKCS8 emits an unencrypted DER-PKCS8 blob for priv.
func MarshalPKCS8(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, secapi.ErrFailure("pkcs8 marshal", err)
	}
	return der, nil
}

// ParseDERRSAPublic parses a ContainerDERRSAPublic blob, accepting both a
// SubjectPublicKeyInfo wrapper and a bare PKCS1 RSAPublicKey (spec §3).
func ParseDERRSAPublic(der []byte) (*rsa.PublicKey, error) {
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, secapi.ErrInvalidParameters("der public key is not RSA")
		}
		return rsaPub, nil
	}
	if pub, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return pub, nil
	}
	return nil, secapi.ErrInvalidParameters("der rsa public key: unrecognized encoding")
}

// MarshalDERRSAPublic emits a SubjectPublicKeyInfo-wrapped DER public key.
func MarshalDERRSAPublic(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, secapi.ErrFailure("der public key marshal", err)
	}
	return der, nil
}

// ParseCertificate parses a DER X.509 certificate blob.
func ParseCertificate(der []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("certificate parse: " + err.Error())
	}
	return cert, nil
}

// CertificateRSAPublicKey extracts the RSA public key embedded in cert.
func CertificateRSAPublicKey(cert *x509.Certificate) (*rsa.PublicKey, error) {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, secapi.ErrInvalidParameters("certificate does not carry an RSA public key")
	}
	return pub, nil
}
