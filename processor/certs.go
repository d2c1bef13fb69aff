package processor

import (
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/codec"
	"github.com/r3e-network/go-secapi/infrastructure/security"
	"github.com/r3e-network/go-secapi/primitives"
	"github.com/r3e-network/go-secapi/repository"
)

// certStoreKey materializes the CERTSTORE_KEY object (spec §3: "MAC is
// HMAC-SHA-256 over the DER under the cert-store MAC key").
func (p *Processor) certStoreKey() ([]byte, error) {
	rec, err := p.repo.GetKey(secapi.ObjectIDCertStoreKey)
	if err != nil {
		return nil, err
	}
	return rec.Blob, nil
}

func (p *Processor) certMAC(der []byte) ([32]byte, error) {
	var out [32]byte
	key, err := p.certStoreKey()
	if err != nil {
		return out, err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(der)
	copy(out[:], mac.Sum(nil))
	return out, nil
}

// ProvisionCertificate validates der as an X.509 certificate, computes
// its MAC under the cert-store key, and installs the record at id
// (spec §3, §4.3).
func (p *Processor) ProvisionCertificate(id secapi.ObjectID, location secapi.Location, der []byte) error {
	if _, err := codec.ParseCertificate(der); err != nil {
		// x509 parse errors can quote the malformed ASN.1 bytes verbatim;
		// scrub before it reaches a caller (spec §4.8's never-leak
		// discipline applies to error paths too).
		return secapi.New(secapi.CodeOf(err), security.SanitizeError(err))
	}
	mac, err := p.certMAC(der)
	if err != nil {
		return err
	}
	return p.repo.ProvisionCert(&repository.CertRecord{ID: id, Location: location, DER: der, MAC: mac})
}

// GetCertificateDER retrieves and integrity-checks the certificate at id,
// returning VERIFICATION_FAILED on a MAC mismatch (spec §3).
func (p *Processor) GetCertificateDER(id secapi.ObjectID) ([]byte, error) {
	rec, err := p.repo.GetCert(id)
	if err != nil {
		return nil, err
	}
	want, err := p.certMAC(rec.DER)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(want[:], rec.MAC[:]) != 1 {
		return nil, secapi.ErrVerificationFailed("certificate MAC mismatch", nil)
	}
	return rec.DER, nil
}

// ExtractCertificatePublicKey returns the RSA public key embedded in the
// certificate at id.
func (p *Processor) ExtractCertificatePublicKey(id secapi.ObjectID) (*rsa.PublicKey, error) {
	der, err := p.GetCertificateDER(id)
	if err != nil {
		return nil, err
	}
	cert, err := codec.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return codec.CertificateRSAPublicKey(cert)
}

// DeleteCertificate removes the certificate at id from every tier.
func (p *Processor) DeleteCertificate(id secapi.ObjectID) error {
	return p.repo.DeleteCert(id)
}

// ListCertificates enumerates every provisioned certificate's object ID.
func (p *Processor) ListCertificates() []secapi.ObjectID {
	return p.repo.ListCerts()
}

// VerifyCertificate checks signature over data (hashed with alg) using
// the certificate at id's embedded public key (spec §6's
// Certificate_Verify).
func (p *Processor) VerifyCertificate(id secapi.ObjectID, alg primitives.DigestAlg, data, signature []byte) error {
	pub, err := p.ExtractCertificatePublicKey(id)
	if err != nil {
		return err
	}
	digest, err := primitives.HashDigest(alg, data)
	if err != nil {
		return err
	}
	return primitives.RSAVerifyPKCS1(pub, alg, digest, signature)
}

// VerifyCertificateWithRawPublicKey checks signature over data using a
// caller-supplied raw RSA public key struct instead of a stored
// certificate (spec §6's Certificate_VerifyWithRawPublicKey).
func (p *Processor) VerifyCertificateWithRawPublicKey(rawPub []byte, alg primitives.DigestAlg, data, signature []byte) error {
	pub, err := codec.ParseRawRSAPublic(rawPub)
	if err != nil {
		return err
	}
	digest, err := primitives.HashDigest(alg, data)
	if err != nil {
		return err
	}
	return primitives.RSAVerifyPKCS1(pub, alg, digest, signature)
}
