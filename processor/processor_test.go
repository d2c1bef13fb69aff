package processor

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/codec"
	"github.com/r3e-network/go-secapi/derivation"
	"github.com/r3e-network/go-secapi/handles"
	"github.com/r3e-network/go-secapi/primitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T) (*Processor, string, string, string) {
	t.Helper()
	root := t.TempDir()
	keysDir := filepath.Join(root, "keys")
	certsDir := filepath.Join(root, "certs")
	bundlesDir := filepath.Join(root, "bundles")
	p, err := GetInstance(keysDir, certsDir, bundlesDir)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, keysDir, certsDir, bundlesDir
}

func TestGetInstanceBootstrapsReservedKeys(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)

	ids := p.ListKeys()
	assert.Contains(t, ids, secapi.ObjectIDStoreAESKey)
	assert.Contains(t, ids, secapi.ObjectIDStoreMACGenKey)
	assert.Contains(t, ids, secapi.ObjectIDBaseKeyAES)
	assert.Contains(t, ids, secapi.ObjectIDBaseKeyMAC)
	assert.Contains(t, ids, secapi.ObjectIDCertStoreKey)

	assert.Equal(t, secapi.FakeDeviceID, p.GetDeviceId())
	assert.Equal(t, 2, p.GetKeyLadderMinDepth(secapi.RootUnique))
	assert.Equal(t, 0, p.GetKeyLadderMinDepth(secapi.RootOEM))
}

func TestReservedKeysAreNonRemovable(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	err := p.DeleteKey(secapi.ObjectIDStoreAESKey)
	require.Error(t, err)
	assert.Equal(t, secapi.ItemNonRemovable, secapi.CodeOf(err))
}

// TestCipherAES128CBCPKCS7RoundTripRAM is spec §8 scenario 2 run through
// the full processor pipeline: provision a raw AES-128 key at a caller
// object ID, build a Cipher handle over it, round-trip a non-block-
// aligned message.
func TestCipherAES128CBCPKCS7RoundTripRAM(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)

	const keyID secapi.ObjectID = 1000
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	require.NoError(t, p.ProvisionKey(keyID, secapi.LocationRAM, secapi.KeyTypeAES128, secapi.ContainerRawSymmetric, key))

	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	enc, err := p.NewCipher(keyID, handles.AESCBCPKCS7, handles.ModeEncrypt, [16]byte{})
	require.NoError(t, err)
	n, err := enc.Process(plaintext, true, nil)
	require.NoError(t, err)
	ciphertext := make([]byte, n)
	written, err := enc.Process(plaintext, true, ciphertext)
	require.NoError(t, err)
	ciphertext = ciphertext[:written]
	enc.Release()

	dec, err := p.NewCipher(keyID, handles.AESCBCPKCS7, handles.ModeDecrypt, [16]byte{})
	require.NoError(t, err)
	n, err = dec.Process(ciphertext, true, nil)
	require.NoError(t, err)
	recovered := make([]byte, n)
	written, err = dec.Process(ciphertext, true, recovered)
	require.NoError(t, err)
	dec.Release()

	assert.Equal(t, plaintext, recovered[:written])
}

// TestProvisionKeyFilePersistsAcrossReopen is spec §8 scenario 2's
// persistent-storage half: a FILE-tier key survives Release and a fresh
// GetInstance over the same directories.
func TestProvisionKeyFilePersistsAcrossReopen(t *testing.T) {
	p, keysDir, certsDir, bundlesDir := newTestProcessor(t)

	const keyID secapi.ObjectID = 1001
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(0xA0 + i)
	}
	require.NoError(t, p.ProvisionKey(keyID, secapi.LocationFile, secapi.KeyTypeAES128, secapi.ContainerRawSymmetric, key))
	p.Release()

	p2, err := GetInstance(keysDir, certsDir, bundlesDir)
	require.NoError(t, err)
	defer p2.Release()

	secret, kt, err := p2.MaterializeSymmetric(keyID)
	require.NoError(t, err)
	defer secret.Release()
	assert.Equal(t, secapi.KeyTypeAES128, kt)
	assert.Equal(t, key, secret.Bytes())
}

// TestCertificateRoundTripFileLocation is spec §8 scenario 3: provision a
// self-signed certificate at a FILE-tier object ID, confirm it survives a
// processor release/reopen, and confirm a bit-flip in the persisted DER
// is caught by the cert-store MAC.
func TestCertificateRoundTripFileLocation(t *testing.T) {
	p, keysDir, certsDir, bundlesDir := newTestProcessor(t)

	der := selfSignedDER(t)
	const certID secapi.ObjectID = 2000
	require.NoError(t, p.ProvisionCertificate(certID, secapi.LocationFile, der))

	got, err := p.GetCertificateDER(certID)
	require.NoError(t, err)
	assert.Equal(t, der, got)

	p.Release()
	p2, err := GetInstance(keysDir, certsDir, bundlesDir)
	require.NoError(t, err)
	defer p2.Release()

	got2, err := p2.GetCertificateDER(certID)
	require.NoError(t, err)
	assert.Equal(t, der, got2)

	certPath := filepath.Join(certsDir, "2000.cert")
	raw, err := os.ReadFile(certPath)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(certPath, raw, 0o600))

	p3, err := GetInstance(keysDir, certsDir, bundlesDir)
	require.NoError(t, err)
	defer p3.Release()

	_, err = p3.GetCertificateDER(certID)
	require.Error(t, err)
	assert.Equal(t, secapi.VerificationFailed, secapi.CodeOf(err))
}

func TestDeriveHKDFInstallsSymmetricKey(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)

	var nonce [20]byte
	copy(nonce[:], "0123456789abcdefghi")
	const outID secapi.ObjectID = 3000
	require.NoError(t, p.DeriveHKDF(outID, secapi.LocationRAM, derivation.SHA256, secapi.KeyTypeAES256, nonce, []byte("salt"), []byte("info")))

	kt, err := p.GetKeyType(outID)
	require.NoError(t, err)
	assert.Equal(t, secapi.KeyTypeAES256, kt)

	secret, _, err := p.MaterializeSymmetric(outID)
	require.NoError(t, err)
	defer secret.Release()
	assert.Len(t, secret.Bytes(), 32)
}

func TestDeriveKeyLadderAES128RejectsNonUniqueRoot(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	err := p.DeriveKeyLadderAES128(4000, secapi.LocationRAM, secapi.RootOEM, [16]byte{}, [16]byte{})
	require.Error(t, err)
	assert.Equal(t, secapi.UnimplementedFeature, secapi.CodeOf(err))
}

func TestDeriveVendorAES128InstallsDerivedContainer(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	const outID secapi.ObjectID = 4001
	require.NoError(t, p.DeriveVendorAES128(outID, secapi.LocationRAM, []byte("some vendor-specific input material")))

	secret, kt, err := p.MaterializeSymmetric(outID)
	require.NoError(t, err)
	defer secret.Release()
	assert.Equal(t, secapi.KeyTypeAES128, kt)
	assert.Len(t, secret.Bytes(), 16)
}

func TestComputeBaseKeyDigestMatchesAcrossCalls(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	d1, err := p.ComputeBaseKeyDigest(derivation.SHA1)
	require.NoError(t, err)
	d2, err := p.ComputeBaseKeyDigest(derivation.SHA1)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, primitives.SHA1.Len())
}

func TestBundleProvisionGetDelete(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	const bundleID secapi.ObjectID = 5000
	payload := []byte("opaque bundle bytes")

	require.NoError(t, p.ProvisionBundle(bundleID, secapi.LocationFile, payload))
	got, err := p.GetBundle(bundleID)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Contains(t, p.ListBundles(), bundleID)

	require.NoError(t, p.DeleteBundle(bundleID))
	_, err = p.GetBundle(bundleID)
	require.Error(t, err)
	assert.Equal(t, secapi.NoSuchItem, secapi.CodeOf(err))
}

func TestRandomAndDigestHandles(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)

	r := p.NewRandom()
	b, err := r.Process(32)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	d, err := p.NewDigest(primitives.SHA256)
	require.NoError(t, err)
	require.NoError(t, d.Update([]byte("hello")))
	sum, err := d.Release()
	require.NoError(t, err)
	assert.Len(t, sum, 32)
}

// TestExtractPublicKeyReturnsRawStruct confirms Key_ExtractPublicKey
// (spec §6) emits the raw RSA public struct codec.MarshalRawRSAPublic
// defines, not a bare (n, e) pair, by round-tripping it through
// codec.ParseRawRSAPublic and comparing against the source key.
func TestExtractPublicKeyReturnsRawStruct(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)

	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	rawPriv, err := codec.MarshalRawRSAPrivate(priv)
	require.NoError(t, err)

	const keyID secapi.ObjectID = 6000
	require.NoError(t, p.ProvisionKey(keyID, secapi.LocationRAM, secapi.KeyTypeRSA1024, secapi.ContainerRawRSAPrivate, rawPriv))

	raw, err := p.ExtractPublicKey(keyID)
	require.NoError(t, err)

	pub, err := codec.ParseRawRSAPublic(raw)
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey.N, pub.N)
	assert.Equal(t, priv.PublicKey.E, pub.E)
}

func selfSignedDER(t *testing.T) []byte {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "secapi-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	return der
}
