// Package processor implements the root handle spec.md §4.7 describes: it
// owns the storage directories, the RAM/file object repository, the fake
// device identity, and bootstraps the store keys and cert-store key every
// other component is rooted at. It is the only package that implements
// handles.KeySource, since it is the only place that knows how a
// reserved object ID's container type maps to a ladder unwrap.
package processor

import (
	"crypto/rsa"
	"crypto/sha1"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/codec"
	"github.com/r3e-network/go-secapi/derivation"
	"github.com/r3e-network/go-secapi/internal/secretbuf"
	"github.com/r3e-network/go-secapi/ladder"
	"github.com/r3e-network/go-secapi/repository"
	"github.com/r3e-network/go-secapi/securestore"
)

// Processor is the root handle. One Processor owns one set of storage
// directories and the RAM/file object repository rooted there.
type Processor struct {
	repo     *repository.Repository
	root     [16]byte
	deviceID [8]byte
	magic    [8]byte
}

// fixed domain-separation ladder inputs for the store-AES and
// store-MAC-gen keys (spec §4.7): four 16-byte constants, distinct from
// the base-key recipe's own c1..c4, each the first 16 bytes of a SHA-1
// digest of a fixed label.
var (
	storeAESInput1 = label16("secapi/store-aes/input1")
	storeAESInput2 = label16("secapi/store-aes/input2")
	storeMACInput1 = label16("secapi/store-mac/input1")
	storeMACInput2 = label16("secapi/store-mac/input2")
)

func label16(s string) [16]byte {
	h := sha1.Sum([]byte(s))
	var out [16]byte
	copy(out[:], h[:16])
	return out
}

// startupNonce and certOtherInfo are the fixed parameters spec §4.6
// names for the boot-time cert-store key derivation.
var startupNonce = func() [20]byte {
	var n [20]byte
	copy(n[:], "abcdefghijklmnopqr\x00\x00")
	return n
}()

var certOtherInfo = []byte("certMacKey" + "hmacSha256" + "concatKdfSha1")

// GetInstance creates a processor rooted at the three given storage
// directories (spec §4.7): creates them if absent, installs the fake
// device identity and root key, derives the store-AES/store-MAC keys via
// the ladder, provisions the base key under the fixed startup nonce, and
// derives the cert-store MAC key via Concat-KDF. Failure at any step
// releases partial state before returning.
func GetInstance(keysDir, certsDir, bundlesDir string) (*Processor, error) {
	dirs, err := repository.NewDirs(keysDir, certsDir, bundlesDir)
	if err != nil {
		return nil, err
	}

	var magic [8]byte
	copy(magic[:], secapi.KeyStoreMagic)

	p := &Processor{
		repo:     repository.New(dirs),
		root:     secapi.DeviceRootKey,
		deviceID: secapi.FakeDeviceID,
		magic:    magic,
	}

	if err := p.bootstrapStoreKeys(); err != nil {
		p.Release()
		return nil, err
	}
	if err := p.bootstrapBaseKey(); err != nil {
		p.Release()
		return nil, err
	}
	if err := p.bootstrapCertStoreKey(); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// bootstrapStoreKeys installs the store-AES and store-MAC-gen keys as
// DERIVED containers (spec §4.1/§4.2): the repository holds the two
// 16-byte ladder inputs, never the materialized key, and Materialize*
// unwraps them on demand for each store() / retrieve() call.
func (p *Processor) bootstrapStoreKeys() error {
	aesInputs := codec.DerivedInputs{Input1: storeAESInput1, Input2: storeAESInput2}
	macInputs := codec.DerivedInputs{Input1: storeMACInput1, Input2: storeMACInput2}

	if err := p.repo.ProvisionKey(&repository.KeyRecord{
		ID: secapi.ObjectIDStoreAESKey, KeyType: secapi.KeyTypeAES128,
		Container: secapi.ContainerDerivedInputs, Location: secapi.LocationRAMSoftWrapped,
		Blob: codec.MarshalDerivedInputs(aesInputs),
	}); err != nil {
		return err
	}
	return p.repo.ProvisionKey(&repository.KeyRecord{
		ID: secapi.ObjectIDStoreMACGenKey, KeyType: secapi.KeyTypeHMAC128,
		Container: secapi.ContainerDerivedInputs, Location: secapi.LocationRAMSoftWrapped,
		Blob: codec.MarshalDerivedInputs(macInputs),
	})
}

// bootstrapBaseKey runs the base-key provisioning recipe under the fixed
// startup nonce and installs K4 as BASE_KEY_AES/BASE_KEY_MAC (spec §4.2).
func (p *Processor) bootstrapBaseKey() error {
	_, err := p.reprovisionBaseKey(startupNonce)
	return err
}

// bootstrapCertStoreKey derives CERTSTORE_KEY via Concat-KDF over
// BASE_KEY_AES with the fixed otherInfo spec §4.6 names.
func (p *Processor) bootstrapCertStoreKey() error {
	baseAES, err := p.repo.GetKey(secapi.ObjectIDBaseKeyAES)
	if err != nil {
		return err
	}
	key, err := derivation.ConcatKDF(derivation.SHA1, baseAES.Blob, certOtherInfo, 32)
	if err != nil {
		return err
	}
	return p.repo.ProvisionKey(&repository.KeyRecord{
		ID: secapi.ObjectIDCertStoreKey, KeyType: secapi.KeyTypeHMAC256,
		Container: secapi.ContainerRawSymmetric, Location: secapi.LocationRAMSoftWrapped,
		Blob: key,
	})
}

// GetDeviceId returns the fake constant device identifier (spec §4.7/§6).
func (p *Processor) GetDeviceId() [8]byte { return p.deviceID }

// GetKeyLadderMinDepth / GetKeyLadderMaxDepth report 2 for the UNIQUE
// root and 0 for every other (unimplemented) root, per spec §9's design
// note.
func (p *Processor) GetKeyLadderMinDepth(root secapi.Root) int { return ladderDepth(root) }
func (p *Processor) GetKeyLadderMaxDepth(root secapi.Root) int { return ladderDepth(root) }

func ladderDepth(root secapi.Root) int {
	if root == secapi.RootUnique {
		return 2
	}
	return 0
}

// Release zeroizes and frees every RAM-resident record (spec §4.3/§4.7).
func (p *Processor) Release() {
	if p.repo != nil {
		p.repo.Release()
	}
}

func (p *Processor) materializeStoreKeys() (securestore.Keys, error) {
	aes, _, err := p.MaterializeSymmetric(secapi.ObjectIDStoreAESKey)
	if err != nil {
		return securestore.Keys{}, err
	}
	defer aes.Release()
	mac, _, err := p.MaterializeSymmetric(secapi.ObjectIDStoreMACGenKey)
	if err != nil {
		return securestore.Keys{}, err
	}
	defer mac.Release()

	var keys securestore.Keys
	copy(keys.AESKey[:], aes.Bytes())
	copy(keys.MACKey[:], mac.Bytes())
	return keys, nil
}

// MaterializeSymmetric implements handles.KeySource: it resolves id
// through the repository and, if the stored container is DERIVED,
// through the ladder; otherwise the stored bytes are already the
// symmetric key (spec §4.2: "only keys whose container type is DERIVED
// are subject to ladder unwrap; others are simply returned from the
// store").
func (p *Processor) MaterializeSymmetric(id secapi.ObjectID) (*secretbuf.Secret, secapi.KeyType, error) {
	rec, err := p.repo.GetKey(id)
	if err != nil {
		return nil, secapi.KeyTypeUnknown, err
	}

	payload := rec.Blob
	container := rec.Container
	if container == secapi.ContainerStore {
		storeKeys, err := p.materializeStoreKeys()
		if err != nil {
			return nil, secapi.KeyTypeUnknown, err
		}
		header, pl, err := securestore.Retrieve(storeKeys, true, p.magic, rec.Blob)
		if err != nil {
			return nil, secapi.KeyTypeUnknown, err
		}
		payload = pl
		container = secapi.ContainerType(header.InnerContainerType)
	}

	if container != secapi.ContainerDerivedInputs {
		return secretbuf.NewFromCopy(payload), rec.KeyType, nil
	}

	di, err := codec.ParseDerivedInputs(payload)
	if err != nil {
		return nil, secapi.KeyTypeUnknown, err
	}
	key, err := ladder.Unwrap(p.root, di.Input1, di.Input2)
	if err != nil {
		return nil, secapi.KeyTypeUnknown, err
	}
	return secretbuf.New(append([]byte(nil), key[:]...)), rec.KeyType, nil
}

// MaterializeRSAPrivate implements handles.KeySource.
func (p *Processor) MaterializeRSAPrivate(id secapi.ObjectID) (*rsa.PrivateKey, error) {
	payload, err := p.materializeOpaque(id)
	if err != nil {
		return nil, err
	}
	return codec.ParseRawRSAPrivate(payload)
}

// MaterializeRSAPublic implements handles.KeySource.
func (p *Processor) MaterializeRSAPublic(id secapi.ObjectID) (*rsa.PublicKey, error) {
	payload, err := p.materializeOpaque(id)
	if err != nil {
		return nil, err
	}
	return codec.ParseRawRSAPublic(payload)
}

// materializeOpaque resolves id to its canonical container bytes,
// unwrapping the securestore layer for FILE-tier records. RSA containers
// are never DERIVED, so no ladder unwrap applies here.
func (p *Processor) materializeOpaque(id secapi.ObjectID) ([]byte, error) {
	rec, err := p.repo.GetKey(id)
	if err != nil {
		return nil, err
	}
	if rec.Container != secapi.ContainerStore {
		return rec.Blob, nil
	}
	storeKeys, err := p.materializeStoreKeys()
	if err != nil {
		return nil, err
	}
	_, payload, err := securestore.Retrieve(storeKeys, true, p.magic, rec.Blob)
	return payload, err
}
