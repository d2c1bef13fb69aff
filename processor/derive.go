package processor

import (
	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/codec"
	"github.com/r3e-network/go-secapi/derivation"
	"github.com/r3e-network/go-secapi/ladder"
	"github.com/r3e-network/go-secapi/primitives"
	"github.com/r3e-network/go-secapi/repository"
)

// reprovisionBaseKey runs the base-key recipe under a caller-supplied
// nonce and reinstalls BASE_KEY_AES/BASE_KEY_MAC, per spec §4.6: "All
// derivations depend on a prior base-key provisioning with the supplied
// nonce." This intentionally overwrites whatever base key a previous
// derivation or the boot-time cert-store derivation left installed.
func (p *Processor) reprovisionBaseKey(nonce [20]byte) (ladder.BaseKeys, error) {
	base, err := ladder.ProvisionBaseKey(p.root, nonce)
	if err != nil {
		return ladder.BaseKeys{}, err
	}
	aesRec := &repository.KeyRecord{
		ID: secapi.ObjectIDBaseKeyAES, KeyType: secapi.KeyTypeAES128,
		Container: secapi.ContainerRawSymmetric, Location: secapi.LocationRAMSoftWrapped,
		Blob: append([]byte(nil), base.AES[:]...),
	}
	if err := p.repo.ProvisionKey(aesRec); err != nil {
		return ladder.BaseKeys{}, err
	}
	macRec := &repository.KeyRecord{
		ID: secapi.ObjectIDBaseKeyMAC, KeyType: secapi.KeyTypeHMAC128,
		Container: secapi.ContainerRawSymmetric, Location: secapi.LocationRAMSoftWrapped,
		Blob: append([]byte(nil), base.MAC[:]...),
	}
	if err := p.repo.ProvisionKey(macRec); err != nil {
		return ladder.BaseKeys{}, err
	}
	return base, nil
}

// toPrimitivesAlg maps a derivation.DigestAlg to the primitives package's
// equivalent enum (spec §4.6 shares the SHA-1/SHA-256 choice across both
// layers; the two enums exist because each package owns its own).
func toPrimitivesAlg(alg derivation.DigestAlg) primitives.DigestAlg {
	if alg == derivation.SHA256 {
		return primitives.SHA256
	}
	return primitives.SHA1
}

// DeriveHKDF runs RFC 5869 HKDF over BASE_KEY_MAC (materialized under
// nonce) and installs the result at id as outType (spec §4.6).
func (p *Processor) DeriveHKDF(id secapi.ObjectID, location secapi.Location, alg derivation.DigestAlg, outType secapi.KeyType, nonce [20]byte, salt, info []byte) error {
	if !outType.IsSymmetric() {
		return secapi.ErrInvalidParameters("HKDF output type must be symmetric")
	}
	base, err := p.reprovisionBaseKey(nonce)
	if err != nil {
		return err
	}
	out, err := derivation.HKDF(alg, base.MAC[:], salt, info, outType.Len())
	if err != nil {
		return err
	}
	return p.ProvisionKey(id, location, outType, secapi.ContainerRawSymmetric, out)
}

// DeriveConcatKDF runs NIST SP 800-56A §5.8.1 Concat-KDF over
// BASE_KEY_AES material and installs the result at id as outType.
func (p *Processor) DeriveConcatKDF(id secapi.ObjectID, location secapi.Location, alg derivation.DigestAlg, outType secapi.KeyType, nonce [20]byte, otherInfo []byte) error {
	if !outType.IsSymmetric() {
		return secapi.ErrInvalidParameters("Concat-KDF output type must be symmetric")
	}
	base, err := p.reprovisionBaseKey(nonce)
	if err != nil {
		return err
	}
	out, err := derivation.ConcatKDF(alg, base.AES[:], otherInfo, outType.Len())
	if err != nil {
		return err
	}
	return p.ProvisionKey(id, location, outType, secapi.ContainerRawSymmetric, out)
}

// DerivePBKDF2 runs RFC 2898 PBKDF2 with BASE_KEY_MAC as the HMAC key and
// installs the result at id as outType.
func (p *Processor) DerivePBKDF2(id secapi.ObjectID, location secapi.Location, alg derivation.DigestAlg, outType secapi.KeyType, nonce [20]byte, salt []byte, iterations int) error {
	if !outType.IsSymmetric() {
		return secapi.ErrInvalidParameters("PBKDF2 output type must be symmetric")
	}
	base, err := p.reprovisionBaseKey(nonce)
	if err != nil {
		return err
	}
	out, err := derivation.PBKDF2(alg, base.MAC[:], salt, iterations, outType.Len())
	if err != nil {
		return err
	}
	return p.ProvisionKey(id, location, outType, secapi.ContainerRawSymmetric, out)
}

// DeriveVendorAES128 hashes input with SHA-256 and installs the two
// halves as a DERIVED container at id (spec §4.6).
func (p *Processor) DeriveVendorAES128(id secapi.ObjectID, location secapi.Location, input []byte) error {
	input1, input2 := derivation.VendorAES128Inputs(input)
	di := codec.DerivedInputs{Input1: input1, Input2: input2}
	return p.ProvisionKey(id, location, secapi.KeyTypeAES128, secapi.ContainerDerivedInputs, codec.MarshalDerivedInputs(di))
}

// DeriveKeyLadderAES128 installs input1/input2 directly as a DERIVED
// container at id. Only RootUnique is implemented; every other root
// returns UNIMPLEMENTED_FEATURE (spec §4.6, §9).
func (p *Processor) DeriveKeyLadderAES128(id secapi.ObjectID, location secapi.Location, root secapi.Root, input1, input2 [16]byte) error {
	if root != secapi.RootUnique {
		return secapi.ErrUnimplemented("key-ladder AES-128 derivation for root " + rootName(root))
	}
	di := codec.DerivedInputs{Input1: input1, Input2: input2}
	return p.ProvisionKey(id, location, secapi.KeyTypeAES128, secapi.ContainerDerivedInputs, codec.MarshalDerivedInputs(di))
}

func rootName(root secapi.Root) string {
	switch root {
	case secapi.RootOEM:
		return "OEM"
	case secapi.RootHardwareUnique:
		return "HARDWARE_UNIQUE"
	default:
		return "UNKNOWN"
	}
}

// ComputeBaseKeyDigest hashes the currently materialized BASE_KEY_AES
// bytes (SPEC_FULL.md §4 supplement: digest the materialized key, not
// the nonce).
func (p *Processor) ComputeBaseKeyDigest(alg derivation.DigestAlg) ([]byte, error) {
	baseAES, err := p.repo.GetKey(secapi.ObjectIDBaseKeyAES)
	if err != nil {
		return nil, err
	}
	return derivation.ComputeBaseKeyDigest(toPrimitivesAlg(alg), baseAES.Blob)
}
