// Package codec parses and emits the incoming wire formats spec.md §3/§6
// define for key material, producing canonical internal forms (either raw
// symmetric bytes, an *rsa.PrivateKey/PublicKey, or a derived-inputs pair)
// that the rest of the core works with.
package codec

import (
	"encoding/binary"

	"github.com/r3e-network/go-secapi"
)

// Symmetric parses a ContainerRawSymmetric blob: raw key bytes whose
// length must match the declared KeyType's length exactly.
func Symmetric(kt secapi.KeyType, raw []byte) ([]byte, error) {
	if !kt.IsSymmetric() {
		return nil, secapi.ErrInvalidParameters("not a symmetric key type")
	}
	if len(raw) != kt.Len() {
		return nil, secapi.ErrInvalidParameters("symmetric key length mismatch")
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// DerivedInputs is the 32-byte {input1, input2} container spec.md §3/§6
// describes: when materialized it drives the two-stage AES ladder.
type DerivedInputs struct {
	Input1 [16]byte
	Input2 [16]byte
}

// ParseDerivedInputs decodes a ContainerDerivedInputs blob.
func ParseDerivedInputs(raw []byte) (DerivedInputs, error) {
	var di DerivedInputs
	if len(raw) != 32 {
		return di, secapi.ErrInvalidParameters("derived-inputs container must be 32 bytes")
	}
	copy(di.Input1[:], raw[:16])
	copy(di.Input2[:], raw[16:32])
	return di, nil
}

// MarshalDerivedInputs re-emits a DerivedInputs container.
func MarshalDerivedInputs(di DerivedInputs) []byte {
	out := make([]byte, 32)
	copy(out[:16], di.Input1[:])
	copy(out[16:], di.Input2[:])
	return out
}

// putBE32 / readBE32 are small helpers for the raw RSA struct's big-endian
// length-prefixed big integers (spec §6).
func putBE32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

func readBE32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, secapi.ErrInvalidParameters("truncated length prefix")
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}
