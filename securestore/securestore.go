// Package securestore implements the opaque container format spec.md §4.1
// and §6 describe: magic || header || payload || mac, encrypt-then-MAC
// under the processor's store keys. It never knows what the payload means
// — inner_container_type is carried opaquely for the caller to interpret.
package securestore

import (
	"crypto/subtle"
	"encoding/binary"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/primitives"
)

const (
	magicLen  = 8
	headerLen = 5 // inner_container_type (u32 LE) + encrypted flag (u8)
	macLen    = 16
	blockSize = 16
)

// Header is the fixed-size metadata block carried inside every blob.
type Header struct {
	InnerContainerType uint32
	Encrypted          bool
}

// Keys bundles the two derived keys a store operation needs: an AES-128
// key for encryption and an AES-128 key CMAC is computed with. Both are
// themselves materialized from DERIVED containers by the ladder (spec
// §4.1) — this package only ever sees already-materialized bytes and is
// unaware of where they came from.
type Keys struct {
	AESKey [16]byte
	MACKey [16]byte
}

// Store builds a blob: magic || header || payload (optionally encrypted)
// || CMAC-AES-128 over magic||header||payload.
func Store(keys Keys, encrypt bool, magic [8]byte, header Header, payload []byte) ([]byte, error) {
	hdr := encodeHeader(header)

	body := payload
	if encrypt {
		ct, err := primitives.CBCEncrypt(keys.AESKey[:], zeroIV(), pad(payload))
		if err != nil {
			return nil, secapi.ErrFailure("securestore: encrypt", err)
		}
		body = ct
	}

	buf := make([]byte, 0, magicLen+headerLen+len(body)+macLen)
	buf = append(buf, magic[:]...)
	buf = append(buf, hdr...)
	buf = append(buf, body...)

	mac, err := primitives.CMAC(keys.MACKey[:], buf)
	if err != nil {
		return nil, secapi.ErrFailure("securestore: mac", err)
	}
	buf = append(buf, mac...)
	return buf, nil
}

// Validate checks the magic and MAC of blob without decrypting.
func Validate(keys Keys, magic [8]byte, blob []byte) error {
	if len(blob) < magicLen+headerLen+macLen {
		return secapi.ErrInvalidParameters("securestore: blob too short")
	}
	if string(blob[:magicLen]) != string(magic[:]) {
		return secapi.ErrInvalidParameters("securestore: bad magic")
	}
	body, tag := blob[:len(blob)-macLen], blob[len(blob)-macLen:]
	want, err := primitives.CMAC(keys.MACKey[:], body)
	if err != nil {
		return secapi.ErrFailure("securestore: mac", err)
	}
	if subtle.ConstantTimeCompare(want, tag) != 1 {
		return secapi.ErrVerificationFailed("securestore: mac mismatch", nil)
	}
	return nil
}

// Retrieve validates blob, then decrypts the payload if expectEncrypted.
func Retrieve(keys Keys, expectEncrypted bool, magic [8]byte, blob []byte) (Header, []byte, error) {
	if err := Validate(keys, magic, blob); err != nil {
		return Header{}, nil, err
	}
	header := decodeHeader(blob[magicLen : magicLen+headerLen])
	payload := blob[magicLen+headerLen : len(blob)-macLen]

	if !expectEncrypted {
		out := make([]byte, len(payload))
		copy(out, payload)
		return header, out, nil
	}
	pt, err := primitives.CBCDecrypt(keys.AESKey[:], zeroIV(), payload)
	if err != nil {
		return Header{}, nil, secapi.ErrFailure("securestore: decrypt", err)
	}
	unpadded, err := primitives.PKCS7Unpad(pt, blockSize)
	if err != nil {
		return Header{}, nil, err
	}
	return header, unpadded, nil
}

// StoreLen returns the total blob length.
func StoreLen(blob []byte) int { return len(blob) }

// DataLen returns the payload length: total minus magic, header, and mac.
func DataLen(blob []byte) int {
	n := len(blob) - magicLen - headerLen - macLen
	if n < 0 {
		return 0
	}
	return n
}

// GetHeader decodes the header of an already-validated blob.
func GetHeader(blob []byte) (Header, error) {
	if len(blob) < magicLen+headerLen {
		return Header{}, secapi.ErrInvalidParameters("securestore: blob too short for header")
	}
	return decodeHeader(blob[magicLen : magicLen+headerLen]), nil
}

func encodeHeader(h Header) []byte {
	b := make([]byte, headerLen)
	binary.LittleEndian.PutUint32(b[:4], h.InnerContainerType)
	if h.Encrypted {
		b[4] = 1
	}
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		InnerContainerType: binary.LittleEndian.Uint32(b[:4]),
		Encrypted:          b[4] != 0,
	}
}

func pad(payload []byte) []byte {
	return primitives.PKCS7Pad(payload, blockSize)
}

func zeroIV() []byte { return make([]byte, blockSize) }
