package codec

import (
	"crypto/rsa"
	"math/big"

	"github.com/r3e-network/go-secapi"
)

// Raw RSA private/public structs (spec §6): big-endian length-prefixed big
// integers at the library's canonical layout. Every field is written as
// len_be(4) || bytes, with len the field's own big-endian byte length:
//
//	public:  [len||n] || [len||e]
//	private: [len||n] || [len||e] || [len||d] || [len||p] || [len||q] ||
//	         [len||dmp1] || [len||dmq1] || [len||iqmp]

func putBigInt(out []byte, v *big.Int) []byte {
	b := v.Bytes()
	lp := make([]byte, 4)
	putBE32(lp, uint32(len(b)))
	out = append(out, lp...)
	out = append(out, b...)
	return out
}

func readBigInt(b []byte) (*big.Int, []byte, error) {
	n, rest, err := readBE32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, secapi.ErrInvalidParameters("truncated big integer field")
	}
	v := new(big.Int).SetBytes(rest[:n])
	return v, rest[n:], nil
}

// MarshalRawRSAPublic emits the raw RSA public struct.
func MarshalRawRSAPublic(pub *rsa.PublicKey) []byte {
	var out []byte
	out = putBigInt(out, pub.N)
	out = putBigInt(out, big.NewInt(int64(pub.E)))
	return out
}

// ParseRawRSAPublic parses the raw RSA public struct.
func ParseRawRSAPublic(raw []byte) (*rsa.PublicKey, error) {
	n, rest, err := readBigInt(raw)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("raw rsa public: " + err.Error())
	}
	e, _, err := readBigInt(rest)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("raw rsa public: " + err.Error())
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// MarshalRawRSAPrivate emits the raw RSA private struct: n, e, d, p, q,
// dmp1 (d mod p-1), dmq1 (d mod q-1), iqmp (q^-1 mod p).
func MarshalRawRSAPrivate(priv *rsa.PrivateKey) ([]byte, error) {
	if len(priv.Primes) != 2 {
		return nil, secapi.ErrUnimplemented("raw rsa private export for non-two-prime keys")
	}
	priv.Precompute()
	p := priv.Primes[0]
	q := priv.Primes[1]

	var out []byte
	out = putBigInt(out, priv.N)
	out = putBigInt(out, big.NewInt(int64(priv.E)))
	out = putBigInt(out, priv.D)
	out = putBigInt(out, p)
	out = putBigInt(out, q)
	out = putBigInt(out, priv.Precomputed.Dp)
	out = putBigInt(out, priv.Precomputed.Dq)
	out = putBigInt(out, priv.Precomputed.Qinv)
	return out, nil
}

// ParseRawRSAPrivate parses the raw RSA private struct.
func ParseRawRSAPrivate(raw []byte) (*rsa.PrivateKey, error) {
	fields := make([]*big.Int, 8)
	rest := raw
	var err error
	for i := range fields {
		fields[i], rest, err = readBigInt(rest)
		if err != nil {
			return nil, secapi.ErrInvalidParameters("raw rsa private: " + err.Error())
		}
	}
	n, e, d, p, q := fields[0], fields[1], fields[2], fields[3], fields[4]

	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	if err := priv.Validate(); err != nil {
		return nil, secapi.ErrInvalidParameters("raw rsa private: invalid key: " + err.Error())
	}
	priv.Precompute()
	return priv, nil
}
