package primitives

import (
	"crypto/aes"

	"github.com/r3e-network/go-secapi"
)

// CMAC computes AES-CMAC (RFC 4493) of data under a 16-byte AES-128 key.
//
// Grounded on other_examples' go_hsm/pkg/keyblocklmk/cmac.go: subkey
// generation by left-shift-and-conditionally-XOR-Rb, CBC-MAC over
// complete blocks, and a final block XORed with K1 (full final block) or
// K2 + 0x80 padding (partial final block).
func CMAC(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("cmac key: " + err.Error())
	}
	bs := block.BlockSize()

	zero := make([]byte, bs)
	l := make([]byte, bs)
	block.Encrypt(l, zero)
	k1 := cmacSubkey(l)
	k2 := cmacSubkey(k1)

	var lastBlock []byte
	n := len(data)
	if n == 0 || n%bs != 0 {
		padLen := n % bs
		padded := make([]byte, bs)
		copy(padded, data[n-padLen:])
		padded[padLen] = 0x80
		lastBlock = xorBytes(padded, k2)
		data = data[:n-padLen]
	} else {
		lastBlock = xorBytes(data[n-bs:], k1)
		data = data[:n-bs]
	}

	x := make([]byte, bs)
	for i := 0; i < len(data); i += bs {
		in := xorBytes(x, data[i:i+bs])
		block.Encrypt(x, in)
	}
	in := xorBytes(x, lastBlock)
	block.Encrypt(x, in)

	return x, nil
}

func cmacSubkey(b []byte) []byte {
	const rb = 0x87
	n := len(b)
	out := make([]byte, n)
	var carry byte
	for i := n - 1; i >= 0; i-- {
		out[i] = (b[i] << 1) | carry
		carry = (b[i] >> 7) & 1
	}
	if b[0]&0x80 != 0 {
		out[n-1] ^= rb
	}
	return out
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
