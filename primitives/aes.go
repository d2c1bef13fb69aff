// Package primitives is a thin adapter layer over Go's standard crypto
// library: AES block/mode operations, SHA, HMAC, CMAC, RSA, and secure
// random. These are collaborators, not the core; every failure is mapped
// to the *secapi.Error taxonomy at this boundary. X.509 parsing lives in
// package codec. The AES-CTR cipher handle in package handles builds its
// streaming cipher.Stream with crypto/aes directly, since CTR here is
// one-shot only.
package primitives

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/r3e-network/go-secapi"
)

// ECBEncrypt encrypts plaintext (a multiple of the AES block size) under
// key using raw AES-ECB, with no padding. The key-ladder (spec §4.2) is
// built directly on this primitive, and the AES-ECB cipher handles use it
// too. Go's standard library deliberately omits an ECB cipher.BlockMode
// (ECB leaks block-level patterns and should never be used for
// general-purpose encryption), so it is implemented here as a direct
// block-by-block loop over a cipher.Block.
func ECBEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("aes key: " + err.Error())
	}
	bs := block.BlockSize()
	if len(plaintext) == 0 || len(plaintext)%bs != 0 {
		return nil, secapi.ErrInvalidInputSize("ecb plaintext must be a non-zero multiple of the block size")
	}
	out := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += bs {
		block.Encrypt(out[i:i+bs], plaintext[i:i+bs])
	}
	return out, nil
}

// ECBDecrypt is ECBEncrypt's inverse.
func ECBDecrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("aes key: " + err.Error())
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, secapi.ErrInvalidInputSize("ecb ciphertext must be a non-zero multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += bs {
		block.Decrypt(out[i:i+bs], ciphertext[i:i+bs])
	}
	return out, nil
}

// CBCEncrypt encrypts plaintext (a multiple of the AES block size) under
// key with the given 16-byte iv using AES-CBC, no padding.
func CBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("aes key: " + err.Error())
	}
	bs := block.BlockSize()
	if len(plaintext) == 0 || len(plaintext)%bs != 0 {
		return nil, secapi.ErrInvalidInputSize("cbc plaintext must be a non-zero multiple of the block size")
	}
	if len(iv) != bs {
		return nil, secapi.ErrInvalidParameters("iv must be 16 bytes")
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

// CBCDecrypt is CBCEncrypt's inverse.
func CBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("aes key: " + err.Error())
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, secapi.ErrInvalidInputSize("cbc ciphertext must be a non-zero multiple of the block size")
	}
	if len(iv) != bs {
		return nil, secapi.ErrInvalidParameters("iv must be 16 bytes")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// CTR encrypts/decrypts (AES-CTR is symmetric) data of any length under
// key with a 16-byte network-order counter block iv.
func CTR(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, secapi.ErrInvalidParameters("aes key: " + err.Error())
	}
	if len(iv) != block.BlockSize() {
		return nil, secapi.ErrInvalidParameters("counter block must be 16 bytes")
	}
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}

// PKCS7Pad appends a PKCS7 padding block: 1..blockSize bytes, every byte
// equal to the pad length. It always appends a full padding block when
// len(data) is already a multiple of blockSize (spec §4.4).
func PKCS7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

// PKCS7Unpad validates and strips PKCS7 padding, rejecting a pad length of
// 0, greater than blockSize, or inconsistent trailing bytes with
// *secapi.Error(InvalidPadding) (spec §4.4, §8).
func PKCS7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, secapi.ErrInvalidInputSize("padded data must be a non-zero multiple of the block size")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, secapi.ErrInvalidPadding()
	}
	for i := len(data) - padLen; i < len(data); i++ {
		if data[i] != byte(padLen) {
			return nil, secapi.ErrInvalidPadding()
		}
	}
	return data[:len(data)-padLen], nil
}
