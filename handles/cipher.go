package handles

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/internal/secretbuf"
	"github.com/r3e-network/go-secapi/primitives"
)

// CipherAlgorithm names the Cipher handle's algorithm+padding combination
// (spec §4.4).
type CipherAlgorithm int

const (
	AESECBRaw CipherAlgorithm = iota
	AESECBPKCS7
	AESCBCRaw
	AESCBCPKCS7
	AESCTR
	RSAPKCS1
	RSAOAEP
)

// CipherMode is encrypt or decrypt. NATIVEMEM variants (spec §4.4) are an
// allocator hint for the original C API and carry no distinct behavior
// here; callers simply choose Encrypt or Decrypt.
type CipherMode int

const (
	ModeEncrypt CipherMode = iota
	ModeDecrypt
)

const blockSize = 16

// Cipher is a session handle bound to one key reference, algorithm, and
// mode. Block-mode algorithms (ECB/CBC) buffer input across Process calls
// so chaining and padding are only ever resolved against the full
// message, not a potentially non-block-aligned fragment; CTR streams
// directly through a held cipher.Stream so each call's output equals its
// input length immediately, per spec §4.4.
type Cipher struct {
	alg  CipherAlgorithm
	mode CipherMode

	symKey *secretbuf.Secret // 16-byte AES key, held for the session
	iv     [blockSize]byte   // current CBC chain state / initial IV
	stream cipher.Stream     // CTR only

	rsaPriv *rsa.PrivateKey
	rsaPub  *rsa.PublicKey

	buf        []byte // ECB/CBC: unprocessed input accumulated so far
	lastCalled bool
}

// NewSymmetricCipher materializes the AES-128 key referenced by id for
// the lifetime of the session (spec §4.4: "the handle calls the
// Ladder/Store path once ... installs it into the algorithm state").
func NewSymmetricCipher(source KeySource, id secapi.ObjectID, alg CipherAlgorithm, mode CipherMode, iv [16]byte) (*Cipher, error) {
	secret, kt, err := source.MaterializeSymmetric(id)
	if err != nil {
		return nil, err
	}
	if kt != secapi.KeyTypeAES128 {
		secret.Release()
		return nil, secapi.ErrInvalidParameters("cipher: key is not AES_128")
	}

	c := &Cipher{alg: alg, mode: mode, symKey: secretbuf.NewFromCopy(secret.Bytes()), iv: iv}
	secret.Release()

	if alg == AESCTR {
		block, err := aes.NewCipher(c.symKey.Bytes())
		if err != nil {
			c.symKey.Release()
			return nil, secapi.ErrFailure("cipher: aes init", err)
		}
		c.stream = cipher.NewCTR(block, iv[:])
	}
	return c, nil
}

// NewRSACipher binds an RSA key reference for single-shot PKCS1/OAEP use.
// Encrypt uses the public key, decrypt the private key (spec §4.4).
func NewRSACipher(source KeySource, id secapi.ObjectID, alg CipherAlgorithm, mode CipherMode) (*Cipher, error) {
	c := &Cipher{alg: alg, mode: mode}
	if mode == ModeEncrypt {
		pub, err := source.MaterializeRSAPublic(id)
		if err != nil {
			return nil, err
		}
		c.rsaPub = pub
		return c, nil
	}
	priv, err := source.MaterializeRSAPrivate(id)
	if err != nil {
		return nil, err
	}
	c.rsaPriv = priv
	return c, nil
}

// Process runs the cipher over in. If out is nil, it returns only the
// number of bytes this call would produce (a sizing query) without
// mutating session state. Otherwise it writes into out (which must have
// at least that capacity) and commits the state advance.
func (c *Cipher) Process(in []byte, last bool, out []byte) (int, error) {
	if c.lastCalled {
		return 0, secapi.ErrFailure("cipher: process called after a terminal call", nil)
	}
	switch c.alg {
	case RSAPKCS1, RSAOAEP:
		return c.processRSA(in, last, out)
	case AESCTR:
		return c.processCTR(in, last, out)
	default:
		return c.processBlock(in, last, out)
	}
}

func (c *Cipher) processCTR(in []byte, last bool, out []byte) (int, error) {
	if out == nil {
		return len(in), nil
	}
	if len(out) < len(in) {
		return 0, secapi.ErrInvalidInputSize("cipher: output buffer too small")
	}
	c.stream.XORKeyStream(out[:len(in)], in)
	if last {
		c.lastCalled = true
	}
	return len(in), nil
}

func (c *Cipher) processRSA(in []byte, last bool, out []byte) (int, error) {
	if !last {
		return 0, secapi.ErrInvalidParameters("cipher: rsa operations are single-shot, last must be true")
	}
	var result []byte
	var err error
	switch {
	case c.alg == RSAPKCS1 && c.mode == ModeEncrypt:
		result, err = primitives.RSAEncryptPKCS1(c.rsaPub, in)
	case c.alg == RSAPKCS1 && c.mode == ModeDecrypt:
		result, err = primitives.RSADecryptPKCS1(c.rsaPriv, in)
	case c.alg == RSAOAEP && c.mode == ModeEncrypt:
		result, err = primitives.RSAEncryptOAEP(c.rsaPub, in)
	default:
		result, err = primitives.RSADecryptOAEP(c.rsaPriv, in)
	}
	if err != nil {
		return 0, err
	}
	if out == nil {
		return len(result), nil
	}
	if len(out) < len(result) {
		return 0, secapi.ErrInvalidInputSize("cipher: output buffer too small")
	}
	copy(out, result)
	c.lastCalled = true
	return len(result), nil
}

// processBlock implements ECB/CBC raw and PKCS7 processing, buffering
// input across calls so padding and CBC chaining are only ever resolved
// against block-aligned data.
func (c *Cipher) processBlock(in []byte, last bool, out []byte) (int, error) {
	pending := append(append([]byte(nil), c.buf...), in...)

	isPKCS7 := c.alg == AESECBPKCS7 || c.alg == AESCBCPKCS7
	isCBC := c.alg == AESCBCRaw || c.alg == AESCBCPKCS7

	var producible int
	if last {
		producible = len(pending)
	} else {
		producible = (len(pending) / blockSize) * blockSize
		// PKCS7 decrypt keeps the final full block buffered until the
		// terminal call, where its padding is checked and stripped.
		if isPKCS7 && c.mode == ModeDecrypt && producible > 0 && producible == len(pending) {
			producible -= blockSize
		}
	}

	if !isPKCS7 && last && producible%blockSize != 0 {
		return 0, secapi.ErrInvalidInputSize("cipher: raw AES requires a block-size multiple on the final call")
	}

	chunk := pending[:producible]
	remainder := pending[producible:]

	result, newIV, err := c.runBlockChunk(chunk, isCBC, isPKCS7, last)
	if err != nil {
		return 0, err
	}

	if out == nil {
		return len(result), nil
	}
	if len(out) < len(result) {
		return 0, secapi.ErrInvalidInputSize("cipher: output buffer too small")
	}
	copy(out, result)

	c.buf = remainder
	c.iv = newIV
	if last {
		c.lastCalled = true
	}
	return len(result), nil
}

func (c *Cipher) runBlockChunk(chunk []byte, isCBC, isPKCS7, last bool) ([]byte, [16]byte, error) {
	iv := c.iv
	if len(chunk) == 0 && !(isPKCS7 && last && c.mode == ModeEncrypt) {
		return nil, iv, nil
	}

	if c.mode == ModeEncrypt {
		plaintext := chunk
		if isPKCS7 && last {
			plaintext = primitives.PKCS7Pad(chunk, blockSize)
		}
		var ct []byte
		var err error
		if isCBC {
			ct, err = primitives.CBCEncrypt(c.symKey.Bytes(), iv[:], plaintext)
			if err == nil && len(ct) > 0 {
				copy(iv[:], ct[len(ct)-blockSize:])
			}
		} else {
			ct, err = primitives.ECBEncrypt(c.symKey.Bytes(), plaintext)
		}
		if err != nil {
			return nil, iv, secapi.ErrFailure("cipher: encrypt", err)
		}
		return ct, iv, nil
	}

	// Decrypt.
	var pt []byte
	var err error
	nextIV := iv
	if isCBC {
		if len(chunk) >= blockSize {
			copy(nextIV[:], chunk[len(chunk)-blockSize:])
		}
		pt, err = primitives.CBCDecrypt(c.symKey.Bytes(), iv[:], chunk)
	} else {
		pt, err = primitives.ECBDecrypt(c.symKey.Bytes(), chunk)
	}
	if err != nil {
		return nil, iv, secapi.ErrFailure("cipher: decrypt", err)
	}
	if isPKCS7 && last {
		pt, err = primitives.PKCS7Unpad(pt, blockSize)
		if err != nil {
			return nil, iv, err
		}
	}
	return pt, nextIV, nil
}

// ProcessFragmented transforms only the fragmentSize-byte window at the
// start of each fragmentPeriod-byte stride of in, copying every other
// byte through unchanged, and is the distinct operation spec §6 calls
// Cipher_ProcessFragmented (the clear/encrypted interleave pattern used
// by sample-based DRM encryption). If out is nil it returns only the
// required output length (always len(in): only no-padding algorithms
// preserve a fixed window size across strides).
//
// Grounded on SecCipher_ProcessFragmented
// (original_source/src/sec_security_openssl.c): copy input to output,
// then repeatedly invoke the plain per-call Process on the
// output[fragmentOffset : fragmentOffset+fragmentSize] window in place,
// advancing by fragmentPeriod each iteration; the window call is marked
// as the terminal call only on the stride that exactly exhausts the
// remaining length, matching the original's
// "lastInput && (inputSize == fragmentPeriod)" condition.
func (c *Cipher) ProcessFragmented(in []byte, last bool, out []byte, fragmentOffset, fragmentSize, fragmentPeriod int) (int, error) {
	if c.alg == AESECBPKCS7 || c.alg == AESCBCPKCS7 {
		return 0, secapi.ErrUnimplemented("cipher: fragmented processing with PKCS7 padding")
	}
	if c.alg == RSAPKCS1 || c.alg == RSAOAEP {
		return 0, secapi.ErrInvalidParameters("cipher: fragmented processing requires a block or stream algorithm")
	}
	if fragmentPeriod <= 0 || fragmentOffset < 0 || fragmentSize < 0 || fragmentOffset+fragmentSize > fragmentPeriod {
		return 0, secapi.ErrInvalidParameters("cipher: invalid fragment offset/size/period")
	}

	if out == nil {
		return len(in), nil
	}
	if len(out) < len(in) {
		return 0, secapi.ErrInvalidInputSize("cipher: output buffer too small")
	}
	if len(in) > 0 {
		copy(out, in)
	}

	remaining := len(in)
	pos := 0
	for remaining > 0 {
		if pos+fragmentOffset+fragmentSize > len(out) {
			return 0, secapi.ErrInvalidInputSize("cipher: fragment window runs past the buffer")
		}
		window := out[pos+fragmentOffset : pos+fragmentOffset+fragmentSize]
		isLastStride := last && remaining == fragmentPeriod
		if _, err := c.Process(window, isLastStride, window); err != nil {
			return 0, err
		}
		pos += fragmentPeriod
		remaining -= fragmentPeriod
	}
	if last {
		c.lastCalled = true
	}
	return len(in), nil
}

// Release zeroizes any session key material. Safe to call more than
// once.
func (c *Cipher) Release() {
	if c.symKey != nil {
		c.symKey.Release()
	}
}
