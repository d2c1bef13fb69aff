package handles

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/r3e-network/go-secapi"
	"github.com/r3e-network/go-secapi/internal/secretbuf"
	"github.com/r3e-network/go-secapi/primitives"
)

type fakeKeySource struct {
	symmetric map[secapi.ObjectID][]byte
	symType   map[secapi.ObjectID]secapi.KeyType
	rsaPriv   map[secapi.ObjectID]*rsa.PrivateKey
}

func newFakeKeySource() *fakeKeySource {
	return &fakeKeySource{
		symmetric: make(map[secapi.ObjectID][]byte),
		symType:   make(map[secapi.ObjectID]secapi.KeyType),
		rsaPriv:   make(map[secapi.ObjectID]*rsa.PrivateKey),
	}
}

func (f *fakeKeySource) MaterializeSymmetric(id secapi.ObjectID) (*secretbuf.Secret, secapi.KeyType, error) {
	b, ok := f.symmetric[id]
	if !ok {
		return nil, secapi.KeyTypeUnknown, secapi.ErrNoSuchItem(id)
	}
	return secretbuf.NewFromCopy(b), f.symType[id], nil
}

func (f *fakeKeySource) MaterializeRSAPrivate(id secapi.ObjectID) (*rsa.PrivateKey, error) {
	priv, ok := f.rsaPriv[id]
	if !ok {
		return nil, secapi.ErrNoSuchItem(id)
	}
	return priv, nil
}

func (f *fakeKeySource) MaterializeRSAPublic(id secapi.ObjectID) (*rsa.PublicKey, error) {
	priv, ok := f.rsaPriv[id]
	if !ok {
		return nil, secapi.ErrNoSuchItem(id)
	}
	return &priv.PublicKey, nil
}

func aesKeySource(id secapi.ObjectID, key []byte) *fakeKeySource {
	f := newFakeKeySource()
	f.symmetric[id] = key
	f.symType[id] = secapi.KeyTypeAES128
	return f
}

func processAll(t *testing.T, c *Cipher, in []byte) []byte {
	t.Helper()
	n, err := c.Process(in, true, nil)
	if err != nil {
		t.Fatalf("size query: %v", err)
	}
	out := make([]byte, n)
	written, err := c.Process(in, true, out)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return out[:written]
}

func TestCipherAESCBCPKCS7RoundTrip(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	var iv [16]byte
	for i := range iv {
		iv[i] = byte(i)
	}
	source := aesKeySource(1000, key)

	enc, err := NewSymmetricCipher(source, 1000, AESCBCPKCS7, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer enc.Release()
	ct := processAll(t, enc, []byte("test"))
	if len(ct) != 16 {
		t.Fatalf("expected 16-byte ciphertext for a padded single block, got %d", len(ct))
	}

	dec, err := NewSymmetricCipher(source, 1000, AESCBCPKCS7, ModeDecrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer dec.Release()
	pt := processAll(t, dec, ct)
	if !bytes.Equal(pt, []byte("test")) {
		t.Errorf("round trip mismatch: got %q", pt)
	}
}

func TestCipherLastFlagEnforcement(t *testing.T) {
	key := make([]byte, 16)
	var iv [16]byte
	source := aesKeySource(1, key)
	c, err := NewSymmetricCipher(source, 1, AESCTR, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer c.Release()

	out := make([]byte, 16)
	if _, err := c.Process(make([]byte, 16), true, out); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if _, err := c.Process(make([]byte, 16), true, out); secapi.CodeOf(err) != secapi.Failure {
		t.Errorf("expected FAILURE on second terminal call, got %v", err)
	}
}

func TestCipherFragmentedEqualsOneShotCTR(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}
	var iv [16]byte
	source := aesKeySource(1, key)
	msg := bytes.Repeat([]byte("0123456789abcdef"), 4) // 64 bytes

	oneShot, err := NewSymmetricCipher(source, 1, AESCTR, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer oneShot.Release()
	wantOut := make([]byte, len(msg))
	if _, err := oneShot.Process(msg, true, wantOut); err != nil {
		t.Fatalf("one-shot process: %v", err)
	}

	fragmented, err := NewSymmetricCipher(source, 1, AESCTR, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer fragmented.Release()
	var got []byte
	for i := 0; i < len(msg); i += 17 {
		end := i + 17
		last := false
		if end >= len(msg) {
			end = len(msg)
			last = true
		}
		chunk := msg[i:end]
		out := make([]byte, len(chunk))
		if _, err := fragmented.Process(chunk, last, out); err != nil {
			t.Fatalf("fragmented process: %v", err)
		}
		got = append(got, out...)
	}

	if !bytes.Equal(got, wantOut) {
		t.Errorf("fragmented output mismatch: got %x want %x", got, wantOut)
	}
}

// TestCipherProcessFragmentedWindowedTransform exercises the distinct
// Cipher_ProcessFragmented operation (spec §6): only the fragmentSize
// window at the start of each fragmentPeriod stride is transformed, and
// the CTR keystream only advances for those window bytes — the skipped
// bytes pass through untouched and never consume keystream.
func TestCipherProcessFragmentedWindowedTransform(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 5)
	}
	var iv [16]byte
	source := aesKeySource(1, key)

	const period, offset, size, strides = 16, 4, 8, 5
	msg := make([]byte, period*strides)
	for i := range msg {
		msg[i] = byte(i*7 + 3)
	}

	c, err := NewSymmetricCipher(source, 1, AESCTR, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer c.Release()

	out := make([]byte, len(msg))
	n, err := c.ProcessFragmented(msg, true, out, offset, size, period)
	if err != nil {
		t.Fatalf("process fragmented: %v", err)
	}
	if n != len(msg) {
		t.Fatalf("expected %d bytes written, got %d", len(msg), n)
	}

	for s := 0; s < strides; s++ {
		base := s * period
		for i := 0; i < period; i++ {
			if i >= offset && i < offset+size {
				continue
			}
			if out[base+i] != msg[base+i] {
				t.Errorf("stride %d byte %d: expected pass-through, got transformed", s, i)
			}
		}
	}

	var windowPlain, windowCipher []byte
	for s := 0; s < strides; s++ {
		base := s * period
		windowPlain = append(windowPlain, msg[base+offset:base+offset+size]...)
		windowCipher = append(windowCipher, out[base+offset:base+offset+size]...)
	}

	fresh, err := NewSymmetricCipher(source, 1, AESCTR, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer fresh.Release()
	want := make([]byte, len(windowPlain))
	if _, err := fresh.Process(windowPlain, true, want); err != nil {
		t.Fatalf("reference process: %v", err)
	}
	if !bytes.Equal(windowCipher, want) {
		t.Errorf("windowed ciphertext mismatch: got %x want %x", windowCipher, want)
	}
}

// TestCipherProcessFragmentedChunkedEqualsOneShot is spec §8's universal
// property: fragmented process with any valid (offset, size, period)
// equals the one-shot result byte-for-byte, whether driven by one call
// over the whole buffer or several calls across stride boundaries.
func TestCipherProcessFragmentedChunkedEqualsOneShot(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 9)
	}
	var iv [16]byte
	source := aesKeySource(1, key)

	const period, offset, size, strides = 16, 2, 6, 4
	msg := make([]byte, period*strides)
	for i := range msg {
		msg[i] = byte(i*3 + 1)
	}

	oneShot, err := NewSymmetricCipher(source, 1, AESCTR, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer oneShot.Release()
	wantOut := make([]byte, len(msg))
	if _, err := oneShot.ProcessFragmented(msg, true, wantOut, offset, size, period); err != nil {
		t.Fatalf("one-shot process fragmented: %v", err)
	}

	chunked, err := NewSymmetricCipher(source, 1, AESCTR, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	defer chunked.Release()
	got := make([]byte, len(msg))
	for s := 0; s < strides; s++ {
		base := s * period
		last := s == strides-1
		if _, err := chunked.ProcessFragmented(msg[base:base+period], last, got[base:base+period], offset, size, period); err != nil {
			t.Fatalf("chunked process fragmented: %v", err)
		}
	}

	if !bytes.Equal(got, wantOut) {
		t.Errorf("chunked fragmented output mismatch: got %x want %x", got, wantOut)
	}
}

func TestCipherPKCS7RejectsBadPaddingOnDecrypt(t *testing.T) {
	key := make([]byte, 16)
	var iv [16]byte
	source := aesKeySource(1, key)

	enc, err := NewSymmetricCipher(source, 1, AESCBCPKCS7, ModeEncrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	ct := processAll(t, enc, []byte("tampertest"))
	ct[len(ct)-1] = 0xff // corrupt the final ciphertext block, garbling its decrypted padding

	dec, err := NewSymmetricCipher(source, 1, AESCBCPKCS7, ModeDecrypt, iv)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	_, err = dec.Process(ct, true, make([]byte, len(ct)))
	if secapi.CodeOf(err) != secapi.InvalidPadding {
		t.Errorf("expected INVALID_PADDING, got %v", err)
	}
}

func TestCipherRSAPKCS1RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate rsa: %v", err)
	}
	source := newFakeKeySource()
	source.rsaPriv[1] = priv

	enc, err := NewRSACipher(source, 1, RSAPKCS1, ModeEncrypt)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	ct := processAll(t, enc, []byte("rsa message"))

	dec, err := NewRSACipher(source, 1, RSAPKCS1, ModeDecrypt)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	pt := processAll(t, dec, ct)
	if !bytes.Equal(pt, []byte("rsa message")) {
		t.Errorf("rsa round trip mismatch: got %q", pt)
	}
}

func TestDigestUpdateWithKey(t *testing.T) {
	source := aesKeySource(1, []byte("0123456789abcdef"))
	d, err := NewDigest(primitives.SHA256)
	if err != nil {
		t.Fatalf("new digest: %v", err)
	}
	if err := d.Update([]byte("prefix")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := d.UpdateWithKey(source, 1); err != nil {
		t.Fatalf("update with key: %v", err)
	}
	sum, err := d.Release()
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	want := primitives.Sum256(append([]byte("prefix"), []byte("0123456789abcdef")...))
	if !bytes.Equal(sum, want) {
		t.Errorf("digest mismatch")
	}
}

func TestDigestReleaseTwiceFails(t *testing.T) {
	d, err := NewDigest(primitives.SHA1)
	if err != nil {
		t.Fatalf("new digest: %v", err)
	}
	if _, err := d.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := d.Release(); err == nil {
		t.Error("expected error on second release")
	}
}

func TestMacHMACSHA256(t *testing.T) {
	source := aesKeySource(1, []byte("0123456789abcdef"))
	m, err := NewMac(source, 1, HMACSHA256)
	if err != nil {
		t.Fatalf("new mac: %v", err)
	}
	if err := m.Update([]byte("message")); err != nil {
		t.Fatalf("update: %v", err)
	}
	sum, err := m.Release()
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	want, err := primitives.HMAC(primitives.SHA256, []byte("0123456789abcdef"), []byte("message"))
	if err != nil {
		t.Fatalf("hmac: %v", err)
	}
	if !bytes.Equal(sum, want) {
		t.Errorf("mac mismatch")
	}
}

func TestMacCMACBuffersUntilRelease(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	source := aesKeySource(1, key)
	m, err := NewMac(source, 1, CMACAES128)
	if err != nil {
		t.Fatalf("new mac: %v", err)
	}
	if err := m.Update([]byte("hel")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := m.Update([]byte("lo world")); err != nil {
		t.Fatalf("update: %v", err)
	}
	sum, err := m.Release()
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	want, err := primitives.CMAC(key, []byte("hello world"))
	if err != nil {
		t.Fatalf("cmac: %v", err)
	}
	if !bytes.Equal(sum, want) {
		t.Errorf("cmac mismatch")
	}
}

func TestSignatureVerifyFailsAgainstWrongKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	other, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	source := newFakeKeySource()
	source.rsaPriv[1] = priv
	source.rsaPriv[2] = other

	signer, err := NewSignature(source, 1, RSASHA256PKCS1, ModeEncrypt)
	if err != nil {
		t.Fatalf("new signature: %v", err)
	}
	sig, err := signer.Sign([]byte("sign me"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	verifier, err := NewSignature(source, 1, RSASHA256PKCS1, ModeDecrypt)
	if err != nil {
		t.Fatalf("new signature: %v", err)
	}
	if err := verifier.Verify([]byte("sign me"), sig); err != nil {
		t.Errorf("expected verification to succeed: %v", err)
	}

	wrongVerifier, err := NewSignature(source, 2, RSASHA256PKCS1, ModeDecrypt)
	if err != nil {
		t.Fatalf("new signature: %v", err)
	}
	err = wrongVerifier.Verify([]byte("sign me"), sig)
	if secapi.CodeOf(err) != secapi.VerificationFailed {
		t.Errorf("expected VERIFICATION_FAILED, got %v", err)
	}
}

func TestSignatureDigestVariantRequiresMatchingLength(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	source := newFakeKeySource()
	source.rsaPriv[1] = priv

	signer, err := NewSignature(source, 1, RSASHA256PKCS1Digest, ModeEncrypt)
	if err != nil {
		t.Fatalf("new signature: %v", err)
	}
	if _, err := signer.Sign([]byte("too short")); secapi.CodeOf(err) != secapi.InvalidInputSize {
		t.Errorf("expected INVALID_INPUT_SIZE, got %v", err)
	}

	digest := primitives.Sum256([]byte("already hashed"))
	if _, err := signer.Sign(digest); err != nil {
		t.Errorf("expected sign to succeed with a correctly sized digest: %v", err)
	}
}

func TestRandomProcessReturnsRequestedLength(t *testing.T) {
	r := NewRandom()
	b, err := r.Process(32)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(b) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(b))
	}
}
