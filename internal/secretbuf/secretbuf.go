// Package secretbuf provides a scoped secret-buffer abstraction: a byte
// slice whose Release zeroes the backing array unconditionally, on both
// the success and error exit paths.
//
// Grounded on infrastructure/marble/marble.go's UseSecret/zeroBytes
// pattern in the teacher repo: materialize a private copy, hand it to a
// callback (or the caller), and always zero it before returning.
package secretbuf

// Secret holds transient plaintext key or digest material. The zero value
// is not usable; construct with New or NewFromCopy.
type Secret struct {
	b        []byte
	released bool
}

// New wraps b directly (no copy). The caller must not retain other
// references to b once the Secret owns it.
func New(b []byte) *Secret {
	return &Secret{b: b}
}

// NewFromCopy copies src into a freshly allocated buffer so the Secret's
// Release does not zero the caller's original slice.
func NewFromCopy(src []byte) *Secret {
	cp := make([]byte, len(src))
	copy(cp, src)
	return &Secret{b: cp}
}

// Bytes returns the live plaintext. The returned slice aliases the
// Secret's internal storage and becomes invalid after Release.
func (s *Secret) Bytes() []byte {
	if s == nil || s.released {
		return nil
	}
	return s.b
}

// Len returns the secret length in bytes.
func (s *Secret) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// Release zeroes the backing array. Safe to call multiple times and on a
// nil receiver; callers should `defer secret.Release()` immediately after
// construction so every exit path, success or error, zeroizes.
func (s *Secret) Release() {
	if s == nil || s.released {
		return
	}
	zero(s.b)
	s.released = true
}

// zero overwrites b with zero bytes. Written as a plain loop (rather than
// relying on the allocator) so the compiler cannot elide it as dead
// stores to an otherwise-unread slice; every byte is explicitly assigned.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
