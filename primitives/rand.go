package primitives

import (
	"crypto/rand"

	"github.com/r3e-network/go-secapi"
)

// RandomBytes returns n cryptographically secure random bytes. Backs the
// Random opaque handle (spec §6) and key-generation helpers.
func RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, secapi.ErrInvalidParameters("negative random length")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, secapi.ErrFailure("random read", err)
	}
	return b, nil
}
