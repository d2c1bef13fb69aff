package handles

import "github.com/r3e-network/go-secapi/primitives"

// Random is the Random_{GetInstance,Process,Release} handle (spec §6): a
// thin session wrapper over the RNG primitive. It holds no state between
// calls — each Process call is independent.
type Random struct{}

// NewRandom constructs a Random session.
func NewRandom() *Random { return &Random{} }

// Process returns n cryptographically secure random bytes.
func (r *Random) Process(n int) ([]byte, error) {
	return primitives.RandomBytes(n)
}

// Release is a no-op; Random holds no session state to free.
func (r *Random) Release() {}
