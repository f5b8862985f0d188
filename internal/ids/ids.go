package ids

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// accountSpan covers [1000000000, 2000000000): every handle is ten digits.
var accountSpan = big.NewInt(1_000_000_000)

// NewAccount returns a system-generated ten-digit numeric account handle.
// Handles are random, not sequential; uniqueness is enforced by the store.
func NewAccount() (string, error) {
	n, err := rand.Int(rand.Reader, accountSpan)
	if err != nil {
		return "", err
	}
	return new(big.Int).Add(n, accountSpan).String(), nil
}
