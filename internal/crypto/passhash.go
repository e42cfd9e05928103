// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used for stored credentials.
const DefaultCost = 12

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hasher hashes and verifies passwords with bcrypt. At most `parallel`
// computations run at once so hashing bursts cannot starve other requests.
type Hasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

// NewHasher builds a Hasher. parallel <= 0 means GOMAXPROCS.
func NewHasher(cost, parallel int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}
	pw, err := RandBytes(16)
	if err != nil {
		return nil, err
	}
	// same cost as real hashes so a miss costs the same as a hit
	dummy, err := bcrypt.GenerateFromPassword(pw, cost)
	if err != nil {
		return nil, err
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(parallel)), dummy: dummy}, nil
}

// Hash returns a salted bcrypt credential. Two calls with the same password differ.
func (h *Hasher) Hash(ctx context.Context, password string) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)
	return bcrypt.GenerateFromPassword([]byte(password), h.cost)
}

// Verify reports whether password matches hash. Malformed hashes yield false.
func (h *Hasher) Verify(ctx context.Context, password string, hash []byte) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// VerifyMissing burns one comparison against a throwaway hash and returns false.
// Used when the account does not exist so response time does not reveal it.
func (h *Hasher) VerifyMissing(ctx context.Context, password string) bool {
	_ = h.Verify(ctx, password, h.dummy)
	return false
}
