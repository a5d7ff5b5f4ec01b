package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/nextcrm-core/internal/infra/resilience"
)

// PasswordHasher hashes and verifies passwords with bcrypt. Concurrent work
// is bounded by a bulkhead.
type PasswordHasher struct {
	cost     int
	bulkhead *resilience.Bulkhead
	dummy    func() string
}

// NewPasswordHasher creates a hasher. Costs outside bcrypt's range fall back
// to bcrypt.DefaultCost.
func NewPasswordHasher(cost, concurrency int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &PasswordHasher{cost: cost, bulkhead: resilience.NewBulkhead(concurrency)}
	h.dummy = sync.OnceValue(func() string {
		hash, _ := bcrypt.GenerateFromPassword([]byte("nextcrm-unknown-user"), cost)
		return string(hash)
	})
	return h
}

// Hash returns the bcrypt hash of plain.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	var hash []byte
	err := h.bulkhead.Do(ctx, func() error {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(plain), h.cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. A malformed hash or a cancelled
// context yields false.
func (h *PasswordHasher) Verify(ctx context.Context, plain, hash string) bool {
	ok := false
	_ = h.bulkhead.Do(ctx, func() error {
		ok = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
		return nil
	})
	return ok
}

// burn spends the same work as a real verification so unknown emails are not
// distinguishable by latency.
func (h *PasswordHasher) burn(ctx context.Context, plain string) {
	h.Verify(ctx, plain, h.dummy())
}
