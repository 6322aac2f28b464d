// Package emailcode issues and checks short-lived email verification codes.
// Codes are stored bcrypt-hashed under a per-user key with a TTL; each check
// consumes one attempt and the code is discarded once attempts run out.
package emailcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
)

// ErrMismatch is returned when the submitted code does not match.
var ErrMismatch = errors.New("code mismatch")

const codeDigits = 6

// Record is what the store keeps per user.
type Record struct {
	Email string
	Hash  []byte
}

// Store keeps at most one outstanding code per user.
type Store interface {
	// Save replaces any outstanding code for userID and resets its attempts.
	Save(ctx context.Context, userID id.UserID, rec Record, ttl time.Duration) error
	// Consume reserves one attempt and returns the record with the attempt
	// count after reservation. It returns sentinel.ErrNotFound when no code
	// is outstanding.
	Consume(ctx context.Context, userID id.UserID) (*Record, int, error)
	Delete(ctx context.Context, userID id.UserID) error
}

// Codes issues and verifies codes over a Store.
type Codes struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	cost        int
}

type Option func(*Codes)

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(c *Codes) { c.cost = cost }
}

func New(store Store, ttl time.Duration, maxAttempts int, opts ...Option) *Codes {
	c := &Codes{store: store, ttl: ttl, maxAttempts: maxAttempts, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL is how long an issued code stays valid.
func (c *Codes) TTL() time.Duration { return c.ttl }

// Issue generates a code for email, stores its hash and returns the plain code.
func (c *Codes) Issue(ctx context.Context, userID id.UserID, email string) (string, error) {
	code, err := generate()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), c.cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	if err := c.store.Save(ctx, userID, Record{Email: email, Hash: hash}, c.ttl); err != nil {
		return "", fmt.Errorf("save code: %w", err)
	}
	return code, nil
}

// Verify checks code and returns the email it was issued for. Errors:
// sentinel.ErrExpired when nothing is outstanding, sentinel.ErrExhausted when
// attempts ran out, ErrMismatch for a wrong code with attempts left.
func (c *Codes) Verify(ctx context.Context, userID id.UserID, code string) (string, error) {
	rec, attempts, err := c.store.Consume(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", sentinel.ErrExpired
	}
	if err != nil {
		return "", fmt.Errorf("load code: %w", err)
	}
	if attempts > c.maxAttempts {
		if err := c.store.Delete(ctx, userID); err != nil {
			return "", fmt.Errorf("discard code: %w", err)
		}
		return "", sentinel.ErrExhausted
	}
	if bcrypt.CompareHashAndPassword(rec.Hash, []byte(code)) != nil {
		return "", ErrMismatch
	}
	if err := c.store.Delete(ctx, userID); err != nil {
		return "", fmt.Errorf("discard code: %w", err)
	}
	return rec.Email, nil
}

func generate() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
