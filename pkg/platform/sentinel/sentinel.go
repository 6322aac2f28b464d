// Package sentinel holds infrastructure facts that stores report to services.
//
// A sentinel describes what happened to a resource (missing, taken, expired),
// never whether a request was well formed. Services translate sentinels into
// domainerrors codes; handlers never see them.
package sentinel

import "errors"

var (
	// ErrNotFound: the row or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrExpired: a TTL-bound value (email code) lapsed.
	ErrExpired = errors.New("expired")
	// ErrExhausted: too many attempts against a TTL-bound value.
	ErrExhausted = errors.New("attempts exhausted")
	// ErrInvalidState: the entity is not in a state that allows the mutation.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: an optional backend (redis, kafka) is not configured or reachable.
	ErrUnavailable = errors.New("unavailable")
)
