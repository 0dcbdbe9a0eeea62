package naming

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
)

// SuffixLength is the length of the random collision-avoidance suffix.
const SuffixLength = 8

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ErrExhausted is returned when MaxAttempts suffixed names were all taken.
var ErrExhausted = errors.New("no free container name")

// Checker reports whether a container name is currently taken.
type Checker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Resolver picks a container name that is free at the moment of the check.
// The check is not atomic with the create that follows: two invocations
// racing on the same base name can both see it free.
type Resolver struct {
	checker Checker

	// MaxAttempts caps suffixed retries. Zero retries until a free name
	// turns up.
	MaxAttempts int

	// Suffix generates suffixes. Defaults to RandomSuffix.
	Suffix func() string
}

// NewResolver creates a Resolver with unbounded retries.
func NewResolver(p Checker) *Resolver {
	return &Resolver{checker: p, Suffix: RandomSuffix}
}

// Resolve returns base if it is free, otherwise base-<suffix> for the first
// suffix found free. Lookup launch failures are returned, never treated as
// "free".
func (r *Resolver) Resolve(ctx context.Context, base string) (string, error) {
	taken, err := r.checker.Exists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	suffix := r.Suffix
	if suffix == nil {
		suffix = RandomSuffix
	}

	for attempt := 1; r.MaxAttempts <= 0 || attempt <= r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := base + "-" + suffix()
		taken, err := r.checker.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s after %d attempts: %w", base, r.MaxAttempts, ErrExhausted)
}

// RandomSuffix returns SuffixLength random characters from [a-z0-9].
func RandomSuffix() string {
	b := make([]byte, SuffixLength)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
