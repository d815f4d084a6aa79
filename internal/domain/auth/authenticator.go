package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for any failed authentication: missing key,
// unknown key, or deactivated key. Callers get no further detail.
var ErrUnauthorized = errors.New("invalid or missing API key")

const bloomFPR = 0.001

// Authenticator validates opaque API key tokens against the key registry and
// records usage statistics on success.
type Authenticator struct {
	keys Repository
	now  func() time.Time

	// prefilter holds the hashes of all active keys. A miss is a definite
	// miss, so unknown keys are rejected without a registry lookup. It must
	// be reloaded after new keys are registered; when nil every lookup goes
	// to the registry.
	prefilter *bloom.BloomFilter
}

// NewAuthenticator creates an Authenticator backed by the given registry.
func NewAuthenticator(keys Repository) *Authenticator {
	return &Authenticator{
		keys: keys,
		now:  time.Now,
	}
}

// LoadPrefilter builds the bloom prefilter from the currently active key
// hashes. Safe to skip; authentication works without it.
func (a *Authenticator) LoadPrefilter(ctx context.Context) error {
	hashes, err := a.keys.ListActiveHashes(ctx)
	if err != nil {
		return errors.Wrap(err, "list active key hashes")
	}

	n := uint(len(hashes))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, bloomFPR)
	for _, h := range hashes {
		filter.AddString(h)
	}
	a.prefilter = filter
	return nil
}

// Authenticate validates the given API key token. On success it atomically
// bumps the key's usage counter, stamps last-used, and returns the matched
// key. Every failure mode collapses to ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*APIKey, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}

	hash := HashKey(key)
	if a.prefilter != nil && !a.prefilter.TestString(hash) {
		return nil, ErrUnauthorized
	}

	info, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}
	if !info.Active {
		return nil, ErrUnauthorized
	}

	// Compare in constant time against the stored hash.
	computed, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, ErrUnauthorized
	}

	at := a.now()
	if err := a.keys.RecordUsage(ctx, info.ID, at); err != nil {
		return nil, errors.Wrap(err, "record api key usage")
	}

	info.UsageCount++
	info.LastUsedAt = &at
	return info, nil
}
