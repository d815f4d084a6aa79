package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned by repositories when no key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey is a registered API credential. The opaque token itself is never
// stored; only its SHA-256 hash is persisted. Usage statistics are updated on
// every successful authentication, and deactivation only flips Active.
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	Active     bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
	UsageCount int64
}

// Repository defines persistence operations for the API key registry.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
	// RecordUsage atomically increments the usage counter and stamps the
	// last-used time for the given key.
	RecordUsage(ctx context.Context, id string, at time.Time) error
	ListActiveHashes(ctx context.Context) ([]string, error)
}

// GenerateKey returns a new opaque API key token: 32 bytes of cryptographic
// randomness, URL-safe base64 encoded.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashKey returns the hex-encoded SHA-256 hash of an API key token.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
