package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/softguidetech/karage/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, name, key_hash, active, created_at, last_used_at, usage_count
		FROM api_keys WHERE key_hash = $1`

	recordAPIKeyUsageSQL = `UPDATE api_keys
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = $1`

	listActiveKeyHashesSQL = `SELECT key_hash FROM api_keys WHERE active`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, name, key_hash, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, key_hash = $3, active = $4`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an API key by its SHA-256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKey, error) {
	rows, err := r.pool.Query(ctx, getAPIKeyByHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}

	k, err := pgx.CollectExactlyOneRow(rows, scanAPIKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &k, nil
}

// RecordUsage bumps the usage counter and last-used timestamp in a single
// statement, so concurrent authentications never lose updates.
func (r *APIKeyRepository) RecordUsage(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, recordAPIKeyUsageSQL, id, at)
	if err != nil {
		return fmt.Errorf("recording api key usage for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrKeyNotFound
	}
	return nil
}

// ListActiveHashes returns the hashes of all active keys.
func (r *APIKeyRepository) ListActiveHashes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listActiveKeyHashesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active key hashes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Upsert creates or replaces a key registration. Used by the seed tooling.
func (r *APIKeyRepository) Upsert(ctx context.Context, k *auth.APIKey) error {
	_, err := r.pool.Exec(ctx, upsertAPIKeySQL, k.ID, k.Name, k.KeyHash, k.Active)
	if err != nil {
		return fmt.Errorf("upserting api key %q: %w", k.ID, err)
	}
	return nil
}

func scanAPIKey(row pgx.CollectableRow) (auth.APIKey, error) {
	var k auth.APIKey
	err := row.Scan(
		&k.ID, &k.Name, &k.KeyHash, &k.Active,
		&k.CreatedAt, &k.LastUsedAt, &k.UsageCount,
	)
	return k, err
}
