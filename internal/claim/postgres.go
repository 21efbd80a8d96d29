package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/moraeszete/webhook-payments-integrations/core/db"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

const uniqueViolation = "23505"

// claimQuery inserts a claim or takes over a row whose TTL already elapsed.
// ON CONFLICT locks the existing row, so concurrent callers serialize on it and
// the WHERE clause is re-evaluated against the winner's row: exactly one of them
// gets a row back.
const claimQuery = `
INSERT INTO claims (key, payload, created_at, expires_at)
VALUES (
    $1,
    $2,
    now(),
    CASE WHEN $3::float8 > 0 THEN now() + make_interval(secs => $3::float8) ELSE 'infinity'::timestamptz END
)
ON CONFLICT (key) DO UPDATE
    SET payload    = EXCLUDED.payload,
        created_at = EXCLUDED.created_at,
        expires_at = EXCLUDED.expires_at
    WHERE claims.expires_at <= now()
RETURNING created_at`

// PostgresStore is the table-backed claim store: a primary key on claims.key
// plus an expires_at column that makes elapsed claims claimable again.
type PostgresStore struct {
	q db.DBTX
}

func NewPostgresStore(q db.DBTX) *PostgresStore {
	return &PostgresStore{q: q}
}

func (s *PostgresStore) Claim(ctx context.Context, key Key, payload json.RawMessage, ttl time.Duration) (Result, error) {
	var createdAt time.Time
	err := s.q.QueryRow(ctx, claimQuery, key.String(), []byte(normalizePayload(payload)), ttl.Seconds()).Scan(&createdAt)
	if err == nil {
		return Result{Key: key, Outcome: OutcomeCreated}, nil
	}

	if isAlreadyClaimed(err) {
		return Result{Key: key, Outcome: OutcomeAlreadyClaimed}, nil
	}
	return Result{}, fmt.Errorf("%w: insert claim: %w", ErrTransient, err)
}

// isAlreadyClaimed is the only place that knows how Postgres reports a held key:
// no row from the conditional upsert, or a unique violation from a racing plain insert.
func isAlreadyClaimed(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Get returns the live claim for key, or ok=false when absent or expired.
func (s *PostgresStore) Get(ctx context.Context, key Key) (model.Claim, bool, error) {
	var (
		claim     model.Claim
		expiresAt pgtype.Timestamptz
	)
	row := s.q.QueryRow(ctx, `
		SELECT key, payload, created_at, expires_at
		FROM claims
		WHERE key = $1 AND expires_at > now()`, key.String())

	if err := row.Scan(&claim.Key, &claim.Payload, &claim.CreatedAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Claim{}, false, nil
		}
		return model.Claim{}, false, fmt.Errorf("%w: get claim: %w", ErrTransient, err)
	}
	// Claims without a TTL are stored with expires_at = infinity and keep a zero ExpiresAt.
	if expiresAt.Valid && expiresAt.InfinityModifier == pgtype.Finite {
		claim.ExpiresAt = expiresAt.Time
	}
	return claim, true, nil
}

func (s *PostgresStore) Release(ctx context.Context, key Key) (bool, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM claims WHERE key = $1`, key.String())
	if err != nil {
		return false, fmt.Errorf("%w: delete claim: %w", ErrTransient, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) PurgeRoute(ctx context.Context, namespace, route string) (int64, error) {
	prefix := RoutePrefix(namespace, route)
	tag, err := s.q.Exec(ctx, `
		DELETE FROM claims
		WHERE key = $1 OR starts_with(key, $2)`, prefix, prefix+Separator)
	if err != nil {
		return 0, fmt.Errorf("%w: purge claims: %w", ErrTransient, err)
	}
	return tag.RowsAffected(), nil
}

// Sweep deletes elapsed claims. Expired rows are already invisible to Claim, so
// this only reclaims space.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM claims WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep claims: %w", ErrTransient, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.q.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrTransient, err)
	}
	return nil
}
