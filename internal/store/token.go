package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/moraeszete/webhook-payments-integrations/core/db"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

type tokenStore struct {
	q db.DBTX
}

func newTokenStore(q db.DBTX) TokenStore {
	return &tokenStore{q: q}
}

func (s *tokenStore) GetHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := s.q.QueryRow(ctx, `SELECT token_hash FROM supplier_tokens WHERE id = $1`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get token hash: %w", err)
	}
	return hash, nil
}

func (s *tokenStore) GetByID(ctx context.Context, id int64) (*model.AuthToken, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, token_hash, label, active, created_at, rotated_at
		FROM supplier_tokens
		WHERE id = $1`, id)

	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

func (s *tokenStore) Create(ctx context.Context, token *model.AuthToken) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO supplier_tokens (id, token_hash, label, active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, token.ID, token.TokenHash, token.Label, token.Active).Scan(&token.CreatedAt)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

func (s *tokenStore) UpdateHash(ctx context.Context, id int64, tokenHash string) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE supplier_tokens
		SET token_hash = $2, rotated_at = now()
		WHERE id = $1`, id, tokenHash)
	if err != nil {
		return fmt.Errorf("update token hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *tokenStore) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.q.Exec(ctx, `UPDATE supplier_tokens SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set token active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *tokenStore) List(ctx context.Context) ([]model.AuthToken, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, token_hash, label, active, created_at, rotated_at
		FROM supplier_tokens
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.AuthToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, *token)
	}
	return tokens, rows.Err()
}

func scanToken(row pgx.Row) (*model.AuthToken, error) {
	var t model.AuthToken
	if err := row.Scan(&t.ID, &t.TokenHash, &t.Label, &t.Active, &t.CreatedAt, &t.RotatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
