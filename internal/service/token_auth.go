package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/moraeszete/webhook-payments-integrations/common/logger"
	"github.com/moraeszete/webhook-payments-integrations/internal/store"
)

// AuthReason says why a credential was rejected. Every reason is a normal
// authentication failure for the caller; ReasonInternal is additionally logged as an error.
type AuthReason string

const (
	ReasonNone      AuthReason = ""
	ReasonMalformed AuthReason = "malformed"
	ReasonNotFound  AuthReason = "not_found"
	ReasonMismatch  AuthReason = "mismatch"
	ReasonInternal  AuthReason = "internal"
)

type AuthResult struct {
	Reason  AuthReason
	TokenID string
	OK      bool
}

// TokenAuthenticator validates "secret:tokenId" credentials against stored bcrypt hashes.
// The returned error is reserved for token store failures; every other outcome is an AuthResult.
type TokenAuthenticator interface {
	Validate(ctx context.Context, token string) (AuthResult, error)
}

type tokenAuthenticator struct {
	tokens store.TokenStore
}

func NewTokenAuthenticator(tokens store.TokenStore) TokenAuthenticator {
	return &tokenAuthenticator{tokens: tokens}
}

func (a *tokenAuthenticator) Validate(ctx context.Context, token string) (AuthResult, error) {
	secret, tokenID, ok := splitToken(token)
	if !ok {
		return AuthResult{Reason: ReasonMalformed}, nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{TokenID: logger.Ptr(tokenID), Component: "auth.token"})

	// Token ids are snowflake ints; anything else cannot address a record.
	id, err := strconv.ParseInt(tokenID, 10, 64)
	if err != nil {
		return AuthResult{Reason: ReasonNotFound, TokenID: tokenID}, nil
	}

	hash, err := a.tokens.GetHash(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{Reason: ReasonNotFound, TokenID: tokenID}, nil
		}
		return AuthResult{}, fmt.Errorf("looking up token: %w", err)
	}

	// TODO: enforce supplier_tokens.active once revocation semantics are decided; deactivation is advisory today.
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return AuthResult{OK: true, TokenID: tokenID}, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return AuthResult{Reason: ReasonMismatch, TokenID: tokenID}, nil
	default:
		slog.ErrorContext(ctx, "token hash comparison failed", "error", err)
		return AuthResult{Reason: ReasonInternal, TokenID: tokenID}, nil
	}
}

// splitToken splits on the first ":". Both halves must be non-empty and the id
// half may not contain another ":".
func splitToken(token string) (secret, tokenID string, ok bool) {
	secret, tokenID, found := strings.Cut(token, ":")
	if !found || secret == "" || tokenID == "" || strings.Contains(tokenID, ":") {
		return "", "", false
	}
	return secret, tokenID, true
}
