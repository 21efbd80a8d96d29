package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/moraeszete/webhook-payments-integrations/common/id"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
	"github.com/moraeszete/webhook-payments-integrations/internal/store"
)

const (
	secretBytes = 5 // 10 hex characters
	// TokenHashCost matches the cost suppliers' existing tokens were issued with.
	TokenHashCost = 8
)

// IssuedToken carries the plaintext credential. It is only available at issue time.
type IssuedToken struct {
	Token      *model.AuthToken
	Credential string // "secret:id", what the supplier puts in its access-token header
}

type TokenAdminService interface {
	Create(ctx context.Context, label string) (*IssuedToken, error)
	Rotate(ctx context.Context, tokenID int64) (*IssuedToken, error)
	SetActive(ctx context.Context, tokenID int64, active bool) error
	List(ctx context.Context) ([]model.AuthToken, error)
}

type tokenAdminService struct {
	tokens store.TokenStore
	cost   int
}

func NewTokenAdminService(tokens store.TokenStore, cost int) TokenAdminService {
	if cost < bcrypt.MinCost {
		cost = TokenHashCost
	}
	return &tokenAdminService{tokens: tokens, cost: cost}
}

func (s *tokenAdminService) Create(ctx context.Context, label string) (*IssuedToken, error) {
	secret, hash, err := s.newSecret()
	if err != nil {
		return nil, err
	}

	token := &model.AuthToken{
		ID:        id.New(),
		TokenHash: hash,
		Label:     label,
		Active:    true,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("creating token: %w", err)
	}

	return &IssuedToken{Token: token, Credential: credential(secret, token.ID)}, nil
}

func (s *tokenAdminService) Rotate(ctx context.Context, tokenID int64) (*IssuedToken, error) {
	secret, hash, err := s.newSecret()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.UpdateHash(ctx, tokenID, hash); err != nil {
		return nil, fmt.Errorf("rotating token %d: %w", tokenID, err)
	}

	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("reloading token %d: %w", tokenID, err)
	}
	return &IssuedToken{Token: token, Credential: credential(secret, tokenID)}, nil
}

func (s *tokenAdminService) SetActive(ctx context.Context, tokenID int64, active bool) error {
	if err := s.tokens.SetActive(ctx, tokenID, active); err != nil {
		return fmt.Errorf("updating token %d: %w", tokenID, err)
	}
	return nil
}

func (s *tokenAdminService) List(ctx context.Context) ([]model.AuthToken, error) {
	return s.tokens.List(ctx)
}

func (s *tokenAdminService) newSecret() (secret, hash string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating secret: %w", err)
	}
	secret = hex.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", "", fmt.Errorf("hashing secret: %w", err)
	}
	return secret, string(hashed), nil
}

func credential(secret string, tokenID int64) string {
	return secret + ":" + strconv.FormatInt(tokenID, 10)
}
