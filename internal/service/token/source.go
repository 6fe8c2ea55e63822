package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendordesk/internal/domain"
	"vendordesk/internal/repository/storage"

	"github.com/golang-jwt/jwt/v5"
)

// Source reads the vendor bearer token persisted for one dashboard session.
type Source struct {
	repo      storage.Repository
	sessionID string
	key       string
	now       func() time.Time
}

// NewSource binds a token source to a session and storage key.
func NewSource(repo storage.Repository, sessionID, key string) *Source {
	return &Source{
		repo:      repo,
		sessionID: sessionID,
		key:       key,
		now:       time.Now,
	}
}

// Token returns the stored token. Missing, blank or locally expired tokens are domain.ErrUnauthenticated.
func (s *Source) Token(ctx context.Context) (string, error) {
	if s.sessionID == "" {
		return "", domain.ErrUnauthenticated
	}
	entry, err := s.repo.Get(ctx, s.sessionID, s.key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthenticated
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	tok := strings.TrimSpace(entry.Value)
	if tok == "" {
		return "", domain.ErrUnauthenticated
	}
	if expired(tok, s.now()) {
		return "", domain.ErrUnauthenticated
	}
	return tok, nil
}

// Store persists token for the session, replacing any previous one.
func (s *Source) Store(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError("token required", "token")
	}
	return s.repo.Set(ctx, s.sessionID, s.key, token)
}

// Clear removes the stored token. A token that is already gone is not an error.
func (s *Source) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, s.sessionID, s.key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// expired inspects the exp claim of JWT-shaped tokens without verifying the signature.
// Opaque tokens are never considered expired here; the vendor API decides.
func expired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
