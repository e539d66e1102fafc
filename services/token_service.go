package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go.pilab.hu/pwchange/domain"
)

// TokenService issues and parses the signed session tokens handed out on a
// completed login.
type TokenService struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewTokenService creates a TokenService. A non-positive TTL defaults to
// one hour.
func NewTokenService(secret []byte, sessionTTL time.Duration) *TokenService {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &TokenService{secret: secret, sessionTTL: sessionTTL}
}

// IssueSession mints a signed session token for the account and returns
// the session record to persist alongside it.
func (s *TokenService) IssueSession(account *domain.Account) (*domain.Session, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.sessionTTL)
	tokenID := uuid.NewString()

	claims := jwt.RegisteredClaims{
		Subject:   account.ID,
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &domain.Session{
		AccountID: account.ID,
		TokenID:   tokenID,
		Token:     signed,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// ParseToken validates a signed session token and returns its claims.
func (s *TokenService) ParseToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
