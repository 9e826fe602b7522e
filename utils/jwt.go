package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// PurposePasswordReset marks an access token issued after a reset code was
// verified.
const PurposePasswordReset = "password_reset"

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenWrongType = errors.New("wrong token type")
)

type Claims struct {
	UserID  string    `json:"userId"`
	Email   string    `json:"email"`
	Role    string    `json:"role"`
	Type    TokenType `json:"type"`
	Purpose string    `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 tokens. It holds no state beyond its
// configuration and is safe for concurrent use.
type TokenSigner struct {
	cfg config.JWTConfig
	now func() time.Time
}

func NewTokenSigner(cfg config.JWTConfig, now func() time.Time) *TokenSigner {
	if now == nil {
		now = time.Now
	}
	return &TokenSigner{cfg: cfg, now: now}
}

func (s *TokenSigner) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

func (s *TokenSigner) IssueAccessToken(userID, email, role string) (string, time.Time, error) {
	return s.sign(Claims{UserID: userID, Email: email, Role: role, Type: TokenTypeAccess},
		s.cfg.AccessSecret, s.cfg.AccessTTL, "")
}

// IssueResetToken returns an access-class token scoped to the password reset
// step.
func (s *TokenSigner) IssueResetToken(userID, email, role string) (string, time.Time, error) {
	return s.sign(Claims{UserID: userID, Email: email, Role: role, Type: TokenTypeAccess, Purpose: PurposePasswordReset},
		s.cfg.AccessSecret, s.cfg.ResetTTL, "")
}

// IssueRefreshToken signs a refresh token with its own secret and a unique jti.
func (s *TokenSigner) IssueRefreshToken(userID, email, role string) (string, time.Time, error) {
	return s.sign(Claims{UserID: userID, Email: email, Role: role, Type: TokenTypeRefresh},
		s.cfg.RefreshSecret, s.cfg.RefreshTTL, uuid.NewString())
}

func (s *TokenSigner) sign(claims Claims, secret string, ttl time.Duration, jti string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        jti,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", claims.Type, err)
	}
	return signed, exp, nil
}

func (s *TokenSigner) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return s.verify(tokenStr, s.cfg.AccessSecret, TokenTypeAccess)
}

func (s *TokenSigner) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	return s.verify(tokenStr, s.cfg.RefreshSecret, TokenTypeRefresh)
}

func (s *TokenSigner) verify(tokenStr, secret string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Type != want {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}

// HashToken is the digest under which refresh tokens are stored.
func HashToken(tokenStr string) string {
	return sha256Hex(tokenStr)
}
