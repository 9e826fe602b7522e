package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService pairs the stateless signer with the refresh-token store.
// Signature checks never consult the store and store checks never consult
// the signature.
type TokenService struct {
	signer *utils.TokenSigner
	store  RefreshTokenStore
	now    func() time.Time
}

func NewTokenService(signer *utils.TokenSigner, store RefreshTokenStore, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{signer: signer, store: store, now: now}
}

func (s *TokenService) IssueAccessToken(u *models.User) (string, error) {
	tok, _, err := s.signer.IssueAccessToken(u.ID.Hex(), u.Email, string(u.Role))
	if err != nil {
		return "", err
	}
	tokensIssued.WithLabelValues("access").Inc()
	return tok, nil
}

func (s *TokenService) IssueResetToken(u *models.User) (string, error) {
	tok, _, err := s.signer.IssueResetToken(u.ID.Hex(), u.Email, string(u.Role))
	if err != nil {
		return "", err
	}
	tokensIssued.WithLabelValues("reset").Inc()
	return tok, nil
}

// IssuePair signs an access and a refresh token and records the refresh
// token in the store.
func (s *TokenService) IssuePair(ctx context.Context, u *models.User) (*TokenPair, error) {
	access, err := s.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, exp, err := s.signer.IssueRefreshToken(u.ID.Hex(), u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	rec := &models.RefreshToken{
		UserID:    u.ID,
		TokenHash: utils.HashToken(refresh),
		ExpiresAt: exp,
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	tokensIssued.WithLabelValues("refresh").Inc()
	return &TokenPair{AccessToken: access, RefreshToken: refresh, RefreshExpiresAt: exp}, nil
}

func (s *TokenService) VerifyAccess(tok string) (*utils.Claims, error) {
	return s.signer.VerifyAccessToken(tok)
}

func (s *TokenService) VerifyRefresh(tok string) (*utils.Claims, error) {
	return s.signer.VerifyRefreshToken(tok)
}

// IsRefreshTokenLive reports whether tok is recorded, unrevoked and
// unexpired.
func (s *TokenService) IsRefreshTokenLive(ctx context.Context, tok string) (bool, error) {
	rec, err := s.store.FindByHash(ctx, utils.HashToken(tok))
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.IsLive(s.now()), nil
}

// Revoke revokes one refresh token owned by userID. Unknown or already
// revoked tokens are ignored.
func (s *TokenService) Revoke(ctx context.Context, tok string, userID bson.ObjectID) error {
	_, err := s.store.Revoke(ctx, utils.HashToken(tok), userID, s.now())
	return err
}

func (s *TokenService) RevokeAll(ctx context.Context, userID bson.ObjectID) (int64, error) {
	return s.store.RevokeAllForUser(ctx, userID, s.now())
}
