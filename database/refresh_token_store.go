package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type RefreshTokenStore struct {
	col *mongo.Collection
}

func NewRefreshTokenStore(db *mongo.Database) *RefreshTokenStore {
	return &RefreshTokenStore{col: db.Collection(RefreshTokensCollection)}
}

func (s *RefreshTokenStore) Create(ctx context.Context, t *models.RefreshToken) error {
	if t.ID.IsZero() {
		t.ID = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, t); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := s.col.FindOne(ctx, bson.M{"tokenHash": hash}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

// Revoke marks the user's token with the given hash revoked. It reports
// whether a live row was changed; revoking twice is not an error.
func (s *RefreshTokenStore) Revoke(ctx context.Context, hash string, userID bson.ObjectID, at time.Time) (bool, error) {
	res, err := s.col.UpdateOne(ctx, bson.M{
		"tokenHash": hash,
		"userId":    userID,
		"isRevoked": false,
	}, bson.M{
		"$set": bson.M{"isRevoked": true, "revokedAt": at},
	})
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID bson.ObjectID, at time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx, bson.M{
		"userId":    userID,
		"isRevoked": false,
	}, bson.M{
		"$set": bson.M{"isRevoked": true, "revokedAt": at},
	})
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *RefreshTokenStore) DeleteForUser(ctx context.Context, userID bson.ObjectID) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}
