package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RefreshToken is the server-side record of an issued refresh token. Only the
// SHA-256 digest of the signed token is kept.
type RefreshToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"userId"`
	TokenHash string        `bson:"tokenHash"`
	ExpiresAt time.Time     `bson:"expiresAt"`
	IsRevoked bool          `bson:"isRevoked"`
	RevokedAt *time.Time    `bson:"revokedAt,omitempty"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (t *RefreshToken) IsLive(now time.Time) bool {
	return !t.IsRevoked && t.ExpiresAt.After(now)
}
