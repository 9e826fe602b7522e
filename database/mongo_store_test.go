package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/almanac/almanacbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// testDatabase connects to MONGODB_TEST_URI and returns a throwaway database.
// Tests are skipped when the variable is unset.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)

	db := client.Database("almanac_test_" + bson.NewObjectID().Hex())
	require.NoError(t, EnsureIndexes(ctx, db))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoUserStore(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	s := NewUserStore(db)

	u := &models.User{Email: "ada@example.com", Name: "Ada", Role: models.RoleUser, IsActive: true}
	require.NoError(t, s.Create(ctx, u))
	assert.ErrorIs(t, s.Create(ctx, &models.User{Email: "ada@example.com"}), ErrDuplicate)

	exp := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Millisecond)
	u.SetCode(models.SlotEmailVerification, "hash", exp)
	require.NoError(t, s.Save(ctx, u))

	got, err := s.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	hash, gotExp := got.Code(models.SlotEmailVerification)
	assert.Equal(t, "hash", hash)
	require.NotNil(t, gotExp)
	assert.True(t, exp.Equal(*gotExp))

	got.ClearCode(models.SlotEmailVerification)
	require.NoError(t, s.Save(ctx, got))
	got, err = s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EmailVerificationCode)
	assert.Nil(t, got.EmailVerificationCodeExpiry)

	inserted, err := s.InsertIfAbsent(ctx, &models.User{Email: "ada@example.com", Name: "Other"})
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, s.Delete(ctx, u.ID))
	_, err = s.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoRefreshTokenStore(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	s := NewRefreshTokenStore(db)
	user := bson.NewObjectID()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, &models.RefreshToken{UserID: user, TokenHash: "a", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Create(ctx, &models.RefreshToken{UserID: user, TokenHash: "b", ExpiresAt: now.Add(time.Hour)}))

	changed, err := s.Revoke(ctx, "a", user, now)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.Revoke(ctx, "a", user, now)
	require.NoError(t, err)
	assert.False(t, changed)

	n, err := s.RevokeAllForUser(ctx, user, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	tok, err := s.FindByHash(ctx, "b")
	require.NoError(t, err)
	assert.True(t, tok.IsRevoked)
}
