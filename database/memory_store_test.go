package database

import (
	"context"
	"testing"
	"time"

	"github.com/almanac/almanacbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMemoryUserStoreUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	a := &models.User{Email: "ada@example.com"}
	require.NoError(t, s.Create(ctx, a))
	assert.False(t, a.ID.IsZero())

	err := s.Create(ctx, &models.User{Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	b := &models.User{Email: "bob@example.com"}
	require.NoError(t, s.Create(ctx, b))
	b.Email = "ada@example.com"
	assert.ErrorIs(t, s.Save(ctx, b), ErrDuplicate)
}

func TestMemoryUserStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	lock := time.Now().Add(time.Minute)
	u := &models.User{Email: "ada@example.com", LockUntil: &lock}
	require.NoError(t, s.Create(ctx, u))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.Name = "changed"
	*got.LockUntil = time.Time{}

	again, err := s.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, again.Name)
	assert.Equal(t, lock, *again.LockUntil)
}

func TestMemoryUserStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	_, err := s.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, &models.User{ID: bson.NewObjectID()}), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, bson.NewObjectID()), ErrNotFound)
}

func TestMemoryUserStoreInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	inserted, err := s.InsertIfAbsent(ctx, &models.User{Email: "root@example.com", Name: "first"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertIfAbsent(ctx, &models.User{Email: "root@example.com", Name: "second"})
	require.NoError(t, err)
	assert.False(t, inserted)

	u, err := s.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "first", u.Name)
}

func TestMemoryUserStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.NoError(t, s.Create(ctx, &models.User{Email: email, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	page, total, err := s.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c@x.io", page[0].Email)

	page, _, err = s.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a@x.io", page[0].Email)

	page, _, err = s.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryRefreshTokenStoreRevoke(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRefreshTokenStore()
	now := time.Now()
	owner, other := bson.NewObjectID(), bson.NewObjectID()

	require.NoError(t, s.Create(ctx, &models.RefreshToken{UserID: owner, TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Create(ctx, &models.RefreshToken{UserID: owner, TokenHash: "h2", ExpiresAt: now.Add(time.Hour)}))
	assert.ErrorIs(t, s.Create(ctx, &models.RefreshToken{UserID: owner, TokenHash: "h1"}), ErrDuplicate)

	changed, err := s.Revoke(ctx, "h1", other, now)
	require.NoError(t, err)
	assert.False(t, changed, "tokens of another user are untouched")

	changed, err = s.Revoke(ctx, "h1", owner, now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Revoke(ctx, "h1", owner, now)
	require.NoError(t, err)
	assert.False(t, changed)

	tok, err := s.FindByHash(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, tok.IsLive(now))

	n, err := s.RevokeAllForUser(ctx, owner, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.DeleteForUser(ctx, owner))
	_, err = s.FindByHash(ctx, "h2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMemberStoreUniqueMembership(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMemberStore()
	cal, user := bson.NewObjectID(), bson.NewObjectID()

	require.NoError(t, s.Create(ctx, &models.Member{CalendarID: cal, UserID: user, Role: models.MemberViewer}))
	assert.ErrorIs(t, s.Create(ctx, &models.Member{CalendarID: cal, UserID: user, Role: models.MemberEditor}), ErrDuplicate)

	m, err := s.Find(ctx, cal, user)
	require.NoError(t, err)
	assert.Equal(t, models.MemberViewer, m.Role)

	n, err := s.DeleteByCalendars(ctx, cal)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryCalendarStoreDeleteByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCalendarStore()
	owner := bson.NewObjectID()

	require.NoError(t, s.Create(ctx, &models.Calendar{OwnerID: owner, Name: "b"}))
	require.NoError(t, s.Create(ctx, &models.Calendar{OwnerID: owner, Name: "a"}))
	require.NoError(t, s.Create(ctx, &models.Calendar{OwnerID: bson.NewObjectID(), Name: "c"}))

	cals, err := s.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.Equal(t, "a", cals[0].Name)

	ids, err := s.DeleteByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	cals, err = s.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cals)
}
