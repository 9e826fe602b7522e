package services

import (
	"context"
	"strings"
	"testing"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func ptr[T any](v T) *T { return &v }

func TestPermissions(t *testing.T) {
	self := &models.User{ID: bson.NewObjectID(), Role: models.RoleUser}
	admin := &models.User{ID: bson.NewObjectID(), Role: models.RoleAdmin}
	other := bson.NewObjectID()

	assert.True(t, CanModifyUser(self, self.ID))
	assert.False(t, CanModifyUser(self, other))
	assert.True(t, CanModifyUser(admin, other))
	assert.False(t, CanModifyUser(nil, other))

	requireKind(t, RequireModifyUser(nil, other), apperrors.KindAuthentication)
	requireKind(t, RequireModifyUser(self, other), apperrors.KindAuthorization)
	requireKind(t, RequireAdmin(self), apperrors.KindAuthorization)
	assert.NoError(t, RequireAdmin(admin))
}

func TestAdminCreatesVerifiedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.seedUser(t, "root@example.com", models.RoleAdmin)
	plain := h.seedUser(t, "plain@example.com", models.RoleUser)

	in := dto.CreateUserDTO{Name: "Bob", Email: "Bob@Example.com", Password: testPassword}
	_, err := h.userSvc.Create(ctx, plain, in)
	requireKind(t, err, apperrors.KindAuthorization)

	created, err := h.userSvc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", created.Email)
	assert.True(t, created.IsEmailVerified)
	assert.Empty(t, created.PasswordHash)
	assert.Zero(t, h.mailer.count())

	h.login(t, "bob@example.com", testPassword)

	_, err = h.userSvc.Create(ctx, admin, in)
	requireKind(t, err, apperrors.KindConflict)

	_, err = h.userSvc.Create(ctx, admin, dto.CreateUserDTO{Name: "Eve", Email: "eve@example.com", Password: testPassword, Role: "root"})
	requireKind(t, err, apperrors.KindValidation)

	_, err = h.userSvc.Create(ctx, admin, dto.CreateUserDTO{Name: "Eve", Email: "eve@example.com", Password: "Aa1!" + strings.Repeat("x", 80)})
	requireKind(t, err, apperrors.KindValidation)
}

func TestGetUserOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.seedUser(t, "root@example.com", models.RoleAdmin)
	ada := h.seedUser(t, "ada@example.com", models.RoleUser)
	bob := h.seedUser(t, "bob@example.com", models.RoleUser)

	got, err := h.userSvc.Get(ctx, ada, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PasswordHash)

	_, err = h.userSvc.Get(ctx, ada, bob.ID)
	requireKind(t, err, apperrors.KindAuthorization)

	_, err = h.userSvc.Get(ctx, admin, bob.ID)
	require.NoError(t, err)

	_, err = h.userSvc.Get(ctx, admin, bson.NewObjectID())
	requireKind(t, err, apperrors.KindNotFound)
}

func TestListUsersPaginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.seedUser(t, "root@example.com", models.RoleAdmin)
	for _, addr := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		h.seedUser(t, addr, models.RoleUser)
	}

	page, err := h.userSvc.List(ctx, admin, 2, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Page)
	for _, u := range page.Items {
		assert.Empty(t, u.PasswordHash)
	}

	_, err = h.userSvc.List(ctx, h.user(t, "a@example.com"), 1, 20, 0)
	requireKind(t, err, apperrors.KindAuthorization)
}

func TestUpdateUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.seedUser(t, "root@example.com", models.RoleAdmin)
	ada := h.seedUser(t, "ada@example.com", models.RoleUser)
	h.seedUser(t, "bob@example.com", models.RoleUser)

	updated, err := h.userSvc.Update(ctx, ada, ada.ID, dto.UpdateUserDTO{
		Name: ptr("Ada King"),
		Preferences: &dto.PreferencesDTO{
			Timezone:      ptr("Europe/London"),
			Notifications: &dto.NotificationPreferencesDTO{SMS: ptr(true)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, "Europe/London", updated.Preferences.Timezone)
	assert.True(t, updated.Preferences.Notifications.SMS)
	assert.True(t, updated.Preferences.Notifications.Email)

	_, err = h.userSvc.Update(ctx, ada, ada.ID, dto.UpdateUserDTO{Role: ptr("admin")})
	requireKind(t, err, apperrors.KindAuthorization)

	_, err = h.userSvc.Update(ctx, ada, ada.ID, dto.UpdateUserDTO{Email: ptr("BOB@example.com")})
	requireKind(t, err, apperrors.KindConflict)

	_, err = h.userSvc.Update(ctx, ada, ada.ID, dto.UpdateUserDTO{Preferences: &dto.PreferencesDTO{Timezone: ptr("Mars/Olympus")}})
	requireKind(t, err, apperrors.KindValidation)

	promoted, err := h.userSvc.Update(ctx, admin, ada.ID, dto.UpdateUserDTO{Role: ptr("admin")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestDeactivationRevokesRefreshTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.seedUser(t, "root@example.com", models.RoleAdmin)
	ada := h.seedUser(t, "ada@example.com", models.RoleUser)
	res := h.login(t, ada.Email, testPassword)

	_, err := h.userSvc.Update(ctx, admin, ada.ID, dto.UpdateUserDTO{IsActive: ptr(false)})
	require.NoError(t, err)

	live, err := h.tokens.IsRefreshTokenLive(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestDeleteUserCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ada := h.seedUser(t, "ada@example.com", models.RoleUser)
	bob := h.seedUser(t, "bob@example.com", models.RoleUser)
	res := h.login(t, ada.Email, testPassword)

	adaCal, err := h.calendarSvc.Create(ctx, ada, dto.CreateCalendarDTO{Name: "Work", Type: "group"})
	require.NoError(t, err)
	bobCal, err := h.calendarSvc.Create(ctx, bob, dto.CreateCalendarDTO{Name: "Team", Type: "group"})
	require.NoError(t, err)
	_, err = h.memberSvc.Add(ctx, bob, dto.AddMemberDTO{UserID: ada.ID.Hex(), CalendarID: bobCal.ID.Hex(), Role: "viewer"})
	require.NoError(t, err)

	requireKind(t, h.userSvc.Delete(ctx, bob, ada.ID), apperrors.KindAuthorization)
	require.NoError(t, h.userSvc.Delete(ctx, ada, ada.ID))

	_, err = h.users.FindByID(ctx, ada.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = h.refresh.FindByHash(ctx, utils.HashToken(res.RefreshToken))
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = h.calendars.FindByID(ctx, adaCal.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = h.members.Find(ctx, bobCal.ID, ada.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	members, err := h.members.ListByCalendar(ctx, bobCal.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	requireKind(t, h.userSvc.Delete(ctx, ada, ada.ID), apperrors.KindNotFound)
}
