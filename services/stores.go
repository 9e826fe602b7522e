package services

import (
	"context"
	"time"

	"github.com/almanac/almanacbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Stores return database.ErrNotFound and database.ErrDuplicate for missing
// documents and uniqueness violations.

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id bson.ObjectID) error
	List(ctx context.Context, skip, limit int) ([]models.User, int64, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, t *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, hash string, userID bson.ObjectID, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID bson.ObjectID, at time.Time) (int64, error)
	DeleteForUser(ctx context.Context, userID bson.ObjectID) error
}

type CalendarStore interface {
	Create(ctx context.Context, cal *models.Calendar) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Calendar, error)
	ListByOwner(ctx context.Context, ownerID bson.ObjectID) ([]models.Calendar, error)
	Save(ctx context.Context, cal *models.Calendar) error
	Delete(ctx context.Context, id bson.ObjectID) error
	DeleteByOwner(ctx context.Context, ownerID bson.ObjectID) ([]bson.ObjectID, error)
}

type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Member, error)
	Find(ctx context.Context, calendarID, userID bson.ObjectID) (*models.Member, error)
	ListByCalendar(ctx context.Context, calendarID bson.ObjectID) ([]models.Member, error)
	Save(ctx context.Context, m *models.Member) error
	Delete(ctx context.Context, id bson.ObjectID) error
	DeleteByCalendars(ctx context.Context, calendarIDs ...bson.ObjectID) (int64, error)
	DeleteByUser(ctx context.Context, userID bson.ObjectID) (int64, error)
}
