package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UserStore persists users in the users collection. Writes replace the whole
// document, so concurrent saves of the same user are last-write-wins.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(UsersCollection)}
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts u unless a user with the same email already exists.
func (s *UserStore) InsertIfAbsent(ctx context.Context, u *models.User) (bool, error) {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	opts := options.UpdateOne().SetUpsert(true)
	res, err := s.col.UpdateOne(ctx, bson.M{"email": u.Email}, bson.M{"$setOnInsert": u}, opts)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("save user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of users, newest first, and the total count.
func (s *UserStore) List(ctx context.Context, skip, limit int) ([]models.User, int64, error) {
	total, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}
