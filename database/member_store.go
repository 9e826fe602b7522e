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

type MemberStore struct {
	col *mongo.Collection
}

func NewMemberStore(db *mongo.Database) *MemberStore {
	return &MemberStore{col: db.Collection(MembersCollection)}
}

func (s *MemberStore) Create(ctx context.Context, m *models.Member) error {
	if m.ID.IsZero() {
		m.ID = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, m); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *MemberStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Member, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// Find returns the membership of userID in calendarID.
func (s *MemberStore) Find(ctx context.Context, calendarID, userID bson.ObjectID) (*models.Member, error) {
	return s.findOne(ctx, bson.M{"calendar_id": calendarID, "user_id": userID})
}

func (s *MemberStore) findOne(ctx context.Context, filter bson.M) (*models.Member, error) {
	var m models.Member
	if err := s.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return &m, nil
}

func (s *MemberStore) ListByCalendar(ctx context.Context, calendarID bson.ObjectID) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"calendar_id": calendarID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer cursor.Close(ctx)

	members := make([]models.Member, 0)
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	return members, nil
}

func (s *MemberStore) Save(ctx context.Context, m *models.Member) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemberStore) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemberStore) DeleteByCalendars(ctx context.Context, calendarIDs ...bson.ObjectID) (int64, error) {
	if len(calendarIDs) == 0 {
		return 0, nil
	}
	res, err := s.col.DeleteMany(ctx, bson.M{"calendar_id": bson.M{"$in": calendarIDs}})
	if err != nil {
		return 0, fmt.Errorf("delete members: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MemberStore) DeleteByUser(ctx context.Context, userID bson.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete memberships: %w", err)
	}
	return res.DeletedCount, nil
}
