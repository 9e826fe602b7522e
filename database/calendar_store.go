package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/almanac/almanacbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type CalendarStore struct {
	col *mongo.Collection
}

func NewCalendarStore(db *mongo.Database) *CalendarStore {
	return &CalendarStore{col: db.Collection(CalendarsCollection)}
}

func (s *CalendarStore) Create(ctx context.Context, cal *models.Calendar) error {
	if cal.ID.IsZero() {
		cal.ID = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, cal); err != nil {
		return fmt.Errorf("insert calendar: %w", err)
	}
	return nil
}

func (s *CalendarStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Calendar, error) {
	var cal models.Calendar
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&cal); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find calendar: %w", err)
	}
	return &cal, nil
}

func (s *CalendarStore) ListByOwner(ctx context.Context, ownerID bson.ObjectID) ([]models.Calendar, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer cursor.Close(ctx)

	cals := make([]models.Calendar, 0)
	if err := cursor.All(ctx, &cals); err != nil {
		return nil, fmt.Errorf("decode calendars: %w", err)
	}
	return cals, nil
}

func (s *CalendarStore) Save(ctx context.Context, cal *models.Calendar) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": cal.ID}, cal)
	if err != nil {
		return fmt.Errorf("save calendar: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CalendarStore) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CalendarStore) DeleteByOwner(ctx context.Context, ownerID bson.ObjectID) ([]bson.ObjectID, error) {
	cals, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]bson.ObjectID, 0, len(cals))
	for _, c := range cals {
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if _, err := s.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, fmt.Errorf("delete calendars: %w", err)
	}
	return ids, nil
}
