package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type CalendarType string

const (
	CalendarPersonal CalendarType = "personal"
	CalendarGroup    CalendarType = "group"
)

func (t CalendarType) Valid() bool {
	return t == CalendarPersonal || t == CalendarGroup
}

type Calendar struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     bson.ObjectID `bson:"owner_id" json:"owner_id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	Type        CalendarType  `bson:"type" json:"type"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}
