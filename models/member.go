package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type MemberRole string

const (
	MemberOwner  MemberRole = "owner"
	MemberEditor MemberRole = "editor"
	MemberViewer MemberRole = "viewer"
)

func (r MemberRole) Valid() bool {
	switch r {
	case MemberOwner, MemberEditor, MemberViewer:
		return true
	}
	return false
}

// CanManage reports whether the role may add, change or remove members.
func (r MemberRole) CanManage() bool {
	return r == MemberOwner || r == MemberEditor
}

type Member struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     bson.ObjectID `bson:"user_id" json:"user_id"`
	CalendarID bson.ObjectID `bson:"calendar_id" json:"calendar_id"`
	Role       MemberRole    `bson:"role" json:"role"`
	JoinedAt   time.Time     `bson:"joined_at" json:"joined_at"`
}
