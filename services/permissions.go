package services

import (
	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func IsAdmin(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// CanModifyUser allows users to change their own account and admins to
// change any account.
func CanModifyUser(actor *models.User, targetID bson.ObjectID) bool {
	if actor == nil {
		return false
	}
	return actor.ID == targetID || IsAdmin(actor)
}

func CanViewUser(actor *models.User, targetID bson.ObjectID) bool {
	return CanModifyUser(actor, targetID)
}

func RequireModifyUser(actor *models.User, targetID bson.ObjectID) error {
	if actor == nil {
		return apperrors.Authentication("Authentication required")
	}
	if !CanModifyUser(actor, targetID) {
		return apperrors.Authorization("Access denied: you can only modify your own account")
	}
	return nil
}

func RequireAdmin(actor *models.User) error {
	if actor == nil {
		return apperrors.Authentication("Authentication required")
	}
	if !IsAdmin(actor) {
		return apperrors.Authorization("Access denied: administrators only")
	}
	return nil
}
