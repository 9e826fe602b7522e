package services

import (
	"context"
	"errors"
	"time"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type MemberService struct {
	members   MemberStore
	calendars CalendarStore
	users     UserStore
	now       func() time.Time
}

func NewMemberService(members MemberStore, calendars CalendarStore, users UserStore, now func() time.Time) *MemberService {
	if now == nil {
		now = time.Now
	}
	return &MemberService{members: members, calendars: calendars, users: users, now: now}
}

// Add makes a user a member of a calendar. Only owners and editors of the
// calendar may add members.
func (s *MemberService) Add(ctx context.Context, actor *models.User, in dto.AddMemberDTO) (*models.Member, error) {
	userID, err := bson.ObjectIDFromHex(in.UserID)
	if err != nil {
		return nil, apperrors.Validation("Invalid user_id")
	}
	calID, err := bson.ObjectIDFromHex(in.CalendarID)
	if err != nil {
		return nil, apperrors.Validation("Invalid calendar_id")
	}
	role := models.MemberRole(in.Role)
	if !role.Valid() {
		return nil, apperrors.Validation("Role must be owner, editor or viewer")
	}

	if err := s.requireManager(ctx, actor, calID); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Server("Failed to load user", err)
	}

	m := &models.Member{UserID: userID, CalendarID: calID, Role: role, JoinedAt: s.now()}
	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperrors.Conflict("User is already a member of this calendar")
		}
		return nil, apperrors.Server("Failed to add member", err)
	}
	return m, nil
}

// List returns the members of a calendar to its members and to admins.
func (s *MemberService) List(ctx context.Context, actor *models.User, calID bson.ObjectID) ([]models.Member, error) {
	if _, err := s.calendar(ctx, calID); err != nil {
		return nil, err
	}
	if !IsAdmin(actor) {
		if _, err := s.membership(ctx, calID, actor.ID); err != nil {
			return nil, err
		}
	}
	members, err := s.members.ListByCalendar(ctx, calID)
	if err != nil {
		return nil, apperrors.Server("Failed to list members", err)
	}
	return members, nil
}

func (s *MemberService) UpdateRole(ctx context.Context, actor *models.User, memberID bson.ObjectID, in dto.UpdateMemberRoleDTO) (*models.Member, error) {
	role := models.MemberRole(in.Role)
	if !role.Valid() {
		return nil, apperrors.Validation("Role must be owner, editor or viewer")
	}
	m, err := s.load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, actor, m.CalendarID); err != nil {
		return nil, err
	}
	m.Role = role
	if err := s.members.Save(ctx, m); err != nil {
		return nil, apperrors.Server("Failed to update member", err)
	}
	return m, nil
}

// Remove deletes a membership. Members may always leave; removing someone
// else takes an owner or editor.
func (s *MemberService) Remove(ctx context.Context, actor *models.User, memberID bson.ObjectID) error {
	m, err := s.load(ctx, memberID)
	if err != nil {
		return err
	}
	if m.UserID != actor.ID {
		if err := s.requireManager(ctx, actor, m.CalendarID); err != nil {
			return err
		}
	}
	if err := s.members.Delete(ctx, memberID); err != nil && !errors.Is(err, database.ErrNotFound) {
		return apperrors.Server("Failed to remove member", err)
	}
	return nil
}

func (s *MemberService) requireManager(ctx context.Context, actor *models.User, calID bson.ObjectID) error {
	if _, err := s.calendar(ctx, calID); err != nil {
		return err
	}
	if IsAdmin(actor) {
		return nil
	}
	m, err := s.membership(ctx, calID, actor.ID)
	if err != nil {
		return err
	}
	if !m.Role.CanManage() {
		return apperrors.Authorization("Only owners or editors can manage members")
	}
	return nil
}

func (s *MemberService) calendar(ctx context.Context, calID bson.ObjectID) (*models.Calendar, error) {
	cal, err := s.calendars.FindByID(ctx, calID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("Calendar not found")
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load calendar", err)
	}
	return cal, nil
}

func (s *MemberService) membership(ctx context.Context, calID, userID bson.ObjectID) (*models.Member, error) {
	m, err := s.members.Find(ctx, calID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.Authorization("You are not a member of this calendar")
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load membership", err)
	}
	return m, nil
}

func (s *MemberService) load(ctx context.Context, id bson.ObjectID) (*models.Member, error) {
	m, err := s.members.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("Member not found")
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load member", err)
	}
	return m, nil
}
