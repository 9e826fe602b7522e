package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type CalendarService struct {
	calendars CalendarStore
	members   MemberStore
	log       *zap.Logger
	now       func() time.Time
}

func NewCalendarService(calendars CalendarStore, members MemberStore, log *zap.Logger, now func() time.Time) *CalendarService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CalendarService{calendars: calendars, members: members, log: log, now: now}
}

// Create stores a calendar owned by actor and records actor as its owner
// member, so the owner can manage membership right away.
func (s *CalendarService) Create(ctx context.Context, actor *models.User, in dto.CreateCalendarDTO) (*models.Calendar, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("Calendar name is required")
	}
	typ := models.CalendarType(in.Type)
	if !typ.Valid() {
		return nil, apperrors.Validation("Calendar type must be personal or group")
	}

	now := s.now()
	cal := &models.Calendar{
		OwnerID:     actor.ID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Type:        typ,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.calendars.Create(ctx, cal); err != nil {
		return nil, apperrors.Server("Failed to create calendar", err)
	}

	owner := &models.Member{UserID: actor.ID, CalendarID: cal.ID, Role: models.MemberOwner, JoinedAt: now}
	if err := s.members.Create(ctx, owner); err != nil {
		_ = s.calendars.Delete(ctx, cal.ID)
		return nil, apperrors.Server("Failed to register calendar owner", err)
	}
	return cal, nil
}

func (s *CalendarService) List(ctx context.Context, actor *models.User) ([]models.Calendar, error) {
	cals, err := s.calendars.ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Server("Failed to list calendars", err)
	}
	return cals, nil
}

func (s *CalendarService) Update(ctx context.Context, actor *models.User, id bson.ObjectID, in dto.UpdateCalendarDTO) (*models.Calendar, error) {
	cal, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation("Calendar name cannot be empty")
		}
		cal.Name = name
	}
	if in.Description != nil {
		cal.Description = strings.TrimSpace(*in.Description)
	}
	if in.Type != nil {
		typ := models.CalendarType(*in.Type)
		if !typ.Valid() {
			return nil, apperrors.Validation("Calendar type must be personal or group")
		}
		cal.Type = typ
	}
	cal.UpdatedAt = s.now()
	if err := s.calendars.Save(ctx, cal); err != nil {
		return nil, apperrors.Server("Failed to update calendar", err)
	}
	return cal, nil
}

// Delete removes an owned calendar and all of its memberships.
func (s *CalendarService) Delete(ctx context.Context, actor *models.User, id bson.ObjectID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.calendars.Delete(ctx, id); err != nil && !errors.Is(err, database.ErrNotFound) {
		return apperrors.Server("Failed to delete calendar", err)
	}
	n, err := s.members.DeleteByCalendars(ctx, id)
	if err != nil {
		return apperrors.Server("Failed to delete calendar members", err)
	}
	s.log.Info("calendar deleted", zap.String("calendarId", id.Hex()), zap.Int64("members", n))
	return nil
}

// owned loads the calendar and hides calendars of other users behind a
// not-found error.
func (s *CalendarService) owned(ctx context.Context, actor *models.User, id bson.ObjectID) (*models.Calendar, error) {
	cal, err := s.calendars.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("Calendar not found or you do not have permission")
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load calendar", err)
	}
	if cal.OwnerID != actor.ID {
		return nil, apperrors.NotFound("Calendar not found or you do not have permission")
	}
	return cal, nil
}
