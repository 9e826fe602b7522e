package services

import (
	"context"
	"errors"
	"time"
	_ "time/tzdata"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/config"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type UserPage struct {
	Items []models.User `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int64         `json:"total"`
}

type UserService struct {
	users     UserStore
	tokens    RefreshTokenStore
	calendars CalendarStore
	members   MemberStore
	cfg       config.SecurityConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewUserService(users UserStore, tokens RefreshTokenStore, calendars CalendarStore, members MemberStore, cfg config.SecurityConfig, log *zap.Logger, now func() time.Time) *UserService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, tokens: tokens, calendars: calendars, members: members, cfg: cfg, log: log, now: now}
}

// Create adds a user on behalf of an admin. Admin-created accounts skip email
// verification.
func (s *UserService) Create(ctx context.Context, actor *models.User, in dto.CreateUserDTO) (*models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	name := utils.NormalizeName(in.Name)
	addr := utils.NormalizeEmail(in.Email)
	if name == "" || addr == "" || in.Password == "" {
		return nil, apperrors.Validation("Missing required fields: name, email, password")
	}
	if err := utils.ValidateName(name); err != nil {
		return nil, err
	}
	if err := utils.ValidateEmail(addr); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	role := models.RoleUser
	if in.Role != "" {
		role = models.Role(in.Role)
		if !role.Valid() {
			return nil, apperrors.Validation("Invalid role provided")
		}
	}

	now := s.now()
	u := &models.User{
		Name:            name,
		Email:           addr,
		Role:            role,
		IsActive:        true,
		IsEmailVerified: true,
		Preferences:     models.DefaultPreferences(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.SetPassword(in.Password, s.cfg.BcryptCost); err != nil {
		return nil, hashFailure(err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperrors.Conflict("Email is already in use")
		}
		return nil, apperrors.Server("Failed to create user", err)
	}
	s.log.Info("user created by admin", zap.String("email", u.Email), zap.String("admin", actor.Email))

	out := u.Sanitized()
	return &out, nil
}

func (s *UserService) Get(ctx context.Context, actor *models.User, id bson.ObjectID) (*models.User, error) {
	if !CanViewUser(actor, id) {
		return nil, apperrors.Authorization("Access denied: you can only view your own account")
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	out := u.Sanitized()
	return &out, nil
}

func (s *UserService) List(ctx context.Context, actor *models.User, page, limit, skip int) (*UserPage, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, total, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, apperrors.Server("Failed to list users", err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return &UserPage{Items: users, Page: page, Limit: limit, Total: total}, nil
}

// Update applies a partial profile update. Role and activation changes are
// reserved to admins.
func (s *UserService) Update(ctx context.Context, actor *models.User, id bson.ObjectID, in dto.UpdateUserDTO) (*models.User, error) {
	if err := RequireModifyUser(actor, id); err != nil {
		return nil, err
	}
	if (in.Role != nil || in.IsActive != nil) && !IsAdmin(actor) {
		return nil, apperrors.Authorization("Only administrators can change user roles or account status")
	}

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := utils.NormalizeName(*in.Name)
		if err := utils.ValidateName(name); err != nil {
			return nil, err
		}
		u.Name = name
	}
	if in.Email != nil {
		addr := utils.NormalizeEmail(*in.Email)
		if err := utils.ValidateEmail(addr); err != nil {
			return nil, err
		}
		if addr != u.Email {
			other, err := s.users.FindByEmail(ctx, addr)
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return nil, apperrors.Server("Failed to check email", err)
			}
			if other != nil {
				return nil, apperrors.Conflict("Email is already in use")
			}
			u.Email = addr
		}
	}
	if p := in.Preferences; p != nil {
		if p.Timezone != nil {
			if _, err := time.LoadLocation(*p.Timezone); err != nil || *p.Timezone == "" {
				return nil, apperrors.Validation("Invalid timezone")
			}
			u.Preferences.Timezone = *p.Timezone
		}
		if n := p.Notifications; n != nil {
			if n.Email != nil {
				u.Preferences.Notifications.Email = *n.Email
			}
			if n.SMS != nil {
				u.Preferences.Notifications.SMS = *n.SMS
			}
			if n.Push != nil {
				u.Preferences.Notifications.Push = *n.Push
			}
		}
	}
	if in.Role != nil {
		role := models.Role(*in.Role)
		if !role.Valid() {
			return nil, apperrors.Validation("Invalid role provided")
		}
		u.Role = role
	}
	deactivated := false
	if in.IsActive != nil {
		deactivated = u.IsActive && !*in.IsActive
		u.IsActive = *in.IsActive
	}

	u.UpdatedAt = s.now()
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperrors.Conflict("Email is already in use")
		}
		return nil, apperrors.Server("Failed to update user", err)
	}
	if deactivated {
		if _, err := s.tokens.RevokeAllForUser(ctx, u.ID, s.now()); err != nil {
			s.log.Error("failed to revoke tokens of deactivated user", zap.String("userId", u.ID.Hex()), zap.Error(err))
		}
	}

	out := u.Sanitized()
	return &out, nil
}

// Delete removes the user with their refresh tokens, owned calendars and
// memberships.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id bson.ObjectID) error {
	if err := RequireModifyUser(actor, id); err != nil {
		return err
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	if err := s.tokens.DeleteForUser(ctx, id); err != nil {
		return apperrors.Server("Failed to delete refresh tokens", err)
	}
	calIDs, err := s.calendars.DeleteByOwner(ctx, id)
	if err != nil {
		return apperrors.Server("Failed to delete calendars", err)
	}
	if _, err := s.members.DeleteByCalendars(ctx, calIDs...); err != nil {
		return apperrors.Server("Failed to delete calendar members", err)
	}
	if _, err := s.members.DeleteByUser(ctx, id); err != nil {
		return apperrors.Server("Failed to delete memberships", err)
	}
	if err := s.users.Delete(ctx, id); err != nil && !errors.Is(err, database.ErrNotFound) {
		return apperrors.Server("Failed to delete user", err)
	}
	s.log.Info("user deleted", zap.String("userId", id.Hex()), zap.String("by", actor.Email))
	return nil
}

func (s *UserService) load(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load user", err)
	}
	return u, nil
}
