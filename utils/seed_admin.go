package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/almanac/almanacbackend/models"
	"go.uber.org/zap"
)

// AdminSeeder inserts a user only when no user with the same email exists.
type AdminSeeder interface {
	InsertIfAbsent(ctx context.Context, u *models.User) (bool, error)
}

// SeedAdminUser makes sure the configured administrator exists. It never
// overwrites an existing account. Seeding is skipped when no admin
// credentials are configured.
func SeedAdminUser(ctx context.Context, store AdminSeeder, admin config.AdminConfig, bcryptCost int, log *zap.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		log.Info("admin seed skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}
	if err := ValidateEmail(admin.Email); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	now := time.Now().UTC()
	u := &models.User{
		Name:            NormalizeName(admin.Name),
		Email:           NormalizeEmail(admin.Email),
		Role:            models.RoleAdmin,
		IsActive:        true,
		IsEmailVerified: true,
		Preferences:     models.DefaultPreferences(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.SetPassword(admin.Password, bcryptCost); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	inserted, err := store.InsertIfAbsent(ctx, u)
	if err != nil {
		return fmt.Errorf("seed admin upsert failed: %w", err)
	}

	if inserted {
		log.Info("admin user seeded", zap.String("email", u.Email))
	} else {
		log.Info("admin user already exists", zap.String("email", u.Email))
	}
	return nil
}
