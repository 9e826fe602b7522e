package services

import (
	"context"
	"fmt"
	"time"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/utils"
	"go.uber.org/zap"
)

// EmailCheck is a precondition evaluated against the email a request names,
// before the workflow runs.
type EmailCheck func(ctx context.Context, email string) error

// Guard runs checks in order against emailOf(in) and calls next only if all
// of them pass.
func Guard[In, Out any](next func(context.Context, In) (Out, error), emailOf func(In) string, checks ...EmailCheck) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		addr := utils.NormalizeEmail(emailOf(in))
		for _, check := range checks {
			if err := check(ctx, addr); err != nil {
				var zero Out
				return zero, err
			}
		}
		return next(ctx, in)
	}
}

// CheckLoginLock refuses a login while the account is locked and clears a
// lapsed lock so the attempt counter starts over.
func (s *AuthService) CheckLoginLock(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	u, err := s.findByEmail(ctx, addr)
	if err != nil || u == nil {
		return err
	}

	now := s.now()
	if u.IsLocked(now) {
		loginAttempts.WithLabelValues(outcomeLocked).Inc()
		return lockedFor(u.LockRemaining(now))
	}
	if u.LockUntil != nil {
		u.ClearLock()
		if err := s.save(ctx, u); err != nil {
			return err
		}
		s.log.Info("lapsed account lock cleared", zap.String("email", u.Email))
	}
	return nil
}

// CheckResetCooldown refuses a forgot-password request when the previous one
// was less than the configured cooldown ago.
func (s *AuthService) CheckResetCooldown(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	u, err := s.findByEmail(ctx, addr)
	if err != nil || u == nil {
		return err
	}
	if u.LastPasswordResetAt == nil {
		return nil
	}
	next := u.LastPasswordResetAt.Add(s.cfg.PasswordResetCooldown)
	if now := s.now(); now.Before(next) {
		hours := int(next.Sub(now).Round(time.Hour) / time.Hour)
		if hours < 1 {
			hours = 1
		}
		msg := fmt.Sprintf("Password reset can only be requested once every %d hours",
			int(s.cfg.PasswordResetCooldown/time.Hour))
		return apperrors.Coded(apperrors.KindValidation, apperrors.CodePasswordResetCooldown, msg).
			WithDetails(map[string]any{"retryAfterHours": hours})
	}
	return nil
}

// GuardedLogin is Login behind the lockout check.
func (s *AuthService) GuardedLogin() func(context.Context, dto.LoginDTO) (*LoginResult, error) {
	return Guard(s.Login, dto.LoginDTO.EmailAddress, s.CheckLoginLock)
}

// GuardedForgotPassword is ForgotPassword behind the reset cooldown.
func (s *AuthService) GuardedForgotPassword() func(context.Context, dto.EmailDTO) (string, error) {
	return Guard(s.ForgotPassword, dto.EmailDTO.EmailAddress, s.CheckResetCooldown)
}
